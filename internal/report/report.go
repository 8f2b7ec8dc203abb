package report

import (
	"html"
	"strings"
	"unicode/utf8"

	"marketbrief/internal/notify"
)

// Section is a titled group of preformatted lines.
type Section struct {
	Title string
	Lines []string
}

// Report is a title, ordered sections and an optional closing paragraph.
// It renders to Telegram HTML.
type Report struct {
	Title    string
	Sections []Section
	Footer   string
}

// block is one paragraph of the rendered message. Text, title and lines are
// raw and escaped when rendered.
type block struct {
	text  string
	bold  bool
	title string
	lines []string // body of a <pre> block
	pre   bool
}

func (b block) renderText(text string) string {
	if b.bold {
		return "<b>" + html.EscapeString(text) + "</b>"
	}
	return html.EscapeString(text)
}

func (b block) render(lines []string) string {
	if !b.pre {
		return b.renderText(b.text)
	}
	var sb strings.Builder
	if b.title != "" {
		sb.WriteString("<b>" + html.EscapeString(b.title) + "</b>")
		sb.WriteByte('\n')
	}
	sb.WriteString("<pre>")
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(html.EscapeString(l))
	}
	sb.WriteString("</pre>")
	return sb.String()
}

func (r Report) blocks() []block {
	var out []block
	if r.Title != "" {
		out = append(out, block{text: r.Title, bold: true})
	}
	for _, s := range r.Sections {
		if len(s.Lines) == 0 {
			continue
		}
		out = append(out, block{title: s.Title, lines: s.Lines, pre: true})
	}
	if r.Footer != "" {
		out = append(out, block{text: r.Footer})
	}
	return out
}

// Render returns the whole report as one message.
func (r Report) Render() string {
	blocks := r.blocks()
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.render(b.lines))
	}
	return strings.Join(parts, "\n\n")
}

// Chunks packs the report into messages of at most limit runes. A section
// too long for one message is split by lines, each piece keeping the section
// title and its own <pre> wrapper. Oversize text is cut before escaping, so
// no piece breaks an entity or a tag. limit <= 0 disables splitting.
func (r Report) Chunks(limit int) []string {
	if limit <= 0 {
		return []string{r.Render()}
	}

	var pieces []string
	for _, b := range r.blocks() {
		pieces = append(pieces, b.split(limit)...)
	}

	var (
		chunks []string
		cur    strings.Builder
		size   int
	)
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if size > 0 && size+2+n > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
			size = 0
		}
		if size > 0 {
			cur.WriteString("\n\n")
			size += 2
		}
		cur.WriteString(p)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func (b block) split(limit int) []string {
	full := b.render(b.lines)
	if utf8.RuneCountInString(full) <= limit {
		return []string{full}
	}
	if !b.pre {
		return fit(b.text, limit, b.renderText)
	}

	var (
		out []string
		acc []string
	)
	for _, l := range b.lines {
		next := append(acc[:len(acc):len(acc)], l)
		if utf8.RuneCountInString(b.render(next)) <= limit {
			acc = next
			continue
		}
		if len(acc) > 0 {
			out = append(out, b.render(acc))
		}
		single := b.render([]string{l})
		if utf8.RuneCountInString(single) > limit {
			out = append(out, fit(l, limit, func(s string) string { return b.render([]string{s}) })...)
			acc = nil
			continue
		}
		acc = []string{l}
	}
	if len(acc) > 0 {
		out = append(out, b.render(acc))
	}
	return out
}

// fit cuts raw text into pieces whose wrapped form is at most limit runes.
// A wrapper longer than limit leaves single-rune pieces over the limit.
func fit(raw string, limit int, wrap func(string) string) []string {
	w := wrap(raw)
	n := utf8.RuneCountInString(raw)
	if utf8.RuneCountInString(w) <= limit || n <= 1 {
		return []string{w}
	}
	// Scale the raw budget by how much escaping grew the text.
	overhead := utf8.RuneCountInString(wrap(""))
	escaped := utf8.RuneCountInString(w) - overhead
	budget := max(1, min(n*(limit-overhead)/max(escaped, 1), n-1))

	var out []string
	for _, piece := range notify.Split(raw, budget) {
		out = append(out, fit(piece, limit, wrap)...)
	}
	return out
}
