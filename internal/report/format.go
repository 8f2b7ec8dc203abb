// Package report renders resolved quotes into fixed-width chat messages.
package report

import (
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"marketbrief/internal/metric"
	"marketbrief/internal/quote"
)

const (
	Placeholder = "—"
	Up          = "▲"
	Down        = "▼"
	Ellipsis    = "…"

	// groupedFrom is the first magnitude rendered as a grouped integer.
	groupedFrom = 1000
)

// PriceStyle selects how a line renders its price column.
type PriceStyle int

const (
	// Rounded drops decimals from 1000 upwards.
	Rounded PriceStyle = iota
	// Precise always keeps two decimals.
	Precise
)

// Columns are the fixed widths of a line, in runes.
type Columns struct {
	Symbol int
	Price  int
	Change int
}

var (
	FuturesColumns   = Columns{Symbol: 12, Price: 10, Change: 8}
	WatchlistColumns = Columns{Symbol: 8, Price: 10, Change: 8}
)

// Formatter renders numbers for one locale. It holds no mutable state.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a formatter for a BCP 47 locale, English when unparsable.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Price renders two decimals below 1000 and a grouped integer from 1000 up.
func (f *Formatter) Price(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	if math.Abs(*v) < groupedFrom {
		return f.printer.Sprintf("%.2f", *v)
	}
	return f.printer.Sprintf("%d", int64(math.Round(*v)))
}

// PricePrecise renders a grouped number with two decimals.
func (f *Formatter) PricePrecise(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	return f.printer.Sprintf("%.2f", *v)
}

// Change renders a signed percentage as a glyph and the absolute value.
func (f *Formatter) Change(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	glyph := Up
	if *v < 0 {
		glyph = Down
	}
	return glyph + f.printer.Sprintf("%.2f", math.Abs(*v)) + "%"
}

// Line renders a quote as name, price and change columns. The name is the
// label when the quote has one.
func (f *Formatter) Line(q quote.Quote, cols Columns, style PriceStyle) string {
	price := f.Price(q.Current)
	if style == Precise {
		price = f.PricePrecise(q.Current)
	}
	change := f.Change(metric.ChangePercent(q.Current, q.Reference))
	return fmt.Sprintf("%-*s %*s %*s",
		cols.Symbol, Truncate(q.Name(), cols.Symbol),
		cols.Price, price,
		cols.Change, change)
}

// Truncate shortens s to width runes, ending in an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width == 1 {
		return Ellipsis
	}
	r := []rune(s)
	return string(r[:width-1]) + Ellipsis
}
