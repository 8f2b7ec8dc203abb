package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"marketbrief/internal/metric"
	"marketbrief/internal/quote"
)

// Tone is the directional read of a group of changes.
type Tone string

const (
	Bullish Tone = "bullish"
	Bearish Tone = "bearish"
	Neutral Tone = "neutral"
)

const (
	toneThreshold     = 0.2
	strongThreshold   = 0.6
	rotationThreshold = 0.6
)

// Mover is a quote with a defined change, named by its label when it has one.
type Mover struct {
	Name   string
	Change float64
}

// Summary describes the changes of a group of quotes.
type Summary struct {
	Count  int
	Mean   float64
	Best   Mover
	Worst  Mover
	Spread float64
	Tone   Tone
}

// Summarize computes mean, best, worst and spread over quotes with a defined
// change. ok is false when none qualifies. Ties keep the first symbol.
func Summarize(quotes []quote.Quote) (s Summary, ok bool) {
	var sum float64
	for _, q := range quotes {
		c := metric.ChangePercent(q.Current, q.Reference)
		if c == nil {
			continue
		}
		m := Mover{Name: q.Name(), Change: *c}
		if s.Count == 0 || m.Change > s.Best.Change {
			s.Best = m
		}
		if s.Count == 0 || m.Change < s.Worst.Change {
			s.Worst = m
		}
		sum += m.Change
		s.Count++
	}
	if s.Count == 0 {
		return Summary{}, false
	}
	s.Mean = sum / float64(s.Count)
	s.Spread = s.Best.Change - s.Worst.Change
	switch {
	case s.Mean > toneThreshold:
		s.Tone = Bullish
	case s.Mean < -toneThreshold:
		s.Tone = Bearish
	default:
		s.Tone = Neutral
	}
	return s, true
}

// Rotation reports a wide gap between best and worst.
func (s Summary) Rotation() bool {
	return s.Spread >= rotationThreshold
}

// NoData is the interpretation used when no change could be computed.
const NoData = "Sin datos fiables de premarket ahora mismo."

// Interpretation renders the Spanish sentiment paragraph for quotes.
func Interpretation(quotes []quote.Quote) string {
	s, ok := Summarize(quotes)
	if !ok {
		return NoData
	}
	tone := map[Tone]string{
		Bullish: "🟢 Sesgo alcista",
		Bearish: "🔴 Sesgo bajista",
		Neutral: "⚪ Sesgo neutral",
	}[s.Tone]

	lines := []string{
		fmt.Sprintf("%s en futuros: media %+.2f%%.", tone, s.Mean),
		fmt.Sprintf("Mejor: %s %+.2f%% | Peor: %s %+.2f%%.", s.Best.Name, s.Best.Change, s.Worst.Name, s.Worst.Change),
	}
	if s.Rotation() {
		lines = append(lines, "Rotación marcada entre índices.")
	} else {
		lines = append(lines, "Movimiento relativamente homogéneo.")
	}
	switch {
	case s.Mean > strongThreshold:
		lines = append(lines, "Clima positivo previo a la apertura; vigila tomas de beneficio sin catalizadores.")
	case s.Mean < -strongThreshold:
		lines = append(lines, "Apertura con presión; ojo a soportes iniciales y posibles rebotes técnicos.")
	default:
		lines = append(lines, "Apertura mixta; niveles iniciales y flujo de noticias mandan.")
	}
	return strings.Join(lines, " ")
}

// SourceCount is the number of quotes resolved through one provenance.
type SourceCount struct {
	Source string
	Count  int
}

// Breakdown tallies quotes by provenance. Quotes with nothing resolved are
// counted under "none". Sorted by count desc, then source.
func Breakdown(quotes []quote.Quote) []SourceCount {
	counts := make(map[string]int, len(quotes))
	for _, q := range quotes {
		src := q.Source()
		if src == "" {
			src = "none"
		}
		counts[src]++
	}

	out := make([]SourceCount, 0, len(counts))
	for src, n := range counts {
		out = append(out, SourceCount{Source: src, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	return out
}
