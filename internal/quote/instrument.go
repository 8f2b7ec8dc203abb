package quote

import (
	"fmt"
	"strings"
)

// Instrument is a symbol to resolve. A labelled future may name a cash index
// whose previous close is its reference, and a proxy used when the index
// has no daily data.
type Instrument struct {
	Label  string
	Symbol string
	Cash   string
	Proxy  string
}

// Name is the label, or the symbol when unlabelled.
func (i Instrument) Name() string {
	if i.Label != "" {
		return i.Label
	}
	return i.Symbol
}

// ParseInstrument reads "SYMBOL" or "Label|SYMBOL|CASH|PROXY". Trailing
// fields may be omitted or left empty. Symbols are upper-cased, the label
// is kept as written.
func ParseInstrument(s string) (Instrument, error) {
	fields := strings.Split(s, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) == 1 {
		fields = []string{"", fields[0]}
	}
	if len(fields) > 4 {
		return Instrument{}, fmt.Errorf("instrument %q: want at most 4 fields, got %d", s, len(fields))
	}
	fields = append(fields, make([]string, 4-len(fields))...)

	in := Instrument{
		Label:  fields[0],
		Symbol: strings.ToUpper(fields[1]),
		Cash:   strings.ToUpper(fields[2]),
		Proxy:  strings.ToUpper(fields[3]),
	}
	if in.Symbol == "" {
		return Instrument{}, fmt.Errorf("instrument %q: empty symbol", s)
	}
	return in, nil
}

// ParseInstruments parses every entry, stopping at the first invalid one.
func ParseInstruments(entries []string) ([]Instrument, error) {
	out := make([]Instrument, 0, len(entries))
	for _, e := range entries {
		in, err := ParseInstrument(e)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// Instruments wraps plain symbols.
func Instruments(symbols ...string) []Instrument {
	out := make([]Instrument, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, Instrument{Symbol: s})
	}
	return out
}
