package report

import (
	"time"

	"marketbrief/internal/quote"
)

// Section titles of the pre-market report.
const (
	FuturesTitle   = "Futuros"
	WatchlistTitle = "Watchlist"
)

// Premarket lays out futures with precise prices and the watchlist with
// rounded prices. Empty groups are omitted.
func (f *Formatter) Premarket(now time.Time, futures, watchlist []quote.Quote, footer string) Report {
	r := Report{
		Title:  "Premarket USA · " + now.Format("02/01/2006 15:04 MST"),
		Footer: footer,
	}
	if len(futures) > 0 {
		r.Sections = append(r.Sections, Section{Title: FuturesTitle, Lines: f.lines(futures, FuturesColumns, Precise)})
	}
	if len(watchlist) > 0 {
		r.Sections = append(r.Sections, Section{Title: WatchlistTitle, Lines: f.lines(watchlist, WatchlistColumns, Rounded)})
	}
	return r
}

func (f *Formatter) lines(quotes []quote.Quote, cols Columns, style PriceStyle) []string {
	out := make([]string, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, f.Line(q, cols, style))
	}
	return out
}
