// Package quote resolves a current and a reference price per symbol through
// ordered fallback chains over a marketdata.Source.
package quote

import "strings"

// Strategy tags recorded in Quote.Provenance.
const (
	TagSnapshotLive      = "snapshot.live"
	TagIntraday5m        = "intraday.5m"
	TagIntraday1m        = "intraday.1m"
	TagSnapshotPrevClose = "snapshot.prev_close"
	TagDailyPrev         = "daily.prev"
	TagCashPrev          = "cash.prev"
	TagProxyPrev         = "proxy.prev"
)

// Quote is the resolved view of a symbol. Nil prices are unknown; present
// prices are always finite.
type Quote struct {
	Symbol     string
	Label      string
	Current    *float64
	Reference  *float64
	Provenance []string
}

// Source joins the provenance tags in application order, e.g. "intraday.5m+snapshot.prev_close".
func (q Quote) Source() string {
	return strings.Join(q.Provenance, "+")
}

// Name is the label, or the symbol when unlabelled.
func (q Quote) Name() string {
	if q.Label != "" {
		return q.Label
	}
	return q.Symbol
}
