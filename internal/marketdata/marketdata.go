package marketdata

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNoData is returned when a source answered but had nothing usable for the symbol.
var ErrNoData = errors.New("no data")

// Market states reported in Snapshot.MarketState. Sources may report other
// upstream values, e.g. PREPRE.
const (
	StatePre     = "PRE"
	StateRegular = "REGULAR"
	StatePost    = "POST"
	StateClosed  = "CLOSED"
)

// Snapshot is the fast quote view a source exposes for a symbol.
// Nil fields are unknown.
type Snapshot struct {
	Symbol        string
	Live          *float64
	PreviousClose *float64
	MarketState   string
	ReceivedAt    time.Time
}

// Bar is a single OHLC sample. Close is nil when the source reported a gap.
type Bar struct {
	Time  time.Time
	Close *float64
}

// BarQuery selects a bar series, e.g. {Range: "2d", Interval: "5m", PrePost: true}.
type BarQuery struct {
	Range    string
	Interval string
	PrePost  bool
}

func (q BarQuery) String() string {
	s := q.Range + "/" + q.Interval
	if q.PrePost {
		s += "+ext"
	}
	return s
}

// Source is implemented by every market-data backend and decorator.
//
//go:generate mockgen -package=marketdata -destination=mock_source.go -source=marketdata.go Source
type Source interface {
	Name() string
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)
	Bars(ctx context.Context, symbol string, q BarQuery) ([]Bar, error)
}

// Closes returns the non-nil, finite closes of bars in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Close == nil || !Finite(*b.Close) {
			continue
		}
		out = append(out, *b.Close)
	}
	return out
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Float returns a pointer to v, or nil when v is zero or not finite.
// Backends that encode "missing" as 0 use it to normalize their fields.
func Float(v float64) *float64 {
	if v == 0 || !Finite(v) {
		return nil
	}
	return &v
}
