package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marketbrief/internal/marketdata"
)

var (
	intraday5m = marketdata.BarQuery{Range: "2d", Interval: "5m", PrePost: true}
	intraday1m = marketdata.BarQuery{Range: "1d", Interval: "1m", PrePost: true}
	dailyBars  = marketdata.BarQuery{Range: "5d", Interval: "1d"}
	cashBars   = marketdata.BarQuery{Range: "10d", Interval: "1d"}
)

// strategy is one link of a fallback chain.
type strategy struct {
	tag     string
	applies func(r *Resolver, l *lookup) bool
	fetch   func(ctx context.Context, l *lookup) (*float64, error)
}

var currentChain = []strategy{
	{tag: TagSnapshotLive, fetch: func(ctx context.Context, l *lookup) (*float64, error) {
		snap, err := l.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return snap.Live, nil
	}},
	{tag: TagIntraday5m, fetch: lastClose(intraday5m)},
	{
		tag:     TagIntraday1m,
		applies: func(r *Resolver, l *lookup) bool { return r.isContinuous(l.symbol) },
		fetch:   lastClose(intraday1m),
	},
}

var referenceChain = []strategy{
	{
		tag:     TagCashPrev,
		applies: func(_ *Resolver, l *lookup) bool { return l.cash != "" },
		fetch:   lastCloseOf(cashBars, func(l *lookup) string { return l.cash }),
	},
	{
		tag:     TagProxyPrev,
		applies: func(_ *Resolver, l *lookup) bool { return l.proxy != "" },
		fetch:   lastCloseOf(cashBars, func(l *lookup) string { return l.proxy }),
	},
	{tag: TagSnapshotPrevClose, fetch: func(ctx context.Context, l *lookup) (*float64, error) {
		snap, err := l.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return snap.PreviousClose, nil
	}},
	{tag: TagDailyPrev, fetch: func(ctx context.Context, l *lookup) (*float64, error) {
		bars, err := l.src.Bars(ctx, l.symbol, dailyBars)
		if err != nil {
			return nil, err
		}
		closes := marketdata.Closes(bars)
		if len(closes) < 2 {
			return nil, fmt.Errorf("%d daily closes: %w", len(closes), marketdata.ErrNoData)
		}
		return &closes[len(closes)-2], nil
	}},
}

func lastClose(q marketdata.BarQuery) func(context.Context, *lookup) (*float64, error) {
	return lastCloseOf(q, func(l *lookup) string { return l.symbol })
}

// lastCloseOf reads the last non-null close of the symbol picked from the lookup.
func lastCloseOf(q marketdata.BarQuery, symbol func(*lookup) string) func(context.Context, *lookup) (*float64, error) {
	return func(ctx context.Context, l *lookup) (*float64, error) {
		bars, err := l.src.Bars(ctx, symbol(l), q)
		if err != nil {
			return nil, err
		}
		closes := marketdata.Closes(bars)
		if len(closes) == 0 {
			return nil, marketdata.ErrNoData
		}
		return &closes[len(closes)-1], nil
	}
}

// lookup memoizes the snapshot of one symbol across both chains.
type lookup struct {
	src    marketdata.Source
	symbol string
	cash   string
	proxy  string

	once sync.Once
	snap marketdata.Snapshot
	err  error
}

func (l *lookup) snapshot(ctx context.Context) (marketdata.Snapshot, error) {
	l.once.Do(func() {
		l.snap, l.err = l.src.Snapshot(ctx, l.symbol)
	})
	return l.snap, l.err
}

// Resolver turns symbols into Quotes. It never returns errors: failed
// strategies are logged and the next one is tried.
type Resolver struct {
	src         marketdata.Source
	continuous  map[string]struct{}
	parallelism int
	logger      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithContinuous flags symbols that trade around the clock, enabling the 1m fallback.
func WithContinuous(symbols []string) Option {
	return func(r *Resolver) {
		for _, s := range symbols {
			r.continuous[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
		}
	}
}

// WithParallelism bounds the number of symbols resolved concurrently by
// ResolveAll and ResolveInstruments.
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		r.parallelism = n
	}
}

// WithLogger sets the logger used for strategy diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResolver(src marketdata.Source, opts ...Option) *Resolver {
	r := &Resolver{
		src:         src,
		continuous:  map[string]struct{}{},
		parallelism: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) isContinuous(symbol string) bool {
	_, ok := r.continuous[strings.ToUpper(symbol)]
	return ok
}

// Resolve runs the current and reference chains for symbol.
func (r *Resolver) Resolve(ctx context.Context, symbol string) Quote {
	return r.ResolveInstrument(ctx, Instrument{Symbol: symbol})
}

// ResolveInstrument resolves in.Symbol. The reference is the previous daily
// close of in.Cash, then of in.Proxy, before the symbol's own fallbacks.
func (r *Resolver) ResolveInstrument(ctx context.Context, in Instrument) Quote {
	q := Quote{Symbol: in.Symbol, Label: in.Label}
	if strings.TrimSpace(in.Symbol) == "" {
		return q
	}
	l := &lookup{src: r.src, symbol: in.Symbol, cash: in.Cash, proxy: in.Proxy}

	var tag string
	if q.Current, tag = r.run(ctx, l, "current", currentChain); tag != "" {
		q.Provenance = append(q.Provenance, tag)
	}
	if q.Reference, tag = r.run(ctx, l, "reference", referenceChain); tag != "" {
		q.Provenance = append(q.Provenance, tag)
	}
	return q
}

func (r *Resolver) run(ctx context.Context, l *lookup, field string, chain []strategy) (*float64, string) {
	for _, s := range chain {
		if s.applies != nil && !s.applies(r, l) {
			continue
		}
		v, err := s.fetch(ctx, l)
		if err == nil && (v == nil || !marketdata.Finite(*v)) {
			err = marketdata.ErrNoData
		}
		if err != nil {
			r.logger.Debug("strategy failed",
				zap.String("symbol", l.symbol),
				zap.String("strategy", s.tag),
				zap.Error(err))
			continue
		}
		value := *v
		return &value, s.tag
	}
	r.logger.Warn("no usable value",
		zap.String("symbol", l.symbol),
		zap.String("field", field))
	return nil, ""
}

// ResolveAll resolves symbols independently and returns quotes in input order.
func (r *Resolver) ResolveAll(ctx context.Context, symbols []string) []Quote {
	return r.ResolveInstruments(ctx, Instruments(symbols...))
}

// ResolveInstruments resolves instruments independently and returns quotes
// in input order.
func (r *Resolver) ResolveInstruments(ctx context.Context, ins []Instrument) []Quote {
	out := make([]Quote, len(ins))
	if r.parallelism <= 1 {
		for i, in := range ins {
			out[i] = r.ResolveInstrument(ctx, in)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, in := range ins {
		g.Go(func() error {
			out[i] = r.ResolveInstrument(ctx, in)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
