package financego

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"marketbrief/internal/marketdata"
)

// QuoteFunc fetches a single quote. quote.Get satisfies it.
type QuoteFunc func(symbol string) (*finance.Quote, error)

// BarsFunc fetches the bars selected by p.
type BarsFunc func(p *chart.Params) ([]*finance.ChartBar, error)

type Config struct {
	Name string // display name, default: financego
	// HTTPClient replaces the package-level client used by finance-go when set.
	HTTPClient *http.Client
}

// Adapter exposes finance-go as a marketdata.Source.
type Adapter struct {
	cfg   Config
	quote QuoteFunc
	bars  BarsFunc
	now   func() time.Time
}

var _ marketdata.Source = (*Adapter)(nil)

// New returns an adapter backed by the live finance-go endpoints.
func New(cfg Config) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "financego"
	}
	if cfg.HTTPClient != nil {
		finance.SetHTTPClient(cfg.HTTPClient)
	}
	return NewWithFuncs(cfg, quote.Get, collectBars)
}

// NewWithFuncs returns an adapter using the given fetch functions.
func NewWithFuncs(cfg Config, q QuoteFunc, b BarsFunc) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "financego"
	}
	return &Adapter{cfg: cfg, quote: q, bars: b, now: time.Now}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Snapshot reads the pre-market price while the market is in a pre session,
// the regular price otherwise.
func (a *Adapter) Snapshot(ctx context.Context, symbol string) (marketdata.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return marketdata.Snapshot{}, err
	}
	q, err := a.quote(symbol)
	if err != nil {
		return marketdata.Snapshot{}, fmt.Errorf("financego quote %s: %w", symbol, err)
	}
	if q == nil {
		return marketdata.Snapshot{}, fmt.Errorf("financego quote %s: %w", symbol, marketdata.ErrNoData)
	}

	snap := marketdata.Snapshot{
		Symbol:        symbol,
		PreviousClose: marketdata.Float(q.RegularMarketPreviousClose),
		MarketState:   string(q.MarketState),
		ReceivedAt:    a.now().UTC(),
	}
	switch q.MarketState {
	case finance.MarketStatePre, finance.MarketStatePrePre:
		snap.Live = marketdata.Float(q.PreMarketPrice)
	}
	if snap.Live == nil {
		snap.Live = marketdata.Float(q.RegularMarketPrice)
	}
	return snap, nil
}

// Bars converts the chart series selected by q. Zero closes are gaps.
func (a *Adapter) Bars(ctx context.Context, symbol string, q marketdata.BarQuery) ([]marketdata.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span, err := parseRange(q.Range)
	if err != nil {
		return nil, err
	}
	end := a.now()
	start := end.Add(-span)

	raw, err := a.bars(&chart.Params{
		Symbol:     symbol,
		Start:      datetime.New(&start),
		End:        datetime.New(&end),
		Interval:   datetime.Interval(q.Interval),
		IncludeExt: q.PrePost,
	})
	if err != nil {
		return nil, fmt.Errorf("financego bars %s %s: %w", symbol, q, err)
	}
	if len(raw) == 0 {
		return nil, marketdata.ErrNoData
	}

	out := make([]marketdata.Bar, 0, len(raw))
	for _, b := range raw {
		if b == nil {
			continue
		}
		c, _ := b.Close.Float64()
		out = append(out, marketdata.Bar{
			Time:  time.Unix(int64(b.Timestamp), 0).UTC(),
			Close: marketdata.Float(c),
		})
	}
	return out, nil
}

func collectBars(p *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(p)
	var out []*finance.ChartBar
	for iter.Next() {
		out = append(out, iter.Bar())
	}
	return out, iter.Err()
}

// parseRange accepts the "<n>d" ranges used by bar queries.
func parseRange(r string) (time.Duration, error) {
	days, ok := strings.CutSuffix(r, "d")
	if !ok {
		return 0, fmt.Errorf("unsupported range %q", r)
	}
	n, err := strconv.Atoi(days)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported range %q", r)
	}
	return time.Duration(n) * 24 * time.Hour, nil
}
