package yahoo

import (
	"context"
	"fmt"
	"time"

	"marketbrief/internal/marketdata"
)

// Source exposes the chart API as a marketdata.Source.
type Source struct {
	client *ChartAPIClient
	now    func() time.Time
}

var _ marketdata.Source = (*Source)(nil)

// NewSource wraps client. The snapshot is read from chart metadata.
func NewSource(client *ChartAPIClient) *Source {
	return &Source{client: client, now: time.Now}
}

func (s *Source) Name() string { return "yahoo" }

// Snapshot reads the previous close from the chart metadata. The regular
// market price counts as live only while the regular session is open;
// outside it the price is the last close and extended-hours bars must be
// used instead.
func (s *Source) Snapshot(ctx context.Context, symbol string) (marketdata.Snapshot, error) {
	chart, err := s.client.GetChart(ctx, symbol, "1d", "1d", false)
	if err != nil {
		return marketdata.Snapshot{}, fmt.Errorf("yahoo snapshot %s: %w", symbol, err)
	}
	now := s.now().UTC()
	snap := marketdata.Snapshot{
		Symbol:      symbol,
		MarketState: chart.State(now),
		ReceivedAt:  now,
	}
	if snap.MarketState == marketdata.StateRegular {
		snap.Live = present(chart.RegularMarketPrice)
	}
	snap.PreviousClose = present(chart.PreviousClose)
	if snap.PreviousClose == nil {
		snap.PreviousClose = present(chart.ChartPreviousClose)
	}
	return snap, nil
}

// Bars returns the bar series selected by q. Null closes are kept as gaps.
func (s *Source) Bars(ctx context.Context, symbol string, q marketdata.BarQuery) ([]marketdata.Bar, error) {
	chart, err := s.client.GetChart(ctx, symbol, q.Range, q.Interval, q.PrePost)
	if err != nil {
		return nil, fmt.Errorf("yahoo bars %s %s: %w", symbol, q, err)
	}
	n := min(len(chart.Timestamps), len(chart.Closes))
	if n == 0 {
		return nil, marketdata.ErrNoData
	}
	bars := make([]marketdata.Bar, 0, n)
	for i := range n {
		bars = append(bars, marketdata.Bar{Time: chart.Timestamps[i], Close: chart.Closes[i]})
	}
	return bars, nil
}

func present(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return marketdata.Float(*v)
}
