// Package ratelimit throttles calls to a market-data source.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketbrief/internal/marketdata"
)

// MinInterval spaces the start of consecutive calls by at least Interval.
// Each caller reserves the next free slot, so concurrent callers queue up
// instead of firing together.
type MinInterval struct {
	S        marketdata.Source
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.S.Name() }

func (m *MinInterval) Snapshot(ctx context.Context, symbol string) (marketdata.Snapshot, error) {
	if err := m.wait(ctx); err != nil {
		return marketdata.Snapshot{}, err
	}
	return m.S.Snapshot(ctx, symbol)
}

func (m *MinInterval) Bars(ctx context.Context, symbol string, q marketdata.BarQuery) ([]marketdata.Bar, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.S.Bars(ctx, symbol, q)
}

func (m *MinInterval) reserve() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	return slot.Sub(now)
}

func (m *MinInterval) wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return ctx.Err()
	}
	d := m.reserve()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
