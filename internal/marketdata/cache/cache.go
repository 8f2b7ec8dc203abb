package cache

import (
	"context"
	"sync"
	"time"

	"marketbrief/internal/marketdata"
)

// entry stores a cached snapshot or bar series with expiry.
type entry struct {
	expiresAt time.Time
	snapshot  marketdata.Snapshot
	bars      []marketdata.Bar
}

// Source caches snapshots and bar series per symbol for a TTL.
// Errors are never cached.
type Source struct {
	S        marketdata.Source
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry // key: kind|symbol|query
}

func (c *Source) Name() string { return c.S.Name() }

func (c *Source) Snapshot(ctx context.Context, symbol string) (marketdata.Snapshot, error) {
	if c.TTL <= 0 {
		return c.S.Snapshot(ctx, symbol)
	}
	key := "snap|" + symbol
	if e, ok := c.get(key); ok {
		return e.snapshot, nil
	}
	snap, err := c.S.Snapshot(ctx, symbol)
	if err != nil {
		return snap, err
	}
	c.put(key, entry{snapshot: snap})
	return snap, nil
}

func (c *Source) Bars(ctx context.Context, symbol string, q marketdata.BarQuery) ([]marketdata.Bar, error) {
	if c.TTL <= 0 {
		return c.S.Bars(ctx, symbol, q)
	}
	key := "bars|" + symbol + "|" + q.String()
	if e, ok := c.get(key); ok {
		return e.bars, nil
	}
	bars, err := c.S.Bars(ctx, symbol, q)
	if err != nil {
		return nil, err
	}
	c.put(key, entry{bars: bars})
	return bars, nil
}

func (c *Source) get(key string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !time.Now().Before(e.expiresAt) {
		return entry{}, false
	}
	return e, true
}

func (c *Source) put(key string, e entry) {
	now := time.Now()
	e.expiresAt = now.Add(c.TTL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = e

	if c.MaxItems <= 0 || len(c.items) <= c.MaxItems {
		return
	}
	// remove expired first, then arbitrary keys until under the limit
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
	for k := range c.items {
		if len(c.items) <= c.MaxItems {
			break
		}
		if k == key {
			continue
		}
		delete(c.items, k)
	}
}

// Len reports the number of cached entries, expired ones included.
func (c *Source) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
