package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"marketbrief/internal/marketdata"
)

// TokenBucket admits calls at a steady rate with bursts up to its capacity.
// It starts full.
type TokenBucket struct {
	lim *rate.Limiter
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 1e-7
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{lim: rate.NewLimiter(rate.Limit(tokensPerSecond), burst)}
}

// PerMinute builds a bucket from a requests-per-minute budget.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60, burst)
}

// Wait blocks until one token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.lim.Wait(ctx)
}

// TokenBucketSource gates every call of a Source with a token bucket.
type TokenBucketSource struct {
	S  marketdata.Source
	TB *TokenBucket
}

func (t *TokenBucketSource) Name() string { return t.S.Name() }

func (t *TokenBucketSource) Snapshot(ctx context.Context, symbol string) (marketdata.Snapshot, error) {
	if err := t.wait(ctx); err != nil {
		return marketdata.Snapshot{}, err
	}
	return t.S.Snapshot(ctx, symbol)
}

func (t *TokenBucketSource) Bars(ctx context.Context, symbol string, q marketdata.BarQuery) ([]marketdata.Bar, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.S.Bars(ctx, symbol, q)
}

func (t *TokenBucketSource) wait(ctx context.Context) error {
	if t.TB == nil {
		return nil
	}
	return t.TB.Wait(ctx)
}
