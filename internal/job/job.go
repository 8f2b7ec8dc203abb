// Package job implements the scheduled runs: the pre-market report and the
// morning greeting.
package job

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketbrief/internal/aggregate"
	"marketbrief/internal/notify"
	"marketbrief/internal/quote"
	"marketbrief/internal/report"
	"marketbrief/internal/schedule"
	"marketbrief/internal/state"
)

const (
	PremarketJob = "premarket"
	GreetingJob  = "greeting"
)

// Options alter a single run.
type Options struct {
	// Force skips the trading-day, window and already-sent guards and does
	// not record a marker.
	Force bool
	// Body replaces the generated report.
	Body string
}

// Resolver is the part of quote.Resolver used by the jobs.
type Resolver interface {
	ResolveInstruments(ctx context.Context, ins []quote.Instrument) []quote.Quote
}

// Premarket sends the futures and watchlist report once per local day.
type Premarket struct {
	Resolver  Resolver
	Notifier  notify.Notifier
	Store     state.Store
	Formatter *report.Formatter
	Futures   []quote.Instrument
	Watchlist []quote.Instrument
	Window    schedule.Window
	Calendar  *schedule.Calendar
	Location  *time.Location
	MaxLen    int
	DryRun    bool
	Logger    *zap.Logger
	Now       func() time.Time
}

func (p *Premarket) Run(ctx context.Context, opts Options) error {
	log := runLogger(p.Logger, PremarketJob)
	now := localNow(p.Now, p.Location)

	if !opts.Force {
		if reason := p.Calendar.Closed(now); reason != "" {
			log.Info("skipping: market closed",
				zap.String("reason", reason),
				zap.String("day", now.Format(state.DateLayout)))
			return nil
		}
		if !p.Window.Contains(now) {
			log.Info("skipping: outside window",
				zap.String("window", p.Window.String()),
				zap.String("now", now.Format("15:04")))
			return nil
		}
		sent, err := p.Store.AlreadySent(ctx, PremarketJob, now)
		if err != nil {
			log.Warn("reading sent marker", zap.Error(err))
		} else if sent {
			log.Info("skipping: already sent today", zap.String("day", now.Format(state.DateLayout)))
			return nil
		}
	}

	chunks := []string{opts.Body}
	if opts.Body == "" {
		chunks = p.build(ctx, log, now).Chunks(p.MaxLen)
	}
	for i, chunk := range chunks {
		if err := p.Notifier.Send(ctx, chunk); err != nil {
			return fmt.Errorf("sending chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	log.Info("report sent", zap.Int("chunks", len(chunks)), zap.Bool("forced", opts.Force))

	if opts.Force || p.DryRun {
		return nil
	}
	if err := p.Store.MarkSent(ctx, PremarketJob, now); err != nil {
		return fmt.Errorf("marking sent: %w", err)
	}
	return nil
}

func (p *Premarket) build(ctx context.Context, log *zap.Logger, now time.Time) report.Report {
	futures := p.Resolver.ResolveInstruments(ctx, p.Futures)
	watchlist := p.Resolver.ResolveInstruments(ctx, p.Watchlist)

	for _, sc := range aggregate.Breakdown(slices.Concat(futures, watchlist)) {
		log.Debug("resolved", zap.String("source", sc.Source), zap.Int("count", sc.Count))
	}
	return p.Formatter.Premarket(now, futures, watchlist, aggregate.Interpretation(futures))
}

// Greeting sends the deterministic morning line on trading days.
type Greeting struct {
	Notifier notify.Notifier
	Location *time.Location
	Calendar *schedule.Calendar
	Logger   *zap.Logger
	Now      func() time.Time
}

func (g *Greeting) Run(ctx context.Context, opts Options) error {
	log := runLogger(g.Logger, GreetingJob)
	now := localNow(g.Now, g.Location)

	if reason := g.Calendar.Closed(now); reason != "" && !opts.Force {
		log.Info("skipping: market closed",
			zap.String("reason", reason),
			zap.String("day", now.Format(state.DateLayout)))
		return nil
	}
	text := opts.Body
	if text == "" {
		text = report.Greeting(now)
	}
	if err := g.Notifier.Send(ctx, text); err != nil {
		return fmt.Errorf("sending greeting: %w", err)
	}
	log.Info("greeting sent", zap.Int("index", report.GreetingIndex(now, report.GreetingCount())))
	return nil
}

func runLogger(logger *zap.Logger, job string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("job", job), zap.String("run_id", uuid.NewString()))
}

func localNow(now func() time.Time, loc *time.Location) time.Time {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}
