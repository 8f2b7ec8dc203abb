// Package app builds the runtime graph from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"marketbrief/internal/config"
	"marketbrief/internal/httpx"
	"marketbrief/internal/job"
	"marketbrief/internal/marketdata"
	"marketbrief/internal/marketdata/cache"
	"marketbrief/internal/marketdata/financego"
	"marketbrief/internal/marketdata/ratelimit"
	"marketbrief/internal/marketdata/yahoo"
	"marketbrief/internal/notify"
	"marketbrief/internal/quote"
	"marketbrief/internal/report"
	"marketbrief/internal/schedule"
	"marketbrief/internal/state"
)

type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Location *time.Location
	Source   marketdata.Source
	Notifier notify.Notifier
	Store    state.Store

	console io.Writer
	closers []io.Closer

	futures     []quote.Instrument
	watchlist   []quote.Instrument
	window      schedule.Window
	premarketAt schedule.Clock
	greetingAt  schedule.Clock
	calendar    *schedule.Calendar
}

type Option func(*App)

// WithConsole sets where dry-run messages are printed. Defaults to stdout.
func WithConsole(w io.Writer) Option {
	return func(a *App) { a.console = w }
}

// New validates cfg and wires sources, delivery and state.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client := httpx.New(cfg.Source.RequestTimeout())
	a := &App{Config: cfg, Logger: logger, Location: loc, console: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.parseSchedule(); err != nil {
		return nil, err
	}
	if a.futures, err = quote.ParseInstruments(cfg.Symbols.Futures); err != nil {
		return nil, fmt.Errorf("symbols.futures: %w", err)
	}
	if a.watchlist, err = quote.ParseInstruments(cfg.Symbols.Watchlist); err != nil {
		return nil, fmt.Errorf("symbols.watchlist: %w", err)
	}
	if a.Source, err = NewSource(cfg.Source, client, logger); err != nil {
		return nil, err
	}
	if a.Notifier, err = a.newNotifier(client); err != nil {
		return nil, err
	}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) parseSchedule() error {
	sc := a.Config.Schedule
	var err error
	if a.window, err = schedule.ParseWindow(sc.WindowStart, sc.WindowEnd); err != nil {
		return fmt.Errorf("schedule window: %w", err)
	}
	if a.premarketAt, err = schedule.ParseClock(sc.PremarketAt); err != nil {
		return fmt.Errorf("schedule.premarket_at: %w", err)
	}
	if a.greetingAt, err = schedule.ParseClock(sc.GreetingAt); err != nil {
		return fmt.Errorf("schedule.greeting_at: %w", err)
	}
	if sc.Holidays {
		if a.calendar, err = schedule.NewCalendar(sc.Closures); err != nil {
			return fmt.Errorf("schedule.closures: %w", err)
		}
	}
	return nil
}

// NewSource builds the configured market-data source, wrapped by the rate
// limiter and the response cache. The token bucket wins over MinInterval
// when both are set.
func NewSource(cfg config.Source, client *httpx.Client, logger *zap.Logger) (marketdata.Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var src marketdata.Source
	switch cfg.Kind {
	case "yahoo":
		opts := []yahoo.ChartAPIClientOption{
			yahoo.WithBaseURL(cfg.YahooBaseURL),
			yahoo.WithHTTPClient(client),
		}
		if cfg.YahooRegion != "" {
			opts = append(opts, yahoo.WithQuery(url.Values{"region": {cfg.YahooRegion}}))
		}
		yc, err := yahoo.NewChartAPIClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("yahoo client: %w", err)
		}
		src = yahoo.NewSource(yc)
	case "financego":
		src = financego.New(financego.Config{HTTPClient: client.HTTP})
	default:
		return nil, fmt.Errorf("unknown market source %q", cfg.Kind)
	}

	if cfg.MaxRequestsPerMinute > 0 {
		src = &ratelimit.TokenBucketSource{S: src, TB: ratelimit.PerMinute(cfg.MaxRequestsPerMinute, cfg.Burst)}
	} else if cfg.MinRequestIntervalMS > 0 {
		src = &ratelimit.MinInterval{S: src, Interval: cfg.MinInterval()}
	}
	if cfg.CacheTTLSeconds > 0 {
		src = &cache.Source{S: src, TTL: cfg.CacheTTL(), MaxItems: cfg.CacheMaxItems}
	}
	logger.Debug("market source ready", zap.String("source", src.Name()))
	return src, nil
}

func (a *App) newNotifier(client *httpx.Client) (notify.Notifier, error) {
	if a.Config.DryRun {
		return &notify.Console{W: a.console}, nil
	}
	tg := a.Config.Telegram
	t, err := notify.NewTelegram(notify.TelegramConfig{
		Token:      tg.Token,
		ChatID:     tg.ChatID,
		MaxRetries: tg.MaxRetries,
		Backoff:    tg.Backoff(),
		MaxLen:     tg.MaxLen,
		HTTPClient: client.HTTP,
		Logger:     a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return t, nil
}

func (a *App) openStore(ctx context.Context) error {
	if url := a.Config.State.RedisURL; url != "" {
		rs, err := state.OpenRedis(ctx, url)
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}
		a.Store = rs
		a.closers = append(a.closers, rs)
		return nil
	}
	a.Store = &state.FileStore{Path: a.Config.State.File}
	return nil
}

// Premarket returns the report job bound to this app.
func (a *App) Premarket() *job.Premarket {
	cfg := a.Config
	maxLen := cfg.Telegram.MaxLen
	if maxLen <= 0 {
		maxLen = notify.DefaultMaxLen
	}
	return &job.Premarket{
		Resolver: quote.NewResolver(a.Source,
			quote.WithContinuous(cfg.Symbols.Continuous),
			quote.WithParallelism(cfg.Source.Parallelism),
			quote.WithLogger(a.Logger),
		),
		Notifier:  a.Notifier,
		Store:     a.Store,
		Formatter: report.NewFormatter(cfg.Locale),
		Futures:   a.futures,
		Watchlist: a.watchlist,
		Window:    a.window,
		Calendar:  a.calendar,
		Location:  a.Location,
		MaxLen:    maxLen,
		DryRun:    cfg.DryRun,
		Logger:    a.Logger,
	}
}

// Greeting returns the greeting job bound to this app.
func (a *App) Greeting() *job.Greeting {
	return &job.Greeting{Notifier: a.Notifier, Location: a.Location, Calendar: a.calendar, Logger: a.Logger}
}

// Daemon schedules both jobs at their configured times.
func (a *App) Daemon() (*schedule.Daemon, error) {
	d := schedule.NewDaemon(a.Location, a.Logger)
	pm, gr := a.Premarket(), a.Greeting()
	opts := job.Options{Force: a.Config.Force}

	if err := d.Add(job.PremarketJob, a.premarketAt, func(ctx context.Context) error {
		return pm.Run(ctx, opts)
	}); err != nil {
		return nil, err
	}
	if err := d.Add(job.GreetingJob, a.greetingAt, func(ctx context.Context) error {
		return gr.Run(ctx, opts)
	}); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
