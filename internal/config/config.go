package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Symbols lists what the report covers. Futures and watchlist entries are
// "SYMBOL" or "Label|SYMBOL|CASH|PROXY".
type Symbols struct {
	Futures    []string `mapstructure:"futures"`
	Watchlist  []string `mapstructure:"watchlist"`
	Continuous []string `mapstructure:"continuous"`
}

type Telegram struct {
	Token      string `mapstructure:"token"`
	ChatID     string `mapstructure:"chat_id"`
	MaxRetries int    `mapstructure:"max_retries"`
	BackoffMS  int    `mapstructure:"backoff_ms"`
	MaxLen     int    `mapstructure:"max_len"`
}

type Source struct {
	Kind                 string `mapstructure:"kind"` // yahoo | financego
	YahooBaseURL         string `mapstructure:"yahoo_base_url"`
	YahooRegion          string `mapstructure:"yahoo_region"`
	RequestTimeoutSec    int    `mapstructure:"request_timeout_sec"`
	MaxRequestsPerMinute int    `mapstructure:"max_requests_per_minute"`
	Burst                int    `mapstructure:"burst"`
	MinRequestIntervalMS int    `mapstructure:"min_request_interval_ms"`
	CacheTTLSeconds      int    `mapstructure:"cache_ttl_sec"`
	CacheMaxItems        int    `mapstructure:"cache_max_items"`
	Parallelism          int    `mapstructure:"parallelism"`
}

type Schedule struct {
	WindowStart string `mapstructure:"window_start"`
	WindowEnd   string `mapstructure:"window_end"`
	PremarketAt string `mapstructure:"premarket_at"`
	GreetingAt  string `mapstructure:"greeting_at"`
	// Holidays skips runs on NYSE holidays and on Closures (YYYY-MM-DD).
	Holidays bool     `mapstructure:"holidays"`
	Closures []string `mapstructure:"closures"`
}

type State struct {
	File     string `mapstructure:"file"`
	RedisURL string `mapstructure:"redis_url"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Symbols  Symbols  `mapstructure:"symbols"`
	Telegram Telegram `mapstructure:"telegram"`
	Source   Source   `mapstructure:"source"`
	Schedule Schedule `mapstructure:"schedule"`
	State    State    `mapstructure:"state"`
	Log      Log      `mapstructure:"log"`
	Timezone string   `mapstructure:"timezone"`
	Locale   string   `mapstructure:"locale"`
	DryRun   bool     `mapstructure:"dry_run"`
	Force    bool     `mapstructure:"force"`
}

func Default() Config {
	return Config{
		Symbols: Symbols{
			Futures: []string{
				"S&P 500|ES=F|^GSPC",
				"Nasdaq 100|NQ=F|^NDX|QQQ",
				"Dow Jones|YM=F|^DJI",
				"Russell 2000|RTY=F|^RUT|IWM",
			},
			Watchlist:  []string{"AAPL", "MSFT", "NVDA", "META", "AMZN", "TSLA", "GOOGL", "BTC-USD", "ETH-USD"},
			Continuous: []string{"BTC-USD", "ETH-USD"},
		},
		Telegram: Telegram{
			MaxRetries: 3,
			BackoffMS:  1000,
			MaxLen:     3900,
		},
		Source: Source{
			Kind:                 "yahoo",
			YahooBaseURL:         "https://query1.finance.yahoo.com",
			YahooRegion:          "US",
			RequestTimeoutSec:    20,
			MaxRequestsPerMinute: 120,
			Burst:                5,
			CacheTTLSeconds:      60,
			CacheMaxItems:        512,
			Parallelism:          4,
		},
		Schedule: Schedule{
			WindowStart: "11:55",
			WindowEnd:   "12:15",
			PremarketAt: "12:00",
			GreetingAt:  "08:00",
			Holidays:    true,
		},
		State:    State{File: "premarket_state.json"},
		Log:      Log{Level: "info"},
		Timezone: "Europe/Madrid",
		Locale:   "en",
	}
}

// envBindings maps config keys to the environment variables read for them,
// in priority order.
var envBindings = map[string][]string{
	"symbols.futures":                {"FUTURES"},
	"symbols.watchlist":              {"WATCHLIST"},
	"symbols.continuous":             {"CONTINUOUS"},
	"telegram.token":                 {"INVESTX_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN", "BOT_TOKEN"},
	"telegram.chat_id":               {"CHAT_ID", "TELEGRAM_CHAT_ID"},
	"telegram.max_retries":           {"TELEGRAM_MAX_RETRIES"},
	"telegram.backoff_ms":            {"TELEGRAM_BACKOFF_MS"},
	"telegram.max_len":               {"TELEGRAM_MAX_LEN"},
	"source.kind":                    {"MARKET_SOURCE"},
	"source.yahoo_base_url":          {"YAHOO_BASE_URL"},
	"source.yahoo_region":            {"YAHOO_REGION"},
	"source.request_timeout_sec":     {"REQUEST_TIMEOUT_SEC"},
	"source.max_requests_per_minute": {"SOURCE_MAX_RPM"},
	"source.burst":                   {"SOURCE_BURST"},
	"source.min_request_interval_ms": {"SOURCE_MIN_INTERVAL_MS"},
	"source.cache_ttl_sec":           {"SOURCE_CACHE_TTL_SEC"},
	"source.cache_max_items":         {"SOURCE_CACHE_MAX_ITEMS"},
	"source.parallelism":             {"SOURCE_PARALLELISM"},
	"schedule.window_start":          {"PREMARKET_WINDOW_START"},
	"schedule.window_end":            {"PREMARKET_WINDOW_END"},
	"schedule.premarket_at":          {"PREMARKET_AT"},
	"schedule.greeting_at":           {"GREETING_AT"},
	"schedule.holidays":              {"MARKET_HOLIDAYS"},
	"schedule.closures":              {"HOLIDAYS"},
	"state.file":                     {"STATE_FILE"},
	"state.redis_url":                {"REDIS_URL"},
	"log.level":                      {"LOG_LEVEL"},
	"log.development":                {"LOG_DEVELOPMENT"},
	"timezone":                       {"LOCAL_TZ", "TIMEZONE"},
	"locale":                         {"LOCALE"},
	"dry_run":                        {"DRY_RUN"},
	"force":                          {"FORCE_SEND"},
}

// Load reads an optional JSON/YAML config file, then .env, then the
// environment. If path is empty, config.json is used when present.
func Load(path string) (Config, error) {
	cfg := Default()

	// A missing .env is normal in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, cfg)

	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return cfg, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.Symbols.Futures = splitCSV(cfg.Symbols.Futures...)
	cfg.Symbols.Watchlist = splitCSV(cfg.Symbols.Watchlist...)
	cfg.Symbols.Continuous = splitCSV(cfg.Symbols.Continuous...)
	cfg.Schedule.Closures = splitCSV(cfg.Schedule.Closures...)
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("symbols.futures", cfg.Symbols.Futures)
	v.SetDefault("symbols.watchlist", cfg.Symbols.Watchlist)
	v.SetDefault("symbols.continuous", cfg.Symbols.Continuous)
	v.SetDefault("telegram.max_retries", cfg.Telegram.MaxRetries)
	v.SetDefault("telegram.backoff_ms", cfg.Telegram.BackoffMS)
	v.SetDefault("telegram.max_len", cfg.Telegram.MaxLen)
	v.SetDefault("source.kind", cfg.Source.Kind)
	v.SetDefault("source.yahoo_base_url", cfg.Source.YahooBaseURL)
	v.SetDefault("source.yahoo_region", cfg.Source.YahooRegion)
	v.SetDefault("source.request_timeout_sec", cfg.Source.RequestTimeoutSec)
	v.SetDefault("source.max_requests_per_minute", cfg.Source.MaxRequestsPerMinute)
	v.SetDefault("source.burst", cfg.Source.Burst)
	v.SetDefault("source.min_request_interval_ms", cfg.Source.MinRequestIntervalMS)
	v.SetDefault("source.cache_ttl_sec", cfg.Source.CacheTTLSeconds)
	v.SetDefault("source.cache_max_items", cfg.Source.CacheMaxItems)
	v.SetDefault("source.parallelism", cfg.Source.Parallelism)
	v.SetDefault("schedule.window_start", cfg.Schedule.WindowStart)
	v.SetDefault("schedule.window_end", cfg.Schedule.WindowEnd)
	v.SetDefault("schedule.premarket_at", cfg.Schedule.PremarketAt)
	v.SetDefault("schedule.greeting_at", cfg.Schedule.GreetingAt)
	v.SetDefault("schedule.holidays", cfg.Schedule.Holidays)
	v.SetDefault("schedule.closures", cfg.Schedule.Closures)
	v.SetDefault("state.file", cfg.State.File)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("timezone", cfg.Timezone)
	v.SetDefault("locale", cfg.Locale)
	v.SetDefault("dry_run", cfg.DryRun)
	v.SetDefault("force", cfg.Force)
}

// MissingSettingError names a required setting and the variables that provide it.
type MissingSettingError struct {
	Key string
	Env []string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("missing setting %s (set %s)", e.Key, strings.Join(e.Env, " or "))
}

// Validate checks settings needed before any delivery. Credentials are only
// required when messages are actually sent.
func (c Config) Validate() error {
	if !c.DryRun {
		if c.Telegram.Token == "" {
			return &MissingSettingError{Key: "telegram.token", Env: envBindings["telegram.token"]}
		}
		if c.Telegram.ChatID == "" {
			return &MissingSettingError{Key: "telegram.chat_id", Env: envBindings["telegram.chat_id"]}
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case "yahoo", "financego":
	default:
		return fmt.Errorf("unknown market source %q", c.Source.Kind)
	}
	for key, hhmm := range map[string]string{
		"schedule.window_start": c.Schedule.WindowStart,
		"schedule.window_end":   c.Schedule.WindowEnd,
		"schedule.premarket_at": c.Schedule.PremarketAt,
		"schedule.greeting_at":  c.Schedule.GreetingAt,
	} {
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return fmt.Errorf("%s: invalid time %q", key, hhmm)
		}
	}
	return nil
}

// Location loads the configured IANA zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (t Telegram) Backoff() time.Duration { return time.Duration(t.BackoffMS) * time.Millisecond }

func (s Source) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

func (s Source) MinInterval() time.Duration {
	return time.Duration(s.MinRequestIntervalMS) * time.Millisecond
}

func (s Source) CacheTTL() time.Duration { return time.Duration(s.CacheTTLSeconds) * time.Second }

// splitCSV flattens comma-separated entries, trimming blanks and upper-casing
// symbols. The label of a "Label|SYMBOL|..." entry keeps its case.
func splitCSV(in ...string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			fields := strings.Split(p, "|")
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
				if i > 0 || len(fields) == 1 {
					fields[i] = strings.ToUpper(fields[i])
				}
			}
			out = append(out, strings.Join(fields, "|"))
		}
	}
	return out
}
