// Command fetch resolves symbols through the quote fallback chains and prints
// one JSON object per symbol. Nothing is sent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketbrief/internal/app"
	"marketbrief/internal/config"
	"marketbrief/internal/httpx"
	"marketbrief/internal/logging"
	"marketbrief/internal/metric"
	"marketbrief/internal/quote"
)

type row struct {
	Symbol     string   `json:"symbol"`
	Label      string   `json:"label,omitempty"`
	Current    *float64 `json:"current"`
	Reference  *float64 `json:"reference"`
	ChangePct  *float64 `json:"change_pct"`
	Provenance []string `json:"provenance"`
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "config file (JSON or YAML)")
	symbolsCSV := flag.String("symbols", "", "comma-separated SYMBOL or Label|SYMBOL|CASH|PROXY entries, default: futures and watchlist")
	source := flag.String("source", "", "market source: yahoo or financego")
	timeout := flag.Int("timeout", 0, "request timeout seconds")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if *source != "" {
		cfg.Source.Kind = *source
	}
	if *timeout > 0 {
		cfg.Source.RequestTimeoutSec = *timeout
	}
	entries := slices.Concat(cfg.Symbols.Futures, cfg.Symbols.Watchlist)
	if *symbolsCSV != "" {
		entries = splitCSV(*symbolsCSV)
	}
	instruments, err := quote.ParseInstruments(entries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "symbols: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := app.NewSource(cfg.Source, httpx.New(cfg.Source.RequestTimeout()), logger)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		return 1
	}
	r := quote.NewResolver(src,
		quote.WithContinuous(cfg.Symbols.Continuous),
		quote.WithParallelism(cfg.Source.Parallelism),
		quote.WithLogger(logger),
	)

	start := time.Now()
	quotes := r.ResolveInstruments(ctx, instruments)

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	for _, q := range quotes {
		if err := enc.Encode(row{
			Symbol:     q.Symbol,
			Label:      q.Label,
			Current:    q.Current,
			Reference:  q.Reference,
			ChangePct:  metric.ChangePercent(q.Current, q.Reference),
			Provenance: q.Provenance,
		}); err != nil {
			logger.Error("write", zap.Error(err))
			return 1
		}
	}
	logger.Info("resolved", zap.Int("symbols", len(quotes)), zap.Duration("took", time.Since(start)))
	return 0
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
