// Command scheduler runs the premarket and greeting jobs daily at their
// configured local times until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"

	"marketbrief/internal/app"
	"marketbrief/internal/config"
	"marketbrief/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "config file (JSON or YAML)")
	dryRun := flag.Bool("dry-run", false, "print messages instead of sending them")
	runNow := flag.String("run-now", "", "comma-separated jobs to trigger once at startup: premarket, greeting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	cfg.DryRun = cfg.DryRun || *dryRun

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		return 1
	}
	defer func() { _ = a.Close() }()

	d, err := a.Daemon()
	if err != nil {
		logger.Error("scheduling failed", zap.Error(err))
		return 1
	}
	logger.Info("starting", zap.String("timezone", cfg.Timezone), zap.Bool("dry_run", cfg.DryRun))
	if err := d.Run(ctx, jobNames(*runNow)...); err != nil {
		logger.Error("scheduler failed", zap.Error(err))
		return 1
	}
	return 0
}

func jobNames(csv string) []string {
	var out []string
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
