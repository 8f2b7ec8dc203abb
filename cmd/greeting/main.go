// Command greeting sends the morning greeting on weekdays.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"

	"marketbrief/internal/app"
	"marketbrief/internal/config"
	"marketbrief/internal/job"
	"marketbrief/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "config file (JSON or YAML)")
	force := flag.Bool("force", false, "send on weekends too")
	dryRun := flag.Bool("dry-run", false, "print the greeting instead of sending it")
	tz := flag.String("tz", "", "IANA time zone, overrides LOCAL_TZ")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	cfg.DryRun = cfg.DryRun || *dryRun
	cfg.Force = cfg.Force || *force
	if *tz != "" {
		cfg.Timezone = *tz
	}

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

	if err := a.Greeting().Run(ctx, job.Options{Force: cfg.Force}); err != nil {
		logger.Error("greeting failed", zap.Error(err))
		return 1
	}
	return 0
}
