package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// Daemon triggers named jobs once a day at a wall-clock time in its location.
type Daemon struct {
	cron   *gocron.Scheduler
	logger *zap.Logger

	mu    sync.RWMutex
	ctx   context.Context
	names []string
}

func NewDaemon(loc *time.Location, logger *zap.Logger) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}
	cron := gocron.NewScheduler(loc)
	cron.SingletonModeAll()
	return &Daemon{cron: cron, logger: logger, ctx: context.Background()}
}

// Add registers fn to run every day at the given time.
func (d *Daemon) Add(name string, at Clock, fn JobFunc) error {
	_, err := d.cron.Every(1).Day().At(at.String()).Tag(name).Do(func() {
		d.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s at %s: %w", name, at, err)
	}
	d.mu.Lock()
	d.names = append(d.names, name)
	d.mu.Unlock()
	d.logger.Info("job scheduled", zap.String("job", name), zap.String("at", at.String()))
	return nil
}

func (d *Daemon) run(name string, fn JobFunc) {
	d.mu.RLock()
	ctx := d.ctx
	d.mu.RUnlock()

	start := time.Now()
	if err := fn(ctx); err != nil {
		d.logger.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	d.logger.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// Jobs lists the registered job names, sorted.
func (d *Daemon) Jobs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := append([]string(nil), d.names...)
	sort.Strings(out)
	return out
}

// Running reports whether Run has started the scheduler.
func (d *Daemon) Running() bool { return d.cron.IsRunning() }

// RunNow triggers the named job immediately. The daemon must be running.
func (d *Daemon) RunNow(name string) error {
	if !d.cron.IsRunning() {
		return errors.New("daemon not running")
	}
	return d.cron.RunByTag(name)
}

// NextRun returns the next scheduled time of the named job.
func (d *Daemon) NextRun(name string) (time.Time, error) {
	jobs, err := d.cron.FindJobsByTag(name)
	if err != nil {
		return time.Time{}, err
	}
	return jobs[0].NextRun(), nil
}

// Run starts the scheduler, triggers the immediate jobs once and blocks
// until ctx is done. Jobs receive ctx. An unknown immediate job stops the
// scheduler and returns an error.
func (d *Daemon) Run(ctx context.Context, immediate ...string) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	d.cron.StartAsync()
	d.logger.Info("scheduler started", zap.Strings("jobs", d.Jobs()))
	for _, name := range d.Jobs() {
		if next, err := d.NextRun(name); err == nil {
			d.logger.Info("next run", zap.String("job", name), zap.Time("at", next))
		}
	}
	for _, name := range immediate {
		if err := d.RunNow(name); err != nil {
			d.cron.Stop()
			return fmt.Errorf("running %s now: %w", name, err)
		}
		d.logger.Info("triggered", zap.String("job", name))
	}
	<-ctx.Done()
	d.cron.Stop()
	d.logger.Info("scheduler stopped")
	return nil
}
