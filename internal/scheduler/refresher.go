// Package scheduler runs the periodic guide refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/miraview/internal/config"
	"github.com/jmylchreest/miraview/internal/observability"
)

// ErrAlreadyStarted is returned by Start on a running Refresher.
var ErrAlreadyStarted = errors.New("refresher already started")

// Target is refreshed on every scheduled tick.
type Target interface {
	Refresh(ctx context.Context) error
}

// Refresher calls Target.Refresh on a cron schedule. A tick that arrives while
// the previous refresh is still running is skipped.
type Refresher struct {
	mu sync.Mutex

	target   Target
	schedule cron.Schedule
	spec     string
	onStart  bool
	logger   *slog.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher from the refresh configuration. An empty
// cron expression yields a refresher that only honours OnStart.
func NewRefresher(target Target, cfg config.RefreshConfig) (*Refresher, error) {
	r := &Refresher{
		target:  target,
		spec:    cfg.Cron,
		onStart: cfg.OnStart,
		logger:  slog.Default(),
	}
	if cfg.Cron != "" {
		schedule, err := config.ParseCron(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("parsing refresh schedule %q: %w", cfg.Cron, err)
		}
		r.schedule = schedule
	}
	return r, nil
}

// WithLogger sets a custom logger.
func (r *Refresher) WithLogger(logger *slog.Logger) *Refresher {
	r.logger = observability.WithComponent(logger, "scheduler")
	return r
}

// Start begins scheduling. Refreshes run with a context derived from ctx and
// cancelled by Stop.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		return ErrAlreadyStarted
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	if r.onStart {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.run("startup")
		}()
	}

	if r.schedule != nil {
		r.cron = cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
		r.cron.Schedule(r.schedule, cron.FuncJob(func() { r.run("cron") }))
		r.cron.Start()

		r.logger.Info("refresh scheduled",
			slog.String("cron", r.spec),
			slog.Time("next_run", r.schedule.Next(time.Now())),
		)
	}

	return nil
}

// Stop stops scheduling and waits for a running refresh to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	c := r.cron
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	r.wg.Wait()

	r.mu.Lock()
	r.ctx, r.cancel, r.cron = nil, nil, nil
	r.mu.Unlock()

	r.logger.Info("refresher stopped")
}

// NextRun returns the next scheduled refresh, or the zero time when no cron
// schedule is configured.
func (r *Refresher) NextRun(after time.Time) time.Time {
	if r.schedule == nil {
		return time.Time{}
	}
	return r.schedule.Next(after)
}

func (r *Refresher) run(trigger string) {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if err := r.target.Refresh(ctx); err != nil {
		r.logger.Warn("scheduled refresh failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
	}
}
