package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bakkerme/experiments-refresh/internal/core"
)

// Checker is the throttle consulted on every tick.
type Checker interface {
	MaybeFetch(ctx context.Context, cfg core.RefreshConfig, nowMillis *int64) (core.Decision, error)
}

// Schedule produces check events until its context ends.
type Schedule interface {
	Start(ctx context.Context) (<-chan core.CheckEvent, error)
}

type Config struct {
	Refresh core.RefreshConfig
	// CheckOnStart runs one check before waiting for the first tick.
	CheckOnStart bool
}

type Runner struct {
	logger  *slog.Logger
	checker Checker
	config  Config
	wg      sync.WaitGroup
}

func New(logger *slog.Logger, checker Checker, cfg Config) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, checker: checker, config: cfg}
}

// Start consumes schedule events in the background until ctx is done.
func (r *Runner) Start(ctx context.Context, schedule Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule is required")
	}
	if r.checker == nil {
		return fmt.Errorf("checker is required")
	}
	events, err := schedule.Start(ctx)
	if err != nil {
		return err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.config.CheckOnStart {
			r.check(ctx, "startup")
		}
		r.listen(ctx, events)
	}()
	return nil
}

// Wait blocks until the background listener exits.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// RunOnce performs a single check. A nil nowMillis uses the checker's clock.
func (r *Runner) RunOnce(ctx context.Context, nowMillis *int64) (core.Decision, error) {
	if r.checker == nil {
		return core.DecisionSkip, fmt.Errorf("checker is required")
	}
	checkID := fmt.Sprintf("check-%d", time.Now().UnixNano())
	ctx = core.WithCheckID(ctx, checkID)
	ctx = core.WithLogger(ctx, r.logger)
	return r.checker.MaybeFetch(ctx, r.config.Refresh, nowMillis)
}

func (r *Runner) check(ctx context.Context, reason string) {
	decision, err := r.RunOnce(ctx, nil)
	if err != nil {
		r.logger.Error("refresh check failed", "reason", reason, "decision", decision, "error", err)
		return
	}
	r.logger.Debug("refresh check completed", "reason", reason, "decision", decision)
}

func (r *Runner) listen(ctx context.Context, events <-chan core.CheckEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.logger.Debug("schedule fired", "schedule", event.Name, "time", event.Timestamp)
			r.check(ctx, "schedule")
		}
	}
}
