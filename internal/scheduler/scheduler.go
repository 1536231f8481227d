// Package scheduler decides whether an experiments refresh is due.
//
// A refresh is due when at least the configured minimum interval has passed
// since the last recorded fetch, boundary included. Preview mode bypasses the
// interval entirely and records a last-fetch time of 0, so that leaving
// preview mode re-enables throttling from a neutral baseline.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/bakkerme/experiments-refresh/internal/clock"
	"github.com/bakkerme/experiments-refresh/internal/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bakkerme/experiments-refresh/internal/scheduler"

// previewTimestamp is recorded after every preview-mode fetch.
const previewTimestamp int64 = 0

type Scheduler struct {
	state   core.PersistedState
	trigger core.FetchTrigger
	clock   clock.Clock

	// mu serializes the read-decide-trigger-write sequence for shared instances.
	mu sync.Mutex
}

// New builds a scheduler. A nil clock falls back to the system clock.
func New(state core.PersistedState, trigger core.FetchTrigger, c clock.Clock) (*Scheduler, error) {
	if state == nil {
		return nil, fmt.Errorf("persisted state is required")
	}
	if trigger == nil {
		return nil, fmt.Errorf("fetch trigger is required")
	}
	if c == nil {
		c = clock.System{}
	}
	return &Scheduler{state: state, trigger: trigger, clock: c}, nil
}

// MaybeFetch triggers a fetch if one is due at nowMillis, or at the clock's
// current reading when nowMillis is nil. Errors come only from the persisted
// state; the trigger is fire-and-forget. When the timestamp write fails after
// the trigger fired, the fetch or preview decision is returned with the error.
func (s *Scheduler) MaybeFetch(ctx context.Context, cfg core.RefreshConfig, nowMillis *int64) (core.Decision, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scheduler.MaybeFetch")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now(nowMillis)
	threshold := cfg.Threshold()
	logger := core.LoggerFromContext(ctx).With("now_ms", now, "threshold_ms", threshold)
	span.SetAttributes(
		attribute.Int64("refresh.now_ms", now),
		attribute.Int64("refresh.threshold_ms", threshold),
	)

	preview, err := s.state.PreviewModeEnabled(ctx)
	if err != nil {
		return s.fail(span, core.DecisionSkip, fmt.Errorf("read preview mode: %w", err))
	}
	if preview {
		s.trigger.TriggerFetch(ctx)
		if err := s.state.SetLastFetchTimestamp(ctx, previewTimestamp); err != nil {
			return s.fail(span, core.DecisionPreview, fmt.Errorf("write last fetch timestamp: %w", err))
		}
		logger.Info("experiments fetch triggered", "decision", core.DecisionPreview)
		span.SetAttributes(attribute.String("refresh.decision", string(core.DecisionPreview)))
		return core.DecisionPreview, nil
	}

	last, err := s.state.LastFetchTimestamp(ctx)
	if err != nil {
		return s.fail(span, core.DecisionSkip, fmt.Errorf("read last fetch timestamp: %w", err))
	}
	elapsed := now - last
	logger = logger.With("last_fetch_ms", last, "elapsed_ms", elapsed)
	span.SetAttributes(attribute.Int64("refresh.elapsed_ms", elapsed))

	if elapsed < threshold {
		logger.Debug("experiments fetch throttled", "decision", core.DecisionSkip)
		span.SetAttributes(attribute.String("refresh.decision", string(core.DecisionSkip)))
		return core.DecisionSkip, nil
	}

	s.trigger.TriggerFetch(ctx)
	if err := s.state.SetLastFetchTimestamp(ctx, now); err != nil {
		return s.fail(span, core.DecisionFetch, fmt.Errorf("write last fetch timestamp: %w", err))
	}
	logger.Info("experiments fetch triggered", "decision", core.DecisionFetch)
	span.SetAttributes(attribute.String("refresh.decision", string(core.DecisionFetch)))
	return core.DecisionFetch, nil
}

func (s *Scheduler) now(nowMillis *int64) int64 {
	if nowMillis != nil {
		return *nowMillis
	}
	return s.clock.NowMillis()
}

// fail reports err alongside the decision already acted on. A write that
// fails after the trigger still returns the fetch decision.
func (s *Scheduler) fail(span trace.Span, decision core.Decision, err error) (core.Decision, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("refresh.decision", string(decision)))
	return decision, err
}

// Millis returns a pointer to v, for passing explicit timestamps to MaybeFetch.
func Millis(v int64) *int64 {
	return &v
}
