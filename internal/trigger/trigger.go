// Package trigger provides FetchTrigger implementations.
package trigger

import (
	"context"

	"github.com/bakkerme/experiments-refresh/internal/core"
)

// Func adapts a plain function to core.FetchTrigger.
type Func func(ctx context.Context)

func (f Func) TriggerFetch(ctx context.Context) {
	if f != nil {
		f(ctx)
	}
}

// Log only records that a fetch was requested. Useful for dry runs.
type Log struct{}

func (Log) TriggerFetch(ctx context.Context) {
	core.LoggerFromContext(ctx).Info("experiments fetch requested", "trigger", "log")
}

// Multi fans a single trigger out to several triggers, in order.
type Multi []core.FetchTrigger

func (m Multi) TriggerFetch(ctx context.Context) {
	for _, t := range m {
		if t != nil {
			t.TriggerFetch(ctx)
		}
	}
}
