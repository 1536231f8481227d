package core

import (
	"context"
	"time"
)

const (
	// DefaultMinimumIntervalMinutes is the foreground refresh interval used when none is configured.
	DefaultMinimumIntervalMinutes = 60

	OneMinuteMillis int64 = 60 * 1000
	OneHourMillis   int64 = 60 * OneMinuteMillis
)

// RefreshConfig holds the minimum time between two triggered fetches.
// It is built once at startup and never mutated.
type RefreshConfig struct {
	MinimumIntervalMinutes int `json:"minimum_interval_minutes" yaml:"minimum_interval_minutes"`
}

// Threshold returns the minimum interval in milliseconds.
// Zero or negative intervals are not rejected; they mean "always fetch".
func (c RefreshConfig) Threshold() int64 {
	return int64(c.MinimumIntervalMinutes) * OneMinuteMillis
}

// Interval returns the minimum interval as a time.Duration.
func (c RefreshConfig) Interval() time.Duration {
	return time.Duration(c.MinimumIntervalMinutes) * time.Minute
}

// FetchState is the persisted record consulted on every check.
// A LastFetchTimestampMillis of 0 means "never fetched".
type FetchState struct {
	LastFetchTimestampMillis int64 `json:"last_fetch_ms" yaml:"last_fetch_ms"`
	PreviewModeEnabled       bool  `json:"preview_mode" yaml:"preview_mode"`
}

// Decision is the outcome of a single throttle check.
type Decision string

const (
	DecisionSkip    Decision = "skip"
	DecisionFetch   Decision = "fetch"
	DecisionPreview Decision = "preview"
)

// Fetched reports whether the decision triggered a fetch.
func (d Decision) Fetched() bool {
	return d == DecisionFetch || d == DecisionPreview
}

// FetchTrigger starts an experiments refresh. It is fire-and-forget:
// failures of the underlying fetch are the implementation's concern.
type FetchTrigger interface {
	TriggerFetch(ctx context.Context)
}

// PersistedState is the durable storage the throttle reads and writes.
type PersistedState interface {
	LastFetchTimestamp(ctx context.Context) (int64, error)
	SetLastFetchTimestamp(ctx context.Context, millis int64) error
	PreviewModeEnabled(ctx context.Context) (bool, error)
}

// CheckEvent represents a scheduled check firing.
type CheckEvent struct {
	Name      string
	Timestamp time.Time
}
