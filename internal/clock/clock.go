// Package clock supplies millisecond wall-clock readings to the throttle.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in milliseconds since the Unix epoch.
type Clock interface {
	NowMillis() int64
}

// System reads the wall clock.
type System struct{}

func (System) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Manual is a settable clock for tests and for replaying a check at a given instant.
type Manual struct {
	mu     sync.Mutex
	millis int64
}

func NewManual(millis int64) *Manual {
	return &Manual{millis: millis}
}

func (m *Manual) NowMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.millis
}

func (m *Manual) Set(millis int64) {
	m.mu.Lock()
	m.millis = millis
	m.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new reading.
func (m *Manual) Advance(d time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.millis += d.Milliseconds()
	return m.millis
}
