package mock

import (
	"context"
	"sync"
)

// Trigger counts fetch triggers.
type Trigger struct {
	mu    sync.Mutex
	calls int
}

func (t *Trigger) TriggerFetch(ctx context.Context) {
	_ = ctx
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
}

func (t *Trigger) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Fetching reports whether a fetch was triggered since the last Reset.
func (t *Trigger) Fetching() bool {
	return t.Calls() > 0
}

func (t *Trigger) Reset() {
	t.mu.Lock()
	t.calls = 0
	t.mu.Unlock()
}
