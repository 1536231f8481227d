package memory

import (
	"context"
	"sync"

	"github.com/bakkerme/experiments-refresh/internal/core"
)

// Store keeps fetch state in process memory. Every timestamp write is
// recorded so callers can assert how many writes a check produced.
type Store struct {
	mu     sync.Mutex
	state  core.FetchState
	writes []int64

	// Err, when set, is returned from every read and write.
	Err error
	// WriteErr, when set, is returned from writes only.
	WriteErr error
}

func New(initial core.FetchState) *Store {
	return &Store{state: initial}
}

func (s *Store) LastFetchTimestamp(ctx context.Context) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return s.state.LastFetchTimestampMillis, nil
}

func (s *Store) SetLastFetchTimestamp(ctx context.Context, millis int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.state.LastFetchTimestampMillis = millis
	s.writes = append(s.writes, millis)
	return nil
}

func (s *Store) PreviewModeEnabled(ctx context.Context) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return s.state.PreviewModeEnabled, nil
}

func (s *Store) SetPreviewModeEnabled(ctx context.Context, enabled bool) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.state.PreviewModeEnabled = enabled
	return nil
}

func (s *Store) Snapshot(ctx context.Context) (core.FetchState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.FetchState{}, s.Err
	}
	return s.state, nil
}

// Writes returns every timestamp written, oldest first.
func (s *Store) Writes() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.writes...)
}

// LastWrite returns the most recent written timestamp and whether any write happened.
func (s *Store) LastWrite() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writes) == 0 {
		return 0, false
	}
	return s.writes[len(s.writes)-1], true
}

func (s *Store) writeErr() error {
	if s.Err != nil {
		return s.Err
	}
	return s.WriteErr
}

func (s *Store) Close() error {
	return nil
}
