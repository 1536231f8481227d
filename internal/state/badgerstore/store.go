package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/dgraph-io/badger/v4"
)

const (
	keyLastFetchTime = "experiments/last_fetch_time_ms"
	keyUsePreview    = "experiments/use_preview"
)

// Store persists fetch state in a Badger key/value database with JSON values.
type Store struct {
	db *badger.DB
}

// New opens a Badger database rooted at path. An empty path opens an
// in-memory database that is discarded on Close.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) LastFetchTimestamp(ctx context.Context) (int64, error) {
	_ = ctx
	var v int64
	if err := s.get(keyLastFetchTime, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) SetLastFetchTimestamp(ctx context.Context, millis int64) error {
	_ = ctx
	return s.set(keyLastFetchTime, millis)
}

func (s *Store) PreviewModeEnabled(ctx context.Context) (bool, error) {
	_ = ctx
	var v bool
	if err := s.get(keyUsePreview, &v); err != nil {
		return false, err
	}
	return v, nil
}

func (s *Store) SetPreviewModeEnabled(ctx context.Context, enabled bool) error {
	_ = ctx
	return s.set(keyUsePreview, enabled)
}

func (s *Store) Snapshot(ctx context.Context) (core.FetchState, error) {
	_ = ctx
	var state core.FetchState
	err := s.db.View(func(txn *badger.Txn) error {
		if err := readJSON(txn, keyLastFetchTime, &state.LastFetchTimestampMillis); err != nil {
			return err
		}
		return readJSON(txn, keyUsePreview, &state.PreviewModeEnabled)
	})
	if err != nil {
		return core.FetchState{}, err
	}
	return state, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get leaves value untouched when the key has never been written.
func (s *Store) get(key string, value interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, key, value)
	})
}

func readJSON(txn *badger.Txn, key string, value interface{}) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, value); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}
