// Package state opens the durable store holding the last fetch time and the
// preview flag.
package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/bakkerme/experiments-refresh/internal/state/badgerstore"
	"github.com/bakkerme/experiments-refresh/internal/state/memory"
	"github.com/bakkerme/experiments-refresh/internal/state/sqlite"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Store is the persisted state plus the operations the CLI and API need.
type Store interface {
	core.PersistedState
	SetPreviewModeEnabled(ctx context.Context, enabled bool) error
	Snapshot(ctx context.Context) (core.FetchState, error)
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*badgerstore.Store)(nil)
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the SQLite DSN or the Badger directory.
	Path  string
	Table string
}

func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendSQLite:
		return sqlite.New(opts.Path, opts.Table)
	case BackendBadger:
		return badgerstore.New(opts.Path)
	case BackendMemory:
		return memory.New(core.FetchState{}), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q (expected sqlite, badger or memory)", opts.Backend)
	}
}
