package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bakkerme/experiments-refresh/internal/core"
	_ "modernc.org/sqlite"
)

const (
	defaultTable = "settings"

	KeyLastFetchTime = "experiments.last_fetch_time_ms"
	KeyUsePreview    = "experiments.use_preview"
)

// Store persists fetch state as rows of a key/value settings table.
type Store struct {
	db         *sql.DB
	table      string
	tableIdent string
}

func New(dsn string, table string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if table == "" {
		table = defaultTable
	}
	tableIdent, err := quoteIdentifier(table)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &Store{
		db:         db,
		table:      table,
		tableIdent: tableIdent,
	}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) LastFetchTimestamp(ctx context.Context) (int64, error) {
	raw, ok, err := s.get(ctx, KeyLastFetchTime)
	if err != nil || !ok {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", KeyLastFetchTime, err)
	}
	return v, nil
}

func (s *Store) SetLastFetchTimestamp(ctx context.Context, millis int64) error {
	return s.set(ctx, KeyLastFetchTime, strconv.FormatInt(millis, 10))
}

func (s *Store) PreviewModeEnabled(ctx context.Context) (bool, error) {
	raw, ok, err := s.get(ctx, KeyUsePreview)
	if err != nil || !ok {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", KeyUsePreview, err)
	}
	return v, nil
}

func (s *Store) SetPreviewModeEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, KeyUsePreview, strconv.FormatBool(enabled))
}

func (s *Store) Snapshot(ctx context.Context) (core.FetchState, error) {
	last, err := s.LastFetchTimestamp(ctx)
	if err != nil {
		return core.FetchState{}, err
	}
	preview, err := s.PreviewModeEnabled(ctx)
	if err != nil {
		return core.FetchState{}, err
	}
	return core.FetchState{LastFetchTimestampMillis: last, PreviewModeEnabled: preview}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.tableIdent)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		fmt.Sprintf("INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at", s.tableIdent),
		key,
		value,
		time.Now().UTC(),
	)
	return err
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sqlite table: %w", err)
	}
	return nil
}

func ensureDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdentifier(identifier string) (string, error) {
	if !identifierPattern.MatchString(identifier) {
		return "", fmt.Errorf("sqlite table name %q must match %s", identifier, identifierPattern.String())
	}
	return `"` + identifier + `"`, nil
}
