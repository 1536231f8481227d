package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := New(path, "")
	if err != nil {
		t.Fatalf("failed to init sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreDefaultsWhenEmpty(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "state.db"))

	state, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if state.LastFetchTimestampMillis != 0 || state.PreviewModeEnabled {
		t.Fatalf("expected zero state, got %+v", state)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "nested", "state.db"))
	ctx := context.Background()

	if err := store.SetLastFetchTimestamp(ctx, 7_260_000); err != nil {
		t.Fatalf("write timestamp failed: %v", err)
	}
	if err := store.SetPreviewModeEnabled(ctx, true); err != nil {
		t.Fatalf("write preview failed: %v", err)
	}
	// Last write wins.
	if err := store.SetLastFetchTimestamp(ctx, 0); err != nil {
		t.Fatalf("overwrite timestamp failed: %v", err)
	}

	last, err := store.LastFetchTimestamp(ctx)
	if err != nil {
		t.Fatalf("read timestamp failed: %v", err)
	}
	if last != 0 {
		t.Fatalf("expected 0, got %d", last)
	}
	preview, err := store.PreviewModeEnabled(ctx)
	if err != nil {
		t.Fatalf("read preview failed: %v", err)
	}
	if !preview {
		t.Fatalf("expected preview enabled")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := New(path, "")
	if err != nil {
		t.Fatalf("failed to init sqlite store: %v", err)
	}
	if err := store.SetLastFetchTimestamp(context.Background(), 3_600_000); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened := newTestStore(t, path)
	last, err := reopened.LastFetchTimestamp(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if last != 3_600_000 {
		t.Fatalf("expected 3600000 after reopen, got %d", last)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("  ", ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := New(filepath.Join(t.TempDir(), "state.db"), "bad-name;"); err == nil {
		t.Fatalf("expected error for invalid table name")
	}
}
