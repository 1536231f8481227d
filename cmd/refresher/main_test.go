package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseToggle(t *testing.T) {
	cases := map[string]bool{"on": true, "off": false, "true": true, "0": false}
	for raw, want := range cases {
		got, err := parseToggle(raw)
		if err != nil {
			t.Fatalf("parseToggle(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseToggle(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := parseToggle("maybe"); err == nil {
		t.Fatalf("expected error for unknown toggle")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG") != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
	if parseLevel("warning") != slog.LevelWarn {
		t.Fatalf("expected warn level")
	}
	if parseLevel("") != slog.LevelInfo {
		t.Fatalf("expected info level by default")
	}
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("refresher %v: %v", args, err)
	}
	return out.String()
}

func TestCheckCommandUsesPersistedState(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REFRESHER_STATE_BACKEND", "sqlite")
	t.Setenv("REFRESHER_STATE_PATH", filepath.Join(dir, "state.db"))
	config := filepath.Join(dir, "missing.yaml")

	if out := runCLI(t, "--config", config, "check", "--now", "3600000"); !strings.Contains(out, "fetch") {
		t.Fatalf("expected fetch decision, got %q", out)
	}
	if out := runCLI(t, "--config", config, "check", "--now", "3660000"); !strings.Contains(out, "skip") {
		t.Fatalf("expected skip decision, got %q", out)
	}
	out := runCLI(t, "--config", config, "status")
	if !strings.Contains(out, "(3600000 ms)") {
		t.Fatalf("expected recorded timestamp in status, got %q", out)
	}
}

func TestPreviewCommandTogglesMode(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REFRESHER_STATE_BACKEND", "sqlite")
	t.Setenv("REFRESHER_STATE_PATH", filepath.Join(dir, "state.db"))
	config := filepath.Join(dir, "missing.yaml")

	runCLI(t, "--config", config, "preview", "on")
	if out := runCLI(t, "--config", config, "check", "--now", "5"); !strings.Contains(out, "preview") {
		t.Fatalf("expected preview decision, got %q", out)
	}
	out := runCLI(t, "--config", config, "status")
	if !strings.Contains(out, "preview mode:     true") || !strings.Contains(out, "(0 ms)") {
		t.Fatalf("unexpected status %q", out)
	}
}
