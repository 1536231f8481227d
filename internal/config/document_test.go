package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	doc, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := doc.RefreshConfig().MinimumIntervalMinutes; got != 60 {
		t.Fatalf("expected default 60 minutes, got %d", got)
	}
	if doc.Schedule.Cron != "@every 5m" {
		t.Fatalf("expected default schedule, got %q", doc.Schedule.Cron)
	}
	if doc.State.Backend != "sqlite" {
		t.Fatalf("expected sqlite backend, got %q", doc.State.Backend)
	}
	if got := doc.State.ResolvedPath(); filepath.Base(got) != "state.db" {
		t.Fatalf("expected sqlite default path, got %q", got)
	}
}

func TestStatePathDefaultsPerBackend(t *testing.T) {
	doc := Default()
	doc.ApplyEnv(EnvConfig{StateBackend: "badger"})
	badgerPath := doc.State.ResolvedPath()
	if filepath.Base(badgerPath) != "badger" {
		t.Fatalf("expected badger directory default, got %q", badgerPath)
	}
	if badgerPath == DefaultStatePath("sqlite") {
		t.Fatalf("badger and sqlite must not share a default path")
	}
	if got := (StateSection{Backend: "memory"}).ResolvedPath(); got != "" {
		t.Fatalf("expected no path for memory backend, got %q", got)
	}
	if got := (StateSection{Backend: "badger", Path: "/srv/state"}).ResolvedPath(); got != "/srv/state" {
		t.Fatalf("expected explicit path to win, got %q", got)
	}
}

func TestValidateAcceptsIntervalsOfAtLeastAMinute(t *testing.T) {
	for _, raw := range []string{"1m", "90s", "0s", "1d"} {
		doc := Default()
		doc.Refresh.Interval = raw
		if err := doc.Validate(); err != nil {
			t.Fatalf("interval %q: unexpected error %v", raw, err)
		}
	}
}

func TestLoadParsesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresher.yaml")
	data := []byte(`
refresh:
  minimum_interval_minutes: 15
schedule:
  cron: "*/10 * * * *"
  timezone: "UTC"
state:
  backend: badger
  path: /tmp/refresher-badger
trigger:
  webhook:
    url: https://experiments.example.com/refresh
    timeout: 5s
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := doc.RefreshConfig().MinimumIntervalMinutes; got != 15 {
		t.Fatalf("expected 15 minutes, got %d", got)
	}
	if doc.State.Backend != "badger" || doc.State.Path != "/tmp/refresher-badger" {
		t.Fatalf("unexpected state section %+v", doc.State)
	}
	if doc.Trigger.Webhook == nil || doc.Trigger.Webhook.WebhookTimeout(time.Minute) != 5*time.Second {
		t.Fatalf("unexpected webhook section %+v", doc.Trigger.Webhook)
	}
}

func TestRefreshConfigPrefersInterval(t *testing.T) {
	cases := []struct {
		yaml string
		want int
	}{
		{"refresh:\n  interval: 1d\n", 24 * 60},
		{"refresh:\n  interval: 90m\n  minimum_interval_minutes: 5\n", 90},
		{"refresh:\n  minimum_interval_minutes: 0\n", 0},
		{"refresh:\n  interval: 90s\n", 1},
	}
	for _, tc := range cases {
		var doc Document
		if err := yaml.Unmarshal([]byte(tc.yaml), &doc); err != nil {
			t.Fatalf("unmarshal %q: %v", tc.yaml, err)
		}
		if got := doc.RefreshConfig().MinimumIntervalMinutes; got != tc.want {
			t.Fatalf("%q: expected %d minutes, got %d", tc.yaml, tc.want, got)
		}
	}

	var empty Document
	if got := empty.RefreshConfig().MinimumIntervalMinutes; got != 60 {
		t.Fatalf("expected default 60 for empty document, got %d", got)
	}
}

func TestValidateRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"interval": "refresh:\n  interval: soon\n",
		"sub-minute interval": "refresh:\n  interval: 30s\n",
		"cron":     "schedule:\n  cron: \"not a cron\"\n",
		"timezone": "schedule:\n  cron: \"@hourly\"\n  timezone: Mars/Olympus\n",
		"backend":  "state:\n  backend: etcd\n",
		"webhook":  "trigger:\n  webhook:\n    token: abc\n",
	}
	for name, raw := range cases {
		var doc Document
		if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		err := doc.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresher.yaml")
	if err := os.WriteFile(path, []byte("refresh: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	doc := Default()
	doc.ApplyEnv(EnvConfig{
		StateBackend: "memory",
		WebhookURL:   "https://hooks.example.com",
		WebhookToken: "tkn",
		APIAddr:      "127.0.0.1:9000",
	})
	if doc.State.Backend != "memory" {
		t.Fatalf("expected memory backend, got %q", doc.State.Backend)
	}
	if doc.Trigger.Webhook == nil || doc.Trigger.Webhook.URL != "https://hooks.example.com" || doc.Trigger.Webhook.Token != "tkn" {
		t.Fatalf("unexpected webhook %+v", doc.Trigger.Webhook)
	}
	if doc.API.Addr != "127.0.0.1:9000" {
		t.Fatalf("expected api addr override, got %q", doc.API.Addr)
	}
}
