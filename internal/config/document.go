package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const appName = "experiments-refresh"

// Document represents the top-level structure of a refresher.yaml file.
type Document struct {
	Refresh  RefreshSection  `yaml:"refresh"`
	Schedule ScheduleSection `yaml:"schedule"`
	State    StateSection    `yaml:"state"`
	Trigger  TriggerSection  `yaml:"trigger"`
	API      APISection      `yaml:"api"`
}

// RefreshSection sets the minimum time between fetches, either in whole
// minutes or as a duration string ("90m", "1d"). Interval wins when both are set.
type RefreshSection struct {
	MinimumIntervalMinutes *int   `yaml:"minimum_interval_minutes,omitempty"`
	Interval               string `yaml:"interval,omitempty"`
}

// ScheduleSection controls how often the throttle is consulted.
type ScheduleSection struct {
	Cron         string `yaml:"cron"`
	Timezone     string `yaml:"timezone,omitempty"`
	CheckOnStart bool   `yaml:"check_on_start,omitempty"`
}

// StateSection picks the backend. An empty path resolves per backend.
type StateSection struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
	Table   string `yaml:"table,omitempty"`
}

type TriggerSection struct {
	Webhook *WebhookTrigger `yaml:"webhook,omitempty"`
	Log     bool            `yaml:"log,omitempty"`
}

type WebhookTrigger struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type APISection struct {
	Addr string `yaml:"addr"`
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "refresher.yaml")
}

// DefaultStatePath returns where backend keeps its data when state.path is
// unset: a sqlite file or a badger directory. Memory has no path.
func DefaultStatePath(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "badger":
		return filepath.Join(xdg.StateHome, appName, "badger")
	case "memory":
		return ""
	default:
		return filepath.Join(xdg.StateHome, appName, "state.db")
	}
}

// ResolvedPath returns the configured path, or the backend default.
func (s StateSection) ResolvedPath() string {
	if p := strings.TrimSpace(s.Path); p != "" {
		return p
	}
	return DefaultStatePath(s.Backend)
}

// Default returns the document used when no file exists.
func Default() *Document {
	minutes := core.DefaultMinimumIntervalMinutes
	return &Document{
		Refresh:  RefreshSection{MinimumIntervalMinutes: &minutes},
		Schedule: ScheduleSection{Cron: "@every 5m", CheckOnStart: true},
		State:    StateSection{Backend: "sqlite"},
		Trigger:  TriggerSection{Log: true},
		API:      APISection{Addr: ":8080"},
	}
}

// Load reads the document at path, falling back to defaults for a missing
// file and for any section left empty.
func Load(path string) (*Document, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	doc := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApplyEnv lets environment settings override the document.
func (d *Document) ApplyEnv(env EnvConfig) {
	if env.StateBackend != "" {
		d.State.Backend = env.StateBackend
	}
	if env.StatePath != "" {
		d.State.Path = env.StatePath
	}
	if env.WebhookURL != "" {
		if d.Trigger.Webhook == nil {
			d.Trigger.Webhook = &WebhookTrigger{}
		}
		d.Trigger.Webhook.URL = env.WebhookURL
	}
	if env.WebhookToken != "" && d.Trigger.Webhook != nil {
		d.Trigger.Webhook.Token = env.WebhookToken
	}
	if env.APIAddr != "" {
		d.API.Addr = env.APIAddr
	}
}

func (d *Document) Validate() error {
	if d.Refresh.Interval != "" {
		dur, err := parseDurationExtended(d.Refresh.Interval)
		if err != nil {
			return fmt.Errorf("refresh.interval: %w", err)
		}
		// Intervals are whole minutes; a sub-minute value would truncate to "always fetch".
		if dur > 0 && dur < time.Minute {
			return fmt.Errorf("refresh.interval %q is shorter than one minute", d.Refresh.Interval)
		}
	}
	if strings.TrimSpace(d.Schedule.Cron) != "" {
		if _, err := cron.ParseStandard(d.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	if d.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(d.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}
	switch strings.ToLower(d.State.Backend) {
	case "", "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("state.backend %q must be sqlite, badger or memory", d.State.Backend)
	}
	if w := d.Trigger.Webhook; w != nil {
		if strings.TrimSpace(w.URL) == "" {
			return fmt.Errorf("trigger.webhook.url is required")
		}
		if w.Timeout != "" {
			if _, err := parseDurationExtended(w.Timeout); err != nil {
				return fmt.Errorf("trigger.webhook.timeout: %w", err)
			}
		}
	}
	return nil
}

// RefreshConfig resolves the refresh section. Sub-minute remainders of an
// interval string are truncated.
func (d *Document) RefreshConfig() core.RefreshConfig {
	if d.Refresh.Interval != "" {
		if dur, err := parseDurationExtended(d.Refresh.Interval); err == nil {
			return core.RefreshConfig{MinimumIntervalMinutes: int(dur / time.Minute)}
		}
	}
	if d.Refresh.MinimumIntervalMinutes != nil {
		return core.RefreshConfig{MinimumIntervalMinutes: *d.Refresh.MinimumIntervalMinutes}
	}
	return core.RefreshConfig{MinimumIntervalMinutes: core.DefaultMinimumIntervalMinutes}
}

// WebhookTimeout returns the configured webhook timeout, or fallback.
func (w *WebhookTrigger) WebhookTimeout(fallback time.Duration) time.Duration {
	if w == nil || w.Timeout == "" {
		return fallback
	}
	d, err := parseDurationExtended(w.Timeout)
	if err != nil {
		return fallback
	}
	return d
}
