package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.OTel.ServiceName != "experiments-refresh" {
		t.Fatalf("unexpected service name %q", cfg.OTel.ServiceName)
	}
	if cfg.OTel.Protocol != "grpc" {
		t.Fatalf("unexpected protocol %q", cfg.OTel.Protocol)
	}
	if !cfg.OTel.Insecure {
		t.Fatalf("expected insecure default for empty endpoint")
	}
}

func TestLoadEnvParsesOverrides(t *testing.T) {
	t.Setenv("REFRESHER_HTTP_TIMEOUT", "1d")
	t.Setenv("REFRESHER_STATE_BACKEND", "badger")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector.example.com:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", " HTTP/protobuf ")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc,x-team=exp")
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "3")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.HTTPTimeout != 24*time.Hour {
		t.Fatalf("expected 24h timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.StateBackend != "badger" {
		t.Fatalf("expected badger backend, got %q", cfg.StateBackend)
	}
	if cfg.OTel.Protocol != "http/protobuf" {
		t.Fatalf("unexpected protocol %q", cfg.OTel.Protocol)
	}
	if cfg.OTel.Insecure {
		t.Fatalf("expected secure transport for https endpoint")
	}
	if cfg.OTel.Headers["x-api-key"] != "abc" || cfg.OTel.Headers["x-team"] != "exp" {
		t.Fatalf("unexpected headers %v", cfg.OTel.Headers)
	}
	if cfg.OTel.SampleRatio != 1 {
		t.Fatalf("expected clamped ratio 1, got %v", cfg.OTel.SampleRatio)
	}
}

func TestLoadEnvInsecureOverride(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.OTel.Insecure {
		t.Fatalf("expected explicit insecure=false to win")
	}
}

func TestLoadEnvError(t *testing.T) {
	t.Setenv("REFRESHER_HTTP_TIMEOUT", "eventually")
	_, err := LoadEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
