package config

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type EnvConfig struct {
	ConfigPath   string        `env:"REFRESHER_CONFIG"`
	StateBackend string        `env:"REFRESHER_STATE_BACKEND"`
	StatePath    string        `env:"REFRESHER_STATE_PATH"`
	WebhookURL   string        `env:"REFRESHER_WEBHOOK_URL"`
	WebhookToken string        `env:"REFRESHER_WEBHOOK_TOKEN"`
	HTTPTimeout  time.Duration `env:"REFRESHER_HTTP_TIMEOUT" envDefault:"10s"`
	UserAgent    string        `env:"REFRESHER_USER_AGENT" envDefault:"experiments-refresh/0.1"`
	APIAddr      string        `env:"REFRESHER_API_ADDR"`
	LogLevel     string        `env:"REFRESHER_LOG_LEVEL" envDefault:"info"`
	OTel         OTelEnvConfig
}

type OTelEnvConfig struct {
	Enabled     bool              `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string            `env:"OTEL_SERVICE_NAME" envDefault:"experiments-refresh"`
	Endpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Protocol    string            `env:"OTEL_EXPORTER_OTLP_PROTOCOL" envDefault:"grpc"` // "grpc" or "http/protobuf"
	Headers     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envKeyValSeparator:"="`
	SampleRatio float64           `env:"OTEL_TRACES_SAMPLE_RATIO" envDefault:"1"`
	// InsecureOverride is nil unless OTEL_EXPORTER_OTLP_INSECURE is set.
	InsecureOverride *bool `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	Insecure         bool
}

// LoadEnv reads the process environment. Durations accept the d and w units
// in addition to Go's own.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	err := env.ParseWithOptions(&cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (interface{}, error) {
				return parseDurationExtended(v)
			},
		},
	})
	if err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.ConfigPath = strings.TrimSpace(cfg.ConfigPath)
	cfg.OTel.ServiceName = strings.TrimSpace(cfg.OTel.ServiceName)
	cfg.OTel.Endpoint = strings.TrimSpace(cfg.OTel.Endpoint)
	cfg.OTel.Protocol = strings.ToLower(strings.TrimSpace(cfg.OTel.Protocol))
	cfg.OTel.SampleRatio = clamp01(cfg.OTel.SampleRatio)
	if cfg.OTel.InsecureOverride != nil {
		cfg.OTel.Insecure = *cfg.OTel.InsecureOverride
	} else {
		cfg.OTel.Insecure = defaultInsecure(cfg.OTel.Endpoint)
	}
	return cfg, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
