package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bakkerme/experiments-refresh/internal/clock"
	"github.com/bakkerme/experiments-refresh/internal/config"
	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/bakkerme/experiments-refresh/internal/observability/otelx"
	"github.com/bakkerme/experiments-refresh/internal/scheduler"
	"github.com/bakkerme/experiments-refresh/internal/state"
	"github.com/bakkerme/experiments-refresh/internal/trigger"
)

// app holds everything a subcommand needs, built from env and the config document.
type app struct {
	logger    *slog.Logger
	env       config.EnvConfig
	doc       *config.Document
	store     state.Store
	webhook   *trigger.Webhook
	scheduler *scheduler.Scheduler
	shutdown  otelx.ShutdownFunc
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(env.LogLevel)}))
	slog.SetDefault(logger)

	if configPath == "" {
		configPath = env.ConfigPath
	}
	doc, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	doc.ApplyEnv(env)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	shutdown, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	store, err := state.Open(state.Options{
		Backend: doc.State.Backend,
		Path:    doc.State.ResolvedPath(),
		Table:   doc.State.Table,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open state: %w", err)
	}

	a := &app{
		logger:   logger,
		env:      env,
		doc:      doc,
		store:    store,
		shutdown: shutdown,
	}

	triggers := trigger.Multi{}
	if doc.Trigger.Log {
		triggers = append(triggers, trigger.Log{})
	}
	if w := doc.Trigger.Webhook; w != nil {
		hook, err := trigger.NewWebhook(w.URL, w.Token, env.UserAgent, w.WebhookTimeout(env.HTTPTimeout))
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.webhook = hook
		triggers = append(triggers, hook)
	}
	if len(triggers) == 0 {
		triggers = append(triggers, trigger.Log{})
	}

	a.scheduler, err = scheduler.New(store, triggers, clock.System{})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) refreshConfig() core.RefreshConfig {
	return a.doc.RefreshConfig()
}

// Close waits for in-flight webhook deliveries, then releases the store and tracer.
func (a *app) Close(ctx context.Context) {
	if a.webhook != nil {
		a.webhook.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("close state", "error", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.Error("shutdown otel", "error", err)
		}
	}
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
