package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bakkerme/experiments-refresh/internal/api"
	"github.com/bakkerme/experiments-refresh/internal/runner"
	"github.com/bakkerme/experiments-refresh/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "refresher",
		Short:         "Throttle remote experiments refreshes",
		Long:          "refresher decides whether an experiments refresh is due, triggers it, and records when it happened.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to refresher document")

	root.AddCommand(
		newCheckCmd(&configPath),
		newRunCmd(&configPath),
		newServeCmd(&configPath),
		newStatusCmd(&configPath),
		newPreviewCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "refresher %s (commit: %s)\n", version, commit)
			},
		},
	)
	return root
}

// withApp builds the app, runs fn, and closes the app afterwards.
func withApp(cmd *cobra.Command, configPath string, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func newCheckCmd(configPath *string) *cobra.Command {
	var now int64
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single refresh check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				var nowMillis *int64
				if cmd.Flags().Changed("now") {
					nowMillis = scheduler.Millis(now)
				}
				r := runner.New(a.logger, a.scheduler, runner.Config{Refresh: a.refreshConfig()})
				decision, err := r.RunOnce(ctx, nowMillis)
				if err != nil {
					if decision.Fetched() {
						fmt.Fprintln(cmd.OutOrStdout(), decision)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), decision)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&now, "now", 0, "evaluate at this time in ms since epoch instead of the wall clock")
	return cmd
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				r, err := startRunner(ctx, a)
				if err != nil {
					return err
				}
				<-ctx.Done()
				r.Wait()
				return nil
			})
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and check on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				r, err := startRunner(ctx, a)
				if err != nil {
					return err
				}
				if addr == "" {
					addr = a.doc.API.Addr
				}
				server := api.NewServer(a.logger, a.scheduler, a.store, a.refreshConfig())

				errCh := make(chan error, 1)
				go func() { errCh <- server.Start(addr) }()

				select {
				case err = <-errCh:
				case <-ctx.Done():
				}
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
					err = shutdownErr
				}
				stop()
				r.Wait()
				return err
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to api.addr)")
	return cmd
}

func startRunner(ctx context.Context, a *app) (*runner.Runner, error) {
	r := runner.New(a.logger, a.scheduler, runner.Config{
		Refresh:      a.refreshConfig(),
		CheckOnStart: a.doc.Schedule.CheckOnStart,
	})
	schedule := runner.NewCronSchedule(a.doc.Schedule.Cron, a.doc.Schedule.Timezone)
	if err := r.Start(ctx, schedule); err != nil {
		return nil, fmt.Errorf("start runner: %w", err)
	}
	a.logger.Info("runner started",
		"schedule", a.doc.Schedule.Cron,
		"minimum_interval_minutes", a.refreshConfig().MinimumIntervalMinutes,
	)
	return r, nil
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted fetch state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				st, err := a.store.Snapshot(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				last := "never"
				if st.LastFetchTimestampMillis != 0 {
					last = time.UnixMilli(st.LastFetchTimestampMillis).UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "last fetch:       %s (%d ms)\n", last, st.LastFetchTimestampMillis)
				fmt.Fprintf(out, "preview mode:     %t\n", st.PreviewModeEnabled)
				fmt.Fprintf(out, "minimum interval: %d minutes\n", a.refreshConfig().MinimumIntervalMinutes)
				return nil
			})
		},
	}
}

func newPreviewCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "preview on|off",
		Short:     "Enable or disable preview mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseToggle(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				if err := a.store.SetPreviewModeEnabled(ctx, enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "preview mode: %t\n", enabled)
				return nil
			})
		},
	}
}

func parseToggle(raw string) (bool, error) {
	switch raw {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v, nil
	}
	return false, errors.New("expected on or off")
}
