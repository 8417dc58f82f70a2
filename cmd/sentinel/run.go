package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"kinship-hq/sentinel/pkg/cli"
	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/server"
	"kinship-hq/sentinel/pkg/store/retention"
	"kinship-hq/sentinel/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Sentinel moderation server",
	Long: `Start the Sentinel moderation server with the specified configuration.

The server exposes the classification endpoint, the moderation record API,
health probes and Prometheus metrics.

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Override listen address
  sentinel run --listen 0.0.0.0:8090

  # Validate config without starting server
  sentinel run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		if _, err := logging.ParseLevel(runFlags.logLevel); err != nil {
			return cli.NewConfigError("log-level", err.Error())
		}
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.WrapConfigError(err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{escalate: true, async: true})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			a.logger.Error("failed to release resources", "error", err)
		}
	}()
	slog.SetDefault(a.logger)

	if a.rules != nil && cfg.Moderation.WatchRules {
		go func() {
			if err := a.rules.Watch(ctx, cfg.Moderation.WatchDebounce); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("rules watcher stopped", "error", err)
			}
		}()
	}

	scheduler, err := startRetention(ctx, a)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	srv := server.New(cfg.Server, cfg.Telemetry.Metrics.Path, server.Deps{
		Service: a.service,
		Store:   a.store,
		Health:  a.health,
		Metrics: a.metrics,
		Tracer:  a.tracer,
		Logger:  a.logger,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})

	printBanner(out, a)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// startRetention schedules pruning and reports the last pass on /ready.
func startRetention(ctx context.Context, a *app) (*retention.Scheduler, error) {
	var (
		mu      sync.Mutex
		lastErr error
	)
	scheduler := retention.NewScheduler(retention.NewPruner(a.store, a.cfg.Storage.Retention, a.logger))
	scheduler.OnPrune(func(err error) {
		mu.Lock()
		lastErr = err
		mu.Unlock()
	})
	if err := scheduler.Start(ctx); err != nil {
		return nil, &cli.ConfigError{Field: "storage.retention.prune_schedule", Message: err.Error(), Err: err}
	}

	a.health.RegisterCheck("retention", func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if lastErr != nil {
			return fmt.Errorf("last prune failed: %w", lastErr)
		}
		return nil
	})
	return scheduler, nil
}

func printBanner(w io.Writer, a *app) {
	cfg := a.cfg
	fmt.Fprintf(w, "Sentinel v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(w, "✓ Configuration loaded")
	fmt.Fprintf(w, "✓ Store opened (%s)\n", cfg.Storage.Backend)
	if a.rules != nil {
		count, _ := a.rules.Status()
		fmt.Fprintf(w, "✓ Custom rules loaded (%d rules)\n", count)
	}
	switch {
	case a.queue != nil:
		fmt.Fprintf(w, "✓ Escalation enabled (async, %d workers)\n", cfg.Escalation.Workers)
	case cfg.Escalation.Enabled:
		fmt.Fprintln(w, "✓ Escalation enabled")
	default:
		fmt.Fprintln(w, "! Escalation disabled")
	}
	fmt.Fprintf(w, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")
}
