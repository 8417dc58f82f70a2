package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"kinship-hq/sentinel/pkg/cli"
	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/escalation"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/moderation/rules"
	"kinship-hq/sentinel/pkg/pipeline"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/factory"
	"kinship-hq/sentinel/pkg/telemetry/health"
	"kinship-hq/sentinel/pkg/telemetry/logging"
	"kinship-hq/sentinel/pkg/telemetry/metrics"
	"kinship-hq/sentinel/pkg/telemetry/tracing"
)

// app holds the components shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	rules   *rules.Manager
	queue   *escalation.Queue
	service *pipeline.Service
	health  *health.Checker

	mu       sync.Mutex
	rulesErr error
}

type appOptions struct {
	// logOutput defaults to stderr.
	logOutput io.Writer

	// escalate wires the orchestrator into the service.
	escalate bool

	// async uses the background queue when the config asks for it.
	async bool
}

// loadConfig loads the process configuration from --config and the
// environment.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.WrapConfigError(err)
	}
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, cli.NewConfigError("", "configuration not initialized")
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger, err := logging.New(cfg.Telemetry.Logging, opts.logOutput)
	if err != nil {
		return nil, &cli.ConfigError{Field: "telemetry.logging", Message: err.Error(), Err: err}
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, nil),
	}

	a.tracer, err = tracing.New(ctx, cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a.store, err = factory.Open(ctx, cfg.Storage, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	classifier := moderation.NewClassifier(cfg.Moderation.Thresholds)
	if cfg.Moderation.RulesFile != "" {
		a.rules = rules.NewManager(cfg.Moderation.RulesFile, classifier.Matcher(), logger,
			rules.WithReloadHook(a.onRulesReload))
		if err := a.rules.Load(); err != nil {
			a.close(ctx)
			return nil, &cli.ConfigError{Field: "moderation.rules_file", Message: err.Error(), Err: err}
		}
	}

	svcOpts := []pipeline.Option{
		pipeline.WithMetrics(a.metrics),
		pipeline.WithTracer(a.tracer.Tracer()),
		pipeline.WithLogger(logger),
	}
	if opts.escalate && cfg.Escalation.Enabled {
		roster := escalation.NewRoster(a.store, cfg.Escalation.ReviewerRoles, cfg.Escalation.RosterCacheTTL)
		orch := escalation.NewOrchestrator(a.store, roster, cfg.Escalation,
			cfg.Moderation.Thresholds.StoredContentLength,
			escalation.WithLogger(logger),
			escalation.WithTracer(a.tracer.Tracer()),
			escalation.WithObserver(a.metrics),
		)
		svcOpts = append(svcOpts, pipeline.WithOrchestrator(orch))

		if opts.async && cfg.Escalation.Async {
			a.queue = escalation.NewQueue(orch, cfg.Escalation.Workers, cfg.Escalation.QueueSize, cfg.Escalation.EnqueueTimeout)
			svcOpts = append(svcOpts, pipeline.WithQueue(a.queue))
		}
	}
	a.service = pipeline.New(classifier, svcOpts...)

	a.health = health.New(0)
	a.health.RegisterCheck("store", a.store.Ping)
	if a.rules != nil {
		a.health.RegisterCheck("rules", a.rulesHealth)
	}

	return a, nil
}

// newStoreApp opens only the store, for commands that read or edit
// moderation data.
func newStoreApp(ctx context.Context, cfg *config.Config, logOutput io.Writer) (*app, error) {
	logger, err := logging.New(cfg.Telemetry.Logging, logOutput)
	if err != nil {
		return nil, &cli.ConfigError{Field: "telemetry.logging", Message: err.Error(), Err: err}
	}
	st, err := factory.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: st}, nil
}

func (a *app) onRulesReload(count int, err error) {
	a.mu.Lock()
	a.rulesErr = err
	a.mu.Unlock()
	if err == nil {
		a.metrics.SetRulesLoaded(count)
	}
}

// rulesHealth fails while the last reload of the rules file failed. The
// previously loaded rules keep serving in that state.
func (a *app) rulesHealth(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rulesErr != nil {
		return fmt.Errorf("last rules reload failed: %w", a.rulesErr)
	}
	return nil
}

// close drains the escalation queue before the store goes away.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if a.rules != nil {
		errs = append(errs, a.rules.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
