package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mensajemagico/internal/adapter/magicapi"
	"mensajemagico/internal/domain"
	"mensajemagico/internal/infra/config"
	"mensajemagico/internal/infra/logger"
	"mensajemagico/internal/infra/tracer"
	"mensajemagico/internal/security"
	"mensajemagico/internal/usecase"
	"mensajemagico/internal/usecase/advisory"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	filter   *security.ContentFilter
	advisor  *advisory.Engine
	governor *usecase.UsageGovernor
	cache    *usecase.ResponseCache
	orch     *usecase.Orchestrator
	closers  []func(context.Context) error
}

// newAppFromCommand loads the config named by --config and wires the app.
func newAppFromCommand(cmd *cobra.Command) (*app, error) {
	path, err := configPathFrom(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), path, cmd.ErrOrStderr())
}

// newApp wires config, logger, tracer, moderation, advisory rules, usage
// limits, cache, endpoint client and orchestrator, in that order.
func newApp(ctx context.Context, configPath string, diag io.Writer) (*app, error) {
	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, domain.WrapOp("config", err)
	}

	a := &app{cfg: cfg}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, domain.WrapOp("logger", err)
	}
	a.log = log
	a.closers = append(a.closers, func(context.Context) error { return logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer, tracer.WithWriter(diag))
	if err != nil {
		a.Close(ctx)
		return nil, domain.WrapOp("tracer", err)
	}
	a.closers = append(a.closers, tracerShutdown)

	// 3. Moderation & advisory rules
	a.filter = security.NewContentFilter(cfg.Moderation.ExtraTerms...)
	a.advisor, err = initAdvisory(cfg, log)
	if err != nil {
		a.Close(ctx)
		return nil, domain.WrapOp("advisory", err)
	}

	// 4. Usage limits & cache
	a.governor = usecase.NewUsageGovernor(cfg.Usage.Limits())
	a.cache = usecase.NewResponseCache()

	// 5. Endpoint client
	client, err := initClient(cfg, log)
	if err != nil {
		a.Close(ctx)
		return nil, domain.WrapOp("client", err)
	}

	// 6. Orchestrator
	a.orch = usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Client:             client,
		Filter:             a.filter,
		Governor:           a.governor,
		Cache:              a.cache,
		Logger:             log,
		MaxContextWords:    cfg.Generation.MaxContextWords,
		CooldownOnCacheHit: cfg.Generation.CooldownOnCacheHit,
		ReplayChunkSize:    cfg.Generation.ReplayChunkSize,
		ReplayDelay:        cfg.Generation.ReplayDelay,
	})

	return a, nil
}

// initAdvisory loads the configured rules file, or the embedded rules.
func initAdvisory(cfg *config.Config, log *slog.Logger) (*advisory.Engine, error) {
	engine, err := advisory.LoadEngine(cfg.Advisory.RulesFile)
	if err != nil {
		return nil, err
	}
	if cfg.Advisory.RulesFile != "" {
		log.Info("advisory rules loaded", "file", cfg.Advisory.RulesFile)
	}
	return engine, nil
}

// initClient builds the endpoint client, wrapped with a circuit breaker when
// enabled.
func initClient(cfg *config.Config, log *slog.Logger) (domain.MagicClient, error) {
	client, err := magicapi.NewClient(cfg.API, nil, log)
	if err != nil {
		return nil, err
	}

	cbCfg := cfg.API.CircuitBreaker
	if !cbCfg.Enabled {
		return client, nil
	}

	log.Debug("endpoint circuit breaker enabled",
		"max_failures", cbCfg.MaxFailures,
		"timeout", cbCfg.Timeout,
		"interval", cbCfg.Interval,
	)
	return magicapi.NewCircuitBreakerClient(client, cbCfg, log), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
