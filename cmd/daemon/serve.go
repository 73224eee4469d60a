// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/thesisgrey/internal/api"
	"github.com/ManuGH/thesisgrey/internal/api/middleware"
	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/config"
	"github.com/ManuGH/thesisgrey/internal/domain/session/manager"
	"github.com/ManuGH/thesisgrey/internal/domain/session/recovery"
	"github.com/ManuGH/thesisgrey/internal/health"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
	"github.com/ManuGH/thesisgrey/internal/telemetry"
	"github.com/ManuGH/thesisgrey/internal/validation"
	"github.com/ManuGH/thesisgrey/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.NewHolder(cfg, config.NewLoader(opts.configPath, version.Version)))
		},
	}
}

func serve(ctx context.Context, holder *config.Holder) error {
	cfg := holder.Get()
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "daemon.starting").
		Str("version", version.Version).
		Interface("config", cfg.Redacted()).
		Msg("starting thesisgrey")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewFuncChecker("store", true, health.StoreProbe(st)))
	deps := []validation.Dependency{{Name: "store", Check: health.StoreProbe(st)}}

	var limiter api.Limiter
	if cfg.RateLimit.Enabled {
		counters, err := openCounterStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = counters.close() }()
		if counters.healthCheck != nil {
			hm.RegisterChecker(health.NewFuncChecker("redis", false, counters.healthCheck))
			deps = append(deps, validation.Dependency{Name: "redis", Check: counters.healthCheck})
		}
		limiter = ratelimit.New(limiterConfig(cfg.RateLimit), counters)
	}

	if err := validation.PerformStartupChecks(ctx, cfg, deps...); err != nil {
		return err
	}

	auditor := audit.NewLogger()
	repo := manager.NewRepository(st, manager.WithAuditLogger(auditor))
	stack := middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         cfg.Metrics.Enabled,
		EnableLogging:         true,
	}
	if cfg.Tracing.Enabled {
		stack.TracingService = cfg.Log.Service
	}
	if cfg.RateLimit.Enabled {
		stack.RateLimitRequests = cfg.RateLimit.HTTP.RequestLimit
		stack.RateLimitWindow = cfg.RateLimit.HTTP.Window
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	srv := api.New(api.Deps{
		Sessions: repo,
		Recovery: recovery.NewHandler(repo, repo),
		Health:   hm,
		Limiter:  limiter,
		Audit:    auditor,
	}, api.Options{Stack: stack, MetricsPath: metricsPath}).HTTPServer(cfg.ListenAddr)

	holder.OnReload(func(c config.AppConfig) {
		xglog.Configure(xglog.Config{Level: c.Log.Level, Service: c.Log.Service, Version: c.Version})
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := holder.Watch(gctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch_failed").Msg("config hot reload disabled")
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str(xglog.FieldEvent, "http.listening").Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(xglog.FieldEvent, "daemon.stopping").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if terr := tp.Shutdown(shutdownCtx); terr != nil {
			logger.Warn().Err(terr).Msg("tracer shutdown failed")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("shutdown complete")
	return nil
}
