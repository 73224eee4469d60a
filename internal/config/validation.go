// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"github.com/ManuGH/thesisgrey/internal/validate"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Validate reports every invalid field at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("listenAddr", cfg.ListenAddr)
	v.PositiveDuration("shutdownTimeout", cfg.ShutdownTimeout)

	v.OneOf("store.backend", cfg.Store.Backend, []string{BackendSQLite, BackendMemory, BackendPostgres})
	switch cfg.Store.Backend {
	case BackendSQLite:
		v.Directory("dataDir", cfg.DataDir, false)
		v.NotEmpty("store.path", cfg.Store.Path)
	case BackendPostgres:
		if cfg.Store.DSN == "" {
			v.AddError("store.dsn", "required for the postgres backend", "")
		}
	}

	v.LogLevel("log.level", cfg.Log.Level)

	if cfg.RateLimit.Enabled {
		validateRule(v, "rateLimit.createSession", cfg.RateLimit.CreateSession)
		validateRule(v, "rateLimit.mutate", cfg.RateLimit.Mutate)
		v.NonNegative("rateLimit.http.requestLimit", cfg.RateLimit.HTTP.RequestLimit)
		if cfg.RateLimit.HTTP.RequestLimit > 0 {
			v.PositiveDuration("rateLimit.http.window", cfg.RateLimit.HTTP.Window)
		}
		if cfg.RateLimit.GlobalRPS < 0 {
			v.AddError("rateLimit.globalRPS", "cannot be negative", cfg.RateLimit.GlobalRPS)
		}
		if cfg.RateLimit.GlobalRPS > 0 {
			v.Positive("rateLimit.globalBurst", cfg.RateLimit.GlobalBurst)
		}
	}

	if cfg.Redis.Addr != "" {
		v.HostPort("redis.addr", cfg.Redis.Addr)
		v.Range("redis.db", cfg.Redis.DB, 0, 15)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
		v.FloatRange("tracing.samplingRate", cfg.Tracing.SamplingRate, 0, 1)
	}

	if cfg.Metrics.Enabled {
		v.NotEmpty("metrics.path", cfg.Metrics.Path)
	}

	return v.Err()
}

func validateRule(v *validate.Validator, field string, r RuleConfig) {
	v.NonNegative(field+".limit", r.Limit)
	if r.Limit > 0 {
		v.PositiveDuration(field+".window", r.Window)
	}
}
