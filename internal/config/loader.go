// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the daemon configuration.
//
// Precedence is ENV > file > defaults. The file is optional; unknown keys in
// it are rejected.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/thesisgrey/internal/log"
)

const defaultStoreFile = "thesisgrey.db"

// Loader resolves the configuration from its three sources.
type Loader struct {
	configPath string
	version    string

	// ConsumedEnvKeys records every environment key that was read, set or not.
	ConsumedEnvKeys map[string]struct{}
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load returns the validated configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.mergeFile(&cfg); err != nil {
			return cfg, err
		}
	}

	l.mergeEnv(&cfg)

	if cfg.DataDir != "" {
		abs, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return cfg, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = abs
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, defaultStoreFile)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	logger := log.WithComponent("config")
	logger.Info().
		Str("file", l.configPath).
		Str("listen", cfg.ListenAddr).
		Str("store_backend", cfg.Store.Backend).
		Bool("redis", cfg.Redis.Addr != "").
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Int("env_keys", len(l.ConsumedEnvKeys)).
		Msg("configuration loaded")
	return cfg, nil
}

// mergeFile decodes the YAML file strictly on top of cfg.
func (l *Loader) mergeFile(cfg *AppConfig) error {
	ext := strings.ToLower(filepath.Ext(l.configPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format %q (want .yaml or .yml)", ext)
	}

	// #nosec G304 -- path comes from the operator
	f, err := os.Open(l.configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", l.configPath, err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: multiple documents are not supported", l.configPath)
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvListen, cfg.ListenAddr)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.ShutdownTimeout)

	cfg.Store.Backend = strings.ToLower(l.envString(EnvStoreBackend, cfg.Store.Backend))
	cfg.Store.Path = l.envString(EnvStorePath, cfg.Store.Path)
	cfg.Store.DSN = l.envString(EnvStoreDSN, cfg.Store.DSN)

	cfg.Log.Level = strings.ToLower(l.envString(EnvLogLevel, cfg.Log.Level))
	cfg.Log.Service = l.envString(EnvLogService, cfg.Log.Service)

	cfg.RateLimit.Enabled = l.envBool(EnvRateLimitEnabled, cfg.RateLimit.Enabled)
	cfg.RateLimit.CreateSession.Limit = l.envInt(EnvRateLimitCreate, cfg.RateLimit.CreateSession.Limit)
	cfg.RateLimit.Mutate.Limit = l.envInt(EnvRateLimitMutate, cfg.RateLimit.Mutate.Limit)
	cfg.RateLimit.HTTP.RequestLimit = l.envInt(EnvRateLimitHTTP, cfg.RateLimit.HTTP.RequestLimit)

	cfg.Redis.Addr = l.envString(EnvRedisAddr, cfg.Redis.Addr)
	cfg.Redis.Password = l.envString(EnvRedisPassword, cfg.Redis.Password)
	cfg.Redis.DB = l.envInt(EnvRedisDB, cfg.Redis.DB)

	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = strings.ToLower(l.envString(EnvTracingExporter, cfg.Tracing.Exporter))
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Tracing.SamplingRate)

	cfg.Metrics.Enabled = l.envBool(EnvMetricsEnabled, cfg.Metrics.Enabled)
}

func (l *Loader) consume(key string) { l.ConsumedEnvKeys[key] = struct{}{} }

func (l *Loader) envString(key, def string) string {
	l.consume(key)
	return ParseString(key, def)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.consume(key)
	return ParseBool(key, def)
}

func (l *Loader) envInt(key string, def int) int {
	l.consume(key)
	return ParseInt(key, def)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.consume(key)
	return ParseFloat(key, def)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.consume(key)
	return ParseDuration(key, def)
}
