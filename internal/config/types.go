// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	DataDir         string        `yaml:"dataDir"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Redis     RedisConfig     `yaml:"redis"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	Version string `yaml:"-"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // sqlite|memory|postgres
	Path    string `yaml:"path"`    // sqlite file; defaults to <dataDir>/thesisgrey.db
	DSN     string `yaml:"dsn"`     // postgres only
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// RuleConfig is one per-user sliding-window limit. A zero limit disables it.
type RuleConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// HTTPLimitConfig is the per-IP ingress limit.
type HTTPLimitConfig struct {
	RequestLimit int           `yaml:"requestLimit"`
	Window       time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	Enabled       bool            `yaml:"enabled"`
	CreateSession RuleConfig      `yaml:"createSession"`
	Mutate        RuleConfig      `yaml:"mutate"`
	HTTP          HTTPLimitConfig `yaml:"http"`
	GlobalRPS     float64         `yaml:"globalRPS"`
	GlobalBurst   int             `yaml:"globalBurst"`
}

// RedisConfig enables the shared counter store when Addr is set.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc|http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:      ":8080",
		DataDir:         "data",
		ShutdownTimeout: 15 * time.Second,
		Store:           StoreConfig{Backend: "sqlite"},
		Log:             LogConfig{Level: "info", Service: "thesisgrey"},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			CreateSession: RuleConfig{Limit: 20, Window: time.Hour},
			Mutate:        RuleConfig{Limit: 120, Window: time.Minute},
			HTTP:          HTTPLimitConfig{RequestLimit: 300, Window: time.Minute},
			GlobalRPS:     50,
			GlobalBurst:   100,
		},
		Redis:   RedisConfig{KeyPrefix: "thesisgrey:"},
		Tracing: TracingConfig{Exporter: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.0, Environment: "production"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}
