// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/thesisgrey/internal/log"
)

// Environment keys.
const (
	EnvListen           = "THESISGREY_LISTEN"
	EnvDataDir          = "THESISGREY_DATA_DIR"
	EnvShutdownTimeout  = "THESISGREY_SHUTDOWN_TIMEOUT"
	EnvStoreBackend     = "THESISGREY_STORE_BACKEND"
	EnvStorePath        = "THESISGREY_STORE_PATH"
	EnvStoreDSN         = "THESISGREY_STORE_DSN"
	EnvLogLevel         = "THESISGREY_LOG_LEVEL"
	EnvLogService       = "THESISGREY_LOG_SERVICE"
	EnvRateLimitEnabled = "THESISGREY_RATELIMIT_ENABLED"
	EnvRateLimitCreate  = "THESISGREY_RATELIMIT_CREATE_LIMIT"
	EnvRateLimitMutate  = "THESISGREY_RATELIMIT_MUTATE_LIMIT"
	EnvRateLimitHTTP    = "THESISGREY_RATELIMIT_HTTP_LIMIT"
	EnvRedisAddr        = "THESISGREY_REDIS_ADDR"
	EnvRedisPassword    = "THESISGREY_REDIS_PASSWORD"
	EnvRedisDB          = "THESISGREY_REDIS_DB"
	EnvTracingEnabled   = "THESISGREY_TRACING_ENABLED"
	EnvTracingExporter  = "THESISGREY_TRACING_EXPORTER"
	EnvTracingEndpoint  = "THESISGREY_TRACING_ENDPOINT"
	EnvTracingSampling  = "THESISGREY_TRACING_SAMPLING_RATE"
	EnvMetricsEnabled   = "THESISGREY_METRICS_ENABLED"
)

// ParseString reads key from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev.Bool("sensitive", true)
	} else {
		ev.Str("value", value)
	}
	ev.Msg("using environment variable")
	return value
}

// ParseInt reads an integer, falling back to defaultValue on absence or parse errors.
func ParseInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		warnInvalid(key, v, "integer")
		return defaultValue
	}
	return i
}

// ParseDuration reads a Go duration such as "90s".
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		warnInvalid(key, v, "duration")
		return defaultValue
	}
	return d
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	warnInvalid(key, v, "boolean")
	return defaultValue
}

// ParseFloat reads a float64.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		warnInvalid(key, v, "float")
		return defaultValue
	}
	return f
}

func warnInvalid(key, value, kind string) {
	logger := log.WithComponent("config")
	logger.Warn().
		Str("key", key).
		Str("value", value).
		Msgf("invalid %s in environment variable, using default", kind)
}
