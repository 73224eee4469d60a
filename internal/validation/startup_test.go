// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/thesisgrey/internal/cache"
	"github.com/ManuGH/thesisgrey/internal/config"
)

func sqliteConfig(dir string) config.AppConfig {
	cfg := config.Defaults()
	cfg.DataDir = dir
	return cfg
}

func TestPerformStartupChecks_Passes(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	err = PerformStartupChecks(context.Background(), sqliteConfig(t.TempDir()),
		Dependency{Name: "redis", Check: rc.HealthCheck})
	assert.NoError(t, err)
}

func TestPerformStartupChecks_ReportsEveryFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err := PerformStartupChecks(context.Background(), sqliteConfig(file),
		Dependency{Name: "store", Check: func(context.Context) error { return errors.New("connection refused") }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
	assert.Contains(t, err.Error(), "store check failed: connection refused")
}

func TestPerformStartupChecks_MemoryBackendSkipsDataDir(t *testing.T) {
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "missing"))
	cfg.Store.Backend = config.BackendMemory
	assert.NoError(t, PerformStartupChecks(context.Background(), cfg))
}
