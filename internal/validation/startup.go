// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package validation runs pre-flight checks before the daemon serves traffic.
package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/thesisgrey/internal/config"
	"github.com/ManuGH/thesisgrey/internal/log"
)

const dependencyTimeout = 5 * time.Second

// Dependency is an external service the daemon needs at startup.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// PerformStartupChecks validates the data directory and every dependency.
// All checks run; the returned error joins each failure.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig, deps ...Dependency) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Int("dependencies", len(deps)).Msg("running pre-flight startup checks")

	var errs []error
	if cfg.Store.Backend == config.BackendSQLite {
		if err := checkDataDir(logger, cfg.DataDir); err != nil {
			errs = append(errs, fmt.Errorf("data directory check failed: %w", err))
		}
	}
	for _, d := range deps {
		if err := checkDependency(ctx, logger, d); err != nil {
			errs = append(errs, fmt.Errorf("%s check failed: %w", d.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(probe)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkDependency(ctx context.Context, logger zerolog.Logger, d Dependency) error {
	ctx, cancel := context.WithTimeout(ctx, dependencyTimeout)
	defer cancel()

	start := time.Now()
	if err := d.Check(ctx); err != nil {
		return err
	}
	logger.Info().
		Str("dependency", d.Name).
		Dur("latency", time.Since(start)).
		Msg("dependency is reachable")
	return nil
}
