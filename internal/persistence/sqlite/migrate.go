// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one schema step. Version numbers must be strictly increasing.
type Migration struct {
	Version int
	SQL     string
}

// SchemaVersion reads PRAGMA user_version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite: read user_version: %w", err)
	}
	return v, nil
}

// Migrate applies every migration newer than the stored user_version inside a single
// transaction and returns the resulting version.
func Migrate(ctx context.Context, db *sql.DB, steps []Migration) (int, error) {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	target := current
	for _, m := range steps {
		if m.Version > target {
			target = m.Version
		}
	}
	if target == current {
		return current, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return current, err
	}
	defer func() { _ = tx.Rollback() }()

	last := 0
	for _, m := range steps {
		if m.Version <= last {
			return current, fmt.Errorf("sqlite: migration versions must increase (got %d after %d)", m.Version, last)
		}
		last = m.Version
		if m.Version <= current {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			return current, fmt.Errorf("sqlite: migration %d: %w", m.Version, err)
		}
	}

	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return current, err
	}
	if err := tx.Commit(); err != nil {
		return current, err
	}
	return target, nil
}
