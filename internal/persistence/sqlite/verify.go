// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Verification modes.
const (
	ModeQuick = "quick"
	ModeFull  = "full"
)

// Report is the outcome of Verify.
type Report struct {
	Path        string
	Mode        string
	Integrity   []string // rows from quick_check / integrity_check other than "ok"
	ForeignKeys []string // orphaned references, full mode only
}

// OK reports whether no problem was found.
func (r *Report) OK() bool { return len(r.Integrity) == 0 && len(r.ForeignKeys) == 0 }

// Problems returns every finding in print order.
func (r *Report) Problems() []string {
	return append(append([]string{}, r.Integrity...), r.ForeignKeys...)
}

// Verify opens path read-only and checks it. Quick mode runs PRAGMA
// quick_check; full mode runs integrity_check and foreign_key_check, which
// catches activity or history rows whose session or user has gone.
func Verify(ctx context.Context, path, mode string) (*Report, error) {
	if mode == "" {
		mode = ModeQuick
	}
	if mode != ModeQuick && mode != ModeFull {
		return nil, fmt.Errorf("unknown verify mode %q (want %s or %s)", mode, ModeQuick, ModeFull)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path))
	if err != nil {
		return nil, fmt.Errorf("open %s for verification: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	rep := &Report{Path: path, Mode: mode}
	pragma := "PRAGMA quick_check"
	if mode == ModeFull {
		pragma = "PRAGMA integrity_check"
	}
	rows, err := queryStrings(ctx, db, pragma)
	if err != nil {
		return nil, err
	}
	switch {
	case len(rows) == 0:
		rep.Integrity = []string{"integrity check returned no rows"}
	case len(rows) == 1 && strings.EqualFold(rows[0], "ok"):
	default:
		rep.Integrity = rows
	}

	if mode == ModeFull {
		if rep.ForeignKeys, err = foreignKeyViolations(ctx, db); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", query, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func foreignKeyViolations(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return nil, fmt.Errorf("foreign_key_check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return nil, fmt.Errorf("foreign_key_check: scan: %w", err)
		}
		out = append(out, fmt.Sprintf("%s row %d references a missing %s row", table, rowid.Int64, parent))
	}
	return out, rows.Err()
}
