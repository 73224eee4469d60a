// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_Pragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pragmas.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	require.Equal(t, 5000, timeout)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	require.Equal(t, 1, fk)
}

func TestMigrate_AppliesOnlyNewSteps(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "migrate.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	steps := []Migration{
		{Version: 1, SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY);"},
		{Version: 2, SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY);"},
	}
	v, err := Migrate(ctx, db, steps)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	// Re-running is a no-op; a non-idempotent step would fail otherwise.
	v, err = Migrate(ctx, db, steps)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	steps = append(steps, Migration{Version: 3, SQL: "ALTER TABLE a ADD COLUMN name TEXT;"})
	v, err = Migrate(ctx, db, steps)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	got, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 3, got)
}

func TestMigrate_RejectsUnorderedSteps(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "bad.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	_, err = Migrate(ctx, db, []Migration{
		{Version: 2, SQL: "CREATE TABLE a (id INTEGER);"},
		{Version: 1, SQL: "CREATE TABLE b (id INTEGER);"},
	})
	require.Error(t, err)

	v, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 0, v)
}

func TestVerify_HealthyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthy.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t (v) VALUES ('x')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	for _, mode := range []string{ModeQuick, ModeFull} {
		rep, err := Verify(t.Context(), path, mode)
		require.NoError(t, err)
		require.True(t, rep.OK(), "%s: %v", mode, rep.Problems())
	}

	_, err = Verify(t.Context(), path, "deep")
	require.ErrorContains(t, err, "unknown verify mode")
}

func TestVerify_FullModeFindsOrphans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orphans.db")
	// plain open: foreign keys stay off so the orphan can be written
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE sessions (id TEXT PRIMARY KEY)",
		"CREATE TABLE activities (id INTEGER PRIMARY KEY, session_id TEXT REFERENCES sessions(id))",
		"INSERT INTO activities (session_id) VALUES ('gone')",
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	rep, err := Verify(t.Context(), path, ModeQuick)
	require.NoError(t, err)
	require.True(t, rep.OK(), "quick mode skips foreign keys")

	rep, err = Verify(t.Context(), path, ModeFull)
	require.NoError(t, err)
	require.False(t, rep.OK())
	require.Len(t, rep.ForeignKeys, 1)
	require.Contains(t, rep.ForeignKeys[0], "activities row 1 references a missing sessions row")
}
