// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store/storetest"
	"github.com/ManuGH/thesisgrey/internal/persistence/sqlite"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemoryStore()
	})
}

func TestSqliteStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestSqliteStore_MigratesToCurrentVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.db")
	st, err := store.NewSqliteStore(path)
	require.NoError(t, err)

	v, err := sqlite.SchemaVersion(t.Context(), st.DB)
	require.NoError(t, err)
	require.Equal(t, store.SchemaVersion(), v)

	// Reopen is idempotent.
	require.NoError(t, st.Close())
	st2, err := store.NewSqliteStore(path)
	require.NoError(t, err)
	require.NoError(t, st2.Close())

	rep, err := sqlite.Verify(t.Context(), path, sqlite.ModeFull)
	require.NoError(t, err)
	require.True(t, rep.OK(), "%v", rep.Problems())
}

func TestOpenStore_Backends(t *testing.T) {
	st, err := store.OpenStore("memory", "")
	require.NoError(t, err)
	require.IsType(t, &store.MemoryStore{}, st)

	st, err = store.OpenStore("", filepath.Join(t.TempDir(), "default.db"))
	require.NoError(t, err)
	require.IsType(t, &store.SqliteStore{}, st)
	require.NoError(t, st.Close())

	_, err = store.OpenStore("sqlite", "")
	require.Error(t, err)

	_, err = store.OpenStore("bolt", "x")
	require.ErrorIs(t, err, store.ErrUnknownBackend)
}
