// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ManuGH/thesisgrey/internal/config"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDataDir, dir)
	t.Setenv(config.EnvStoreBackend, config.BackendSQLite)
	return filepath.Join(dir, "thesisgrey.db")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "thesisgrey dev")
}

func TestMigrateThenVerify(t *testing.T) {
	path := sqliteEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date (sqlite)")
	assert.FileExists(t, path)

	out, err = run(t, "verify", "--mode", "full")
	require.NoError(t, err)
	assert.Contains(t, out, path+": ok (full)")
}

func TestVerify_RejectsNonSQLiteBackend(t *testing.T) {
	t.Setenv(config.EnvStoreBackend, config.BackendMemory)
	_, err := run(t, "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite backend")
}

func TestStatsRecompute(t *testing.T) {
	path := sqliteEnv(t)

	st, err := store.NewSqliteStore(path)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, st.PutUser(context.Background(), &model.User{ID: "alice", Username: "alice", CreatedAt: now}))
	require.NoError(t, st.PutSession(context.Background(), &model.Session{
		ID: "s-1", Title: "Review", Status: model.StatusDraft, Visibility: model.VisibilityPrivate,
		OwnerID: "alice", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, st.Close())

	out, err := run(t, "stats", "recompute", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "alice: 1 sessions")

	_, err = run(t, "stats", "recompute")
	assert.Error(t, err)
}

func TestConfigErrorsSurface(t *testing.T) {
	t.Setenv(config.EnvStoreBackend, "oracle")
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestOpenCounterStore(t *testing.T) {
	cfg := config.Defaults()

	mem, err := openCounterStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, mem.healthCheck)
	require.NoError(t, mem.close())

	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()
	rc, err := openCounterStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.close() })
	require.NotNil(t, rc.healthCheck)
	assert.NoError(t, rc.healthCheck(context.Background()))

	cfg.Redis.Addr = "127.0.0.1:1"
	_, err = openCounterStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestLimiterConfig(t *testing.T) {
	rl := config.Defaults().RateLimit
	got := limiterConfig(rl)
	assert.Equal(t, ratelimit.Rule{Limit: 20, Window: time.Hour}, got.Rules[ratelimit.ActionCreateSession])
	assert.Equal(t, ratelimit.Rule{Limit: 120, Window: time.Minute}, got.Rules[ratelimit.ActionMutateSession])
	assert.Equal(t, rate.Limit(50), got.GlobalRate)
	assert.Equal(t, 100, got.GlobalBurst)
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Backend = config.BackendMemory
	st, err := openStore(cfg)
	require.NoError(t, err)
	_, ok := st.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestConfigExampleRoundTrips(t *testing.T) {
	out, err := run(t, "config", "example")
	require.NoError(t, err)
	assert.Contains(t, out, "listenAddr: :8080")

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	body := strings.Replace(out, "dataDir: data", "dataDir: "+dir, 1)
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))

	out, err = run(t, "config", "validate", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, file+" is valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("store:\n  backend: mongo\n"), 0o600))

	_, err := run(t, "config", "validate", "-f", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")

	_, err = run(t, "config", "validate")
	assert.ErrorContains(t, err, "--file is required")
}

func TestConfigExampleWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "thesisgrey.yaml")
	out, err := run(t, "config", "example", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+file)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "backend: sqlite")
}
