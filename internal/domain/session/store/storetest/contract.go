// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package storetest holds the behavioural contract every store backend must satisfy.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
)

// Factory returns a fresh, empty store. It must register its own cleanup.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("UniqueUsername", func(t *testing.T) { testUniqueUsername(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("Activities", func(t *testing.T) { testActivities(t, newStore(t)) })
	t.Run("StatusHistory", func(t *testing.T) { testHistory(t, newStore(t)) })
	t.Run("Archive", func(t *testing.T) { testArchive(t, newStore(t)) })
	t.Run("UserStats", func(t *testing.T) { testStats(t, newStore(t)) })
	t.Run("DeleteSessionCascades", func(t *testing.T) { testDeleteSessionCascade(t, newStore(t)) })
	t.Run("DeleteUserProtected", func(t *testing.T) { testDeleteUser(t, newStore(t)) })
	t.Run("AtomicRollback", func(t *testing.T) { testAtomicRollback(t, newStore(t)) })
}

// SeedUser stores a user with the given id.
func SeedUser(t *testing.T, st store.Tx, id string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Username: id, Email: id + "@example.org", CreatedAt: base}
	require.NoError(t, st.PutUser(context.Background(), u))
	return u
}

// SeedSession stores a draft session owned by owner.
func SeedSession(t *testing.T, st store.Tx, id, owner string, created time.Time) *model.Session {
	t.Helper()
	s := &model.Session{
		ID:         id,
		Title:      "Review " + id,
		Status:     model.StatusDraft,
		Visibility: model.VisibilityPrivate,
		OwnerID:    owner,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, st.PutSession(context.Background(), s))
	return s
}

func testUsers(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")

	got, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.org", got.Email)
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = st.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUniqueUsername(t *testing.T, st store.Store) {
	ctx := context.Background()
	alice := SeedUser(t, st, "alice")

	clash := &model.User{ID: "alice-2", Username: "alice", CreatedAt: base}
	require.ErrorIs(t, st.PutUser(ctx, clash), store.ErrDuplicate)
	_, err := st.GetUser(ctx, "alice-2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// rewriting a user under its own name is an update, not a clash
	alice.Email = "alice@new.example.org"
	require.NoError(t, st.PutUser(ctx, alice))
	got, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@new.example.org", got.Email)
}

func testSessions(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")
	SeedUser(t, st, "bob")

	err := st.PutSession(ctx, &model.Session{
		ID: "orphan", Title: "x", Status: model.StatusDraft, Visibility: model.VisibilityPrivate,
		OwnerID: "ghost", CreatedAt: base, UpdatedAt: base,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConstraint), "got %v", err)

	s1 := SeedSession(t, st, "s1", "alice", base)
	SeedSession(t, st, "s2", "alice", base.Add(time.Hour))
	SeedSession(t, st, "s3", "bob", base.Add(2*time.Hour))

	started := base.Add(30 * time.Minute)
	s1.Status = model.StatusExecuting
	s1.StartedAt = &started
	s1.UpdatedAt = started
	s1.Description = "updated"
	require.NoError(t, st.PutSession(ctx, s1))

	got, err := st.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusExecuting, got.Status)
	assert.Equal(t, "updated", got.Description)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Nil(t, got.CompletedAt)
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = st.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mine, err := st.QuerySessions(ctx, store.SessionFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "s2", mine[0].ID, "newest first")
	assert.Equal(t, "s1", mine[1].ID)

	executing, err := st.QuerySessions(ctx, store.SessionFilter{Statuses: []model.Status{model.StatusExecuting}})
	require.NoError(t, err)
	require.Len(t, executing, 1)
	assert.Equal(t, "s1", executing[0].ID)

	all, err := st.QuerySessions(ctx, store.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testActivities(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")
	SeedSession(t, st, "s1", "alice", base)
	SeedSession(t, st, "s2", "alice", base)

	add := func(id, session string, ty model.ActivityType, at time.Time) {
		require.NoError(t, st.AppendActivity(ctx, &model.Activity{
			ID: id, SessionID: session, Type: ty, Description: string(ty), UserID: "alice", CreatedAt: at,
			Metadata: map[string]any{"source": "contract"},
		}))
	}
	add("a1", "s1", model.ActivityCreated, base)
	add("a2", "s1", model.ActivityStatusChanged, base.Add(time.Minute))
	add("a3", "s1", model.ActivityStatusChanged, base.Add(time.Minute)) // same instant, inserted later
	add("a4", "s2", model.ActivityCreated, base.Add(2*time.Minute))

	err := st.AppendActivity(ctx, &model.Activity{ID: "bad", SessionID: "nope", Type: model.ActivitySystem, UserID: "alice", CreatedAt: base})
	assert.ErrorIs(t, err, store.ErrConstraint)

	acts, err := st.QueryActivities(ctx, store.ActivityFilter{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, []string{"a3", "a2", "a1"}, []string{acts[0].ID, acts[1].ID, acts[2].ID})
	assert.Equal(t, "contract", acts[0].Metadata["source"])

	limited, err := st.QueryActivities(ctx, store.ActivityFilter{UserID: "alice", Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "a4", limited[0].ID)

	n, err := st.CountActivities(ctx, store.ActivityFilter{SessionID: "s1", Types: []model.ActivityType{model.ActivityStatusChanged}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.CountActivities(ctx, store.ActivityFilter{UserID: "alice", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, n, "limit does not apply to counts")
}

func testHistory(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")
	SeedSession(t, st, "s1", "alice", base)

	d := 90 * time.Second
	rows := []*model.StatusHistory{
		{ID: "h1", SessionID: "s1", FromStatus: "", ToStatus: model.StatusDraft, ChangedBy: "alice", ChangedAt: base},
		{ID: "h2", SessionID: "s1", FromStatus: model.StatusDraft, ToStatus: model.StatusStrategyReady, ChangedBy: "alice",
			ChangedAt: base.Add(d), Reason: "ready", IPAddress: "10.0.0.1", DurationInPreviousStatus: &d,
			Metadata: map[string]any{"auto_transition": false}},
	}
	// Insert out of order; listing sorts by time.
	require.NoError(t, st.AppendStatusHistory(ctx, rows[1]))
	require.NoError(t, st.AppendStatusHistory(ctx, rows[0]))

	got, err := st.ListStatusHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].ID)
	assert.Equal(t, model.Status(""), got[0].FromStatus)
	assert.Nil(t, got[0].DurationInPreviousStatus)
	assert.Equal(t, "h2", got[1].ID)
	assert.Equal(t, "ready", got[1].Reason)
	assert.Equal(t, "10.0.0.1", got[1].IPAddress)
	require.NotNil(t, got[1].DurationInPreviousStatus)
	assert.Equal(t, d, *got[1].DurationInPreviousStatus)
	assert.Equal(t, false, got[1].Metadata["auto_transition"])
}

func testArchive(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")
	SeedSession(t, st, "s1", "alice", base)

	_, err := st.GetArchive(ctx, "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := &model.SessionArchive{
		SessionID: "s1", ArchivedBy: "alice", ArchivedAt: base, Reason: "done",
		StatsSnapshot: map[string]any{"title": "Review s1"},
	}
	require.NoError(t, st.PutArchive(ctx, rec))

	restored := base.Add(time.Hour)
	rec.RestoredAt = &restored
	rec.RestoredBy = "alice"
	require.NoError(t, st.PutArchive(ctx, rec))

	got, err := st.GetArchive(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "done", got.Reason)
	assert.Equal(t, "Review s1", got.StatsSnapshot["title"])
	require.NotNil(t, got.RestoredAt)
	assert.True(t, got.RestoredAt.Equal(restored))
	assert.Equal(t, "alice", got.RestoredBy)
}

func testStats(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")

	_, err := st.GetUserStats(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	avg := 2 * time.Hour
	hour := 14
	last := base.Add(time.Hour)
	in := &model.UserSessionStats{
		UserID: "alice", TotalSessions: 4, CompletedSessions: 3, FailedSessions: 1, TotalActivities: 12,
		AvgCompletionTime: &avg, FastestCompletion: &avg, LastActivity: &last,
		MostActiveDay: "Monday", MostActiveHour: &hour,
		CompletionRate: 75, ProductivityScore: 83.75,
		NotificationPrefs: map[string]string{"email": "weekly"},
		LastCalculated:    base,
	}
	require.NoError(t, st.PutUserStats(ctx, in))

	got, err := st.GetUserStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalSessions)
	assert.Equal(t, 3, got.CompletedSessions)
	assert.InDelta(t, 83.75, got.ProductivityScore, 1e-9)
	require.NotNil(t, got.AvgCompletionTime)
	assert.Equal(t, avg, *got.AvgCompletionTime)
	require.NotNil(t, got.MostActiveHour)
	assert.Equal(t, 14, *got.MostActiveHour)
	assert.Equal(t, "weekly", got.NotificationPrefs["email"])
	assert.True(t, got.LastCalculated.Equal(base))
}

func testDeleteSessionCascade(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")
	SeedSession(t, st, "s1", "alice", base)
	require.NoError(t, st.AppendActivity(ctx, &model.Activity{ID: "a1", SessionID: "s1", Type: model.ActivityCreated, UserID: "alice", CreatedAt: base}))
	require.NoError(t, st.AppendStatusHistory(ctx, &model.StatusHistory{ID: "h1", SessionID: "s1", ToStatus: model.StatusDraft, ChangedBy: "alice", ChangedAt: base}))
	require.NoError(t, st.PutArchive(ctx, &model.SessionArchive{SessionID: "s1", ArchivedBy: "alice", ArchivedAt: base}))

	require.NoError(t, st.DeleteSession(ctx, "s1"))
	assert.ErrorIs(t, st.DeleteSession(ctx, "s1"), store.ErrNotFound)

	n, err := st.CountActivities(ctx, store.ActivityFilter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Zero(t, n)
	hist, err := st.ListStatusHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, hist)
	_, err = st.GetArchive(ctx, "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteUser(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")
	SeedSession(t, st, "s1", "alice", base)
	require.NoError(t, st.PutUserStats(ctx, &model.UserSessionStats{UserID: "alice", LastCalculated: base}))

	assert.ErrorIs(t, st.DeleteUser(ctx, "alice"), store.ErrUserReferenced)
	assert.ErrorIs(t, st.DeleteUser(ctx, "ghost"), store.ErrNotFound)

	require.NoError(t, st.DeleteSession(ctx, "s1"))
	require.NoError(t, st.DeleteUser(ctx, "alice"))

	_, err := st.GetUserStats(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetUser(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testAtomicRollback(t *testing.T, st store.Store) {
	ctx := context.Background()
	SeedUser(t, st, "alice")

	boom := errors.New("boom")
	err := st.Atomic(ctx, func(tx store.Tx) error {
		SeedSession(t, tx, "s1", "alice", base)
		require.NoError(t, tx.AppendActivity(ctx, &model.Activity{ID: "a1", SessionID: "s1", Type: model.ActivityCreated, UserID: "alice", CreatedAt: base}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	n, err := st.CountActivities(ctx, store.ActivityFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		SeedSession(t, tx, "s2", "alice", base)
		return nil
	}))
	_, err = st.GetSession(ctx, "s2")
	assert.NoError(t, err)
}
