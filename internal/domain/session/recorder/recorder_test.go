// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/thesisgrey/internal/domain/session/lifecycle"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store/storetest"
)

var t0 = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	st  *store.MemoryStore
	rec *Recorder
	cur *model.Session
	n   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{st: store.NewMemoryStore()}
	f.rec = &Recorder{newID: func() string { f.n++; return fmt.Sprintf("id-%03d", f.n) }}
	storetest.SeedUser(t, f.st, "owner")
	storetest.SeedUser(t, f.st, "reviewer")

	s := storetest.SeedSession(t, f.st, "s1", "owner", t0)
	_, err := f.rec.Record(context.Background(), f.st, Change{After: s, Context: model.ChangeContext{UserID: "owner"}, At: t0})
	require.NoError(t, err)
	f.cur = s
	return f
}

// move persists a status change and records it, mimicking the repository save path.
func (f *fixture) move(t *testing.T, to model.Status, at time.Time, cc model.ChangeContext) *Result {
	t.Helper()
	before := f.cur.Clone()
	after := f.cur.Clone()
	after.Status = to
	after.UpdatedAt = at
	if to == model.StatusCompleted && after.CompletedAt == nil {
		after.CompletedAt = &at
	}
	require.NoError(t, f.st.PutSession(context.Background(), after))
	res, err := f.rec.Record(context.Background(), f.st, Change{Before: before, After: after, Context: cc, At: at})
	require.NoError(t, err)
	f.cur = after
	return res
}

func (f *fixture) activities(t *testing.T, types ...model.ActivityType) []*model.Activity {
	t.Helper()
	acts, err := f.st.QueryActivities(context.Background(), store.ActivityFilter{SessionID: "s1", Types: types})
	require.NoError(t, err)
	return acts
}

func TestRecord_Creation(t *testing.T) {
	f := newFixture(t)

	hist, err := f.st.ListStatusHistory(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.Status(""), hist[0].FromStatus)
	assert.Equal(t, model.StatusDraft, hist[0].ToStatus)
	assert.Nil(t, hist[0].DurationInPreviousStatus)

	created := f.activities(t, model.ActivityCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "owner", created[0].UserID)
	assert.Equal(t, "Review s1", created[0].Metadata["title"])
	assert.Equal(t, "draft", created[0].Metadata["initial_status"])
}

func TestRecord_ModifiedWithoutStatusChange(t *testing.T) {
	f := newFixture(t)
	before := f.cur.Clone()
	after := f.cur.Clone()
	after.Description = "new scope"
	after.UpdatedAt = t0.Add(time.Minute)

	res, err := f.rec.Record(context.Background(), f.st, Change{Before: before, After: after, At: after.UpdatedAt})
	require.NoError(t, err)
	assert.Equal(t, KindModified, res.Kind)
	assert.Nil(t, res.History)

	mods := f.activities(t, model.ActivityModified)
	require.Len(t, mods, 1)
	assert.Equal(t, []string{"description"}, mods[0].Metadata["changed_fields"])
	assert.Equal(t, "owner", mods[0].UserID, "actor falls back to owner")

	hist, err := f.st.ListStatusHistory(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestRecord_StatusChange(t *testing.T) {
	f := newFixture(t)
	at := t0.Add(90 * time.Minute)
	res := f.move(t, model.StatusStrategyReady, at, model.ChangeContext{
		UserID: "reviewer", Reason: "strategy drafted", AutoTransition: true, IPAddress: "192.0.2.7",
	})

	assert.Equal(t, KindStatusChanged, res.Kind)
	assert.Equal(t, lifecycle.ClassProgression, res.Classification)
	require.NotNil(t, res.History)
	require.NotNil(t, res.History.DurationInPreviousStatus)
	assert.Equal(t, 90*time.Minute, *res.History.DurationInPreviousStatus)
	assert.Equal(t, "strategy drafted", res.History.Reason)
	assert.Equal(t, "192.0.2.7", res.History.IPAddress)
	assert.Equal(t, true, res.History.Metadata["auto_transition"])

	changes := f.activities(t, model.ActivityStatusChanged)
	require.Len(t, changes, 1)
	a := changes[0]
	assert.Equal(t, "reviewer", a.UserID)
	assert.Equal(t, model.StatusDraft, a.OldStatus)
	assert.Equal(t, model.StatusStrategyReady, a.NewStatus)
	assert.Equal(t, "progression", a.Metadata["classification"])
	assert.Equal(t, "Status changed from Draft to Strategy Ready", a.Description)
}

func TestRecord_FailedWritesErrorActivity(t *testing.T) {
	f := newFixture(t)
	f.move(t, model.StatusStrategyReady, t0.Add(time.Minute), model.ChangeContext{})
	f.move(t, model.StatusExecuting, t0.Add(2*time.Minute), model.ChangeContext{})
	res := f.move(t, model.StatusFailed, t0.Add(3*time.Minute), model.ChangeContext{
		Metadata: map[string]any{"failure_reason": "search API timeout", "error_details": "504 from provider"},
	})
	assert.Equal(t, lifecycle.ClassError, res.Classification)

	errs := f.activities(t, model.ActivityError)
	require.Len(t, errs, 1)
	assert.Equal(t, "executing", errs[0].Metadata["previous_status"])
	assert.Equal(t, "search API timeout", errs[0].Metadata["failure_reason"])
	assert.Equal(t, "504 from provider", errs[0].Metadata["error_details"])

	res = f.move(t, model.StatusDraft, t0.Add(4*time.Minute), model.ChangeContext{})
	assert.Equal(t, lifecycle.ClassErrorRecovery, res.Classification)
	last := f.activities(t, model.ActivityStatusChanged)[0]
	assert.Equal(t, true, last.Metadata["is_error_recovery"])
}

func walkToCompleted(t *testing.T, f *fixture) {
	t.Helper()
	at := t0
	for _, s := range []model.Status{
		model.StatusStrategyReady, model.StatusExecuting, model.StatusProcessing,
		model.StatusReadyForReview, model.StatusInReview, model.StatusCompleted,
	} {
		at = at.Add(time.Hour)
		f.move(t, s, at, model.ChangeContext{})
	}
}

func TestRecord_CompletionOnlyOnFirstArrival(t *testing.T) {
	f := newFixture(t)
	walkToCompleted(t, f)
	require.Len(t, f.activities(t, model.ActivityReviewCompleted), 1)

	f.move(t, model.StatusInReview, t0.Add(10*time.Hour), model.ChangeContext{})
	f.move(t, model.StatusCompleted, t0.Add(11*time.Hour), model.ChangeContext{})
	done := f.activities(t, model.ActivityReviewCompleted)
	require.Len(t, done, 1)

	snapshot, ok := done[0].Metadata["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", snapshot["status"])
}

func TestRecord_ArchiveAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	walkToCompleted(t, f)

	f.move(t, model.StatusArchived, t0.Add(20*time.Hour), model.ChangeContext{UserID: "owner", Reason: "published"})
	rec, err := f.st.GetArchive(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "published", rec.Reason)
	assert.Equal(t, "owner", rec.ArchivedBy)
	assert.Nil(t, rec.RestoredAt)
	assert.Equal(t, "Review s1", rec.StatsSnapshot["title"])

	f.move(t, model.StatusCompleted, t0.Add(21*time.Hour), model.ChangeContext{UserID: "owner"})
	rec, err = f.st.GetArchive(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec.RestoredAt)
	assert.True(t, rec.RestoredAt.Equal(t0.Add(21*time.Hour)))
	assert.Equal(t, "owner", rec.RestoredBy)
	assert.Len(t, f.activities(t, model.ActivityReviewCompleted), 1, "re-completion after restore is not a first arrival")

	// Archiving again updates the single record instead of adding one.
	f.move(t, model.StatusArchived, t0.Add(22*time.Hour), model.ChangeContext{Reason: "final"})
	rec, err = f.st.GetArchive(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "final", rec.Reason)
	assert.Nil(t, rec.RestoredAt)

	system := f.activities(t, model.ActivitySystem)
	require.Len(t, system, 3)
	assert.Equal(t, "archived", system[0].Metadata["event"])
	assert.Equal(t, "restored", system[1].Metadata["event"])
}

func TestRecord_RestoreWithoutArchiveRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Simulate a session that reached archived without the side effect.
	archived := f.cur.Clone()
	archived.Status = model.StatusArchived
	done := t0.Add(time.Hour)
	archived.CompletedAt = &done
	archived.UpdatedAt = done
	require.NoError(t, f.st.PutSession(ctx, archived))
	f.cur = archived

	f.move(t, model.StatusCompleted, t0.Add(2*time.Hour), model.ChangeContext{UserID: "reviewer"})
	rec, err := f.st.GetArchive(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, rec.ArchivedAt.Equal(done))
	require.NotNil(t, rec.RestoredAt)
	assert.Equal(t, "reviewer", rec.RestoredBy)
}

func TestRecord_RequiresSession(t *testing.T) {
	_, err := New().Record(context.Background(), store.NewMemoryStore(), Change{})
	assert.Error(t, err)
}
