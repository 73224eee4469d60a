// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recovery_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/domain/session/manager"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/permissions"
	"github.com/ManuGH/thesisgrey/internal/domain/session/recovery"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store/storetest"
)

func TestCatalog_CoversEveryErrorType(t *testing.T) {
	types := recovery.ErrorTypes()
	require.Len(t, types, 8)
	for _, et := range types {
		s := recovery.Lookup(et)
		assert.Equal(t, et, s.ErrorType)
		assert.NotEmpty(t, s.Title, et)
		assert.NotEmpty(t, s.Message, et)
		assert.Contains(t, []recovery.Severity{recovery.SeverityError, recovery.SeverityWarning, recovery.SeverityInfo}, s.Severity)
		require.NotEmpty(t, s.Steps, et)
		for _, step := range s.Steps {
			assert.NotEmpty(t, step.Action)
			assert.NotEmpty(t, step.EstimatedTime)
		}
	}
}

func TestLookup_UnknownFallsBack(t *testing.T) {
	s := recovery.Lookup("gremlins")
	assert.Equal(t, recovery.UnknownError, s.ErrorType)
	assert.False(t, recovery.Known("gremlins"))
}

func TestLookup_ReturnsCopies(t *testing.T) {
	s := recovery.Lookup(recovery.ProcessingTimeout)
	s.Steps[0].Action = "mutated"
	assert.Equal(t, recovery.ActionRetryProcessing, recovery.Lookup(recovery.ProcessingTimeout).Steps[0].Action)
}

func TestSuggestions_BindSession(t *testing.T) {
	s := &model.Session{ID: "s-42", Title: "Nursing burnout"}
	got := recovery.Suggestions(s, recovery.SearchExecutionFailed)

	assert.Contains(t, got.Message, `"Nursing burnout"`)
	assert.Equal(t, "/sessions/s-42/execute", got.Steps[0].URL)
	for _, step := range got.Steps {
		assert.False(t, strings.Contains(step.Description+step.URL, "{"), "unbound placeholder in %+v", step)
	}
}

type env struct {
	st      *store.MemoryStore
	repo    *manager.Repository
	handler *recovery.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemoryStore()
	storetest.SeedUser(t, st, "alice")
	storetest.SeedUser(t, st, "bob")
	repo := manager.NewRepository(st, manager.WithAuditLogger(audit.New(zerolog.Nop())))
	return &env{st: st, repo: repo, handler: recovery.NewHandler(repo, st)}
}

func (e *env) failedSession(t *testing.T) *model.Session {
	t.Helper()
	ctx := context.Background()
	s, err := e.repo.Create(ctx, "alice", "Failing review", "", model.ChangeContext{})
	require.NoError(t, err)
	for _, to := range []model.Status{model.StatusStrategyReady, model.StatusExecuting, model.StatusFailed} {
		s, err = e.repo.Transition(ctx, s.ID, to, model.ChangeContext{UserID: "alice"})
		require.NoError(t, err)
	}
	return s
}

func TestHandle_RetryMovesFailedSession(t *testing.T) {
	e := newEnv(t)
	s := e.failedSession(t)

	out, err := e.handler.Handle(context.Background(), "alice", s.ID, recovery.SearchExecutionFailed, recovery.ActionRetrySearch)
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.Session)
	assert.Equal(t, model.StatusStrategyReady, out.Session.Status)

	hist, err := e.repo.History(context.Background(), s.ID)
	require.NoError(t, err)
	last := hist[len(hist)-1]
	assert.Equal(t, "recovery:retry_search", last.Reason)
	assert.Equal(t, true, last.Metadata["auto_transition"])

	attempts, err := e.st.QueryActivities(context.Background(), store.ActivityFilter{SessionID: s.ID, Types: []model.ActivityType{model.ActivityRecoveryAttempt}})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, true, attempts[0].Metadata["success"])
}

func TestHandle_ResetGoesToDraft(t *testing.T) {
	e := newEnv(t)
	s := e.failedSession(t)

	out, err := e.handler.Handle(context.Background(), "alice", s.ID, recovery.UnknownError, recovery.ActionResetSession)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, model.StatusDraft, out.Session.Status)
}

func TestHandle_RestartRequiresFailedState(t *testing.T) {
	e := newEnv(t)
	s, err := e.repo.Create(context.Background(), "alice", "Healthy", "", model.ChangeContext{})
	require.NoError(t, err)

	out, err := e.handler.Handle(context.Background(), "alice", s.ID, recovery.DatabaseConnectionError, recovery.ActionRetryOperation)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "not failed")
}

func TestHandle_NonStateActionReturnsHint(t *testing.T) {
	e := newEnv(t)
	s := e.failedSession(t)

	out, err := e.handler.Handle(context.Background(), "alice", s.ID, recovery.RateLimitExceeded, recovery.ActionWaitAndRetry)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.NextStep)
	assert.Nil(t, out.Session)

	got, err := e.repo.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestHandle_Rejections(t *testing.T) {
	e := newEnv(t)
	s := e.failedSession(t)
	ctx := context.Background()

	_, err := e.handler.Handle(ctx, "bob", s.ID, recovery.SearchExecutionFailed, recovery.ActionRetrySearch)
	assert.ErrorIs(t, err, permissions.ErrPermissionDenied)

	_, err = e.handler.Handle(ctx, "alice", s.ID, recovery.SessionExpired, recovery.ActionRetrySearch)
	assert.ErrorIs(t, err, recovery.ErrUnknownAction)

	_, err = e.handler.Handle(ctx, "alice", "missing", recovery.UnknownError, recovery.ActionRetryOperation)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSuccessRates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	s := e.failedSession(t)
	// success, then the session is no longer failed so the same retry fails.
	_, err := e.handler.Handle(ctx, "alice", s.ID, recovery.ProcessingTimeout, recovery.ActionRetryProcessing)
	require.NoError(t, err)
	_, err = e.handler.Handle(ctx, "alice", s.ID, recovery.ProcessingTimeout, recovery.ActionRetryProcessing)
	require.NoError(t, err)
	_, err = e.handler.Handle(ctx, "alice", s.ID, recovery.RateLimitExceeded, recovery.ActionWaitAndRetry)
	require.NoError(t, err)

	rates, err := e.handler.SuccessRates(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, recovery.Rate{Total: 2, Successful: 1, Percent: 50}, rates[recovery.ProcessingTimeout])
	assert.Equal(t, recovery.Rate{Total: 1, Successful: 1, Percent: 100}, rates[recovery.RateLimitExceeded])

	mine, err := e.handler.SuccessRates(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, mine)
}
