// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/thesisgrey/internal/api/middleware"
	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/cache"
	"github.com/ManuGH/thesisgrey/internal/domain/session/manager"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store/storetest"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

type testServer struct {
	srv   *httptest.Server
	audit *bytes.Buffer
}

func newTestServer(t *testing.T, limiter Limiter) *testServer {
	t.Helper()
	st := store.NewMemoryStore()
	storetest.SeedUser(t, st, "alice")
	storetest.SeedUser(t, st, "bob")

	var buf bytes.Buffer
	auditor := audit.New(zerolog.New(&buf))
	repo := manager.NewRepository(st, manager.WithAuditLogger(auditor))
	s := New(Deps{Sessions: repo, Limiter: limiter, Audit: auditor}, Options{
		Stack:       middleware.StackConfig{EnableMetrics: true},
		MetricsPath: "/metrics",
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, audit: &buf}
}

func (ts *testServer) do(t *testing.T, user, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (ts *testServer) createSession(t *testing.T, user, title string) string {
	t.Helper()
	resp, body := ts.do(t, user, http.MethodPost, "/api/v1/sessions", map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["id"].(string)
}

func (ts *testServer) transition(t *testing.T, user, id string, to ...string) map[string]any {
	t.Helper()
	var body map[string]any
	for _, s := range to {
		var resp *http.Response
		resp, body = ts.do(t, user, http.MethodPost, "/api/v1/sessions/"+id+"/transitions", map[string]string{"to": s})
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
	}
	return body
}

func TestAPI_RequiresIdentity(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := ts.do(t, "", http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", body["code"])
	assert.Contains(t, ts.audit.String(), `"event_type":"auth.missing"`)
}

func TestAPI_CreateAndView(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions",
		map[string]string{"title": "  Grey literature on nurse burnout  ", "description": "scoping"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id := body["id"].(string)
	assert.Equal(t, "/api/v1/sessions/"+id, resp.Header.Get("Location"))
	assert.Equal(t, "Grey literature on nurse burnout", body["title"])
	assert.Equal(t, "draft", body["status"])
	assert.Equal(t, "alice", body["owner_id"])
	assert.Equal(t, []any{"strategy_ready"}, body["next_statuses"])
	assert.Contains(t, body["allowed_actions"], "edit")
	assert.NotContains(t, body["allowed_actions"], "duplicate")

	resp, body = ts.do(t, "alice", http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["id"])

	resp, body = ts.do(t, "bob", http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", body["code"])

	resp, body = ts.do(t, "alice", http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestAPI_CreateValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions", map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	resp, _ = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions", map[string]any{"title": "x", "status": "completed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_TransitionsAndHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t, "alice", "Review")

	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/transitions", map[string]string{"to": "completed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
	assert.Equal(t, []any{"strategy_ready"}, body["allowed"])

	last := ts.transition(t, "alice", id, "strategy_ready", "executing", "failed")
	assert.Equal(t, "failed", last["status"])

	resp, body = ts.do(t, "alice", http.MethodGet, "/api/v1/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["history"], 4)

	resp, body = ts.do(t, "alice", http.MethodGet, "/api/v1/sessions/"+id+"/activities?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["activities"], 2)

	resp, _ = ts.do(t, "alice", http.MethodGet, "/api/v1/sessions/"+id+"/activities?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, "bob", http.MethodPost, "/api/v1/sessions/"+id+"/transitions", map[string]string{"to": "draft"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_UpdateKeepsOmittedFields(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions", map[string]string{"title": "Old", "description": "keep me"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, body = ts.do(t, "alice", http.MethodPatch, "/api/v1/sessions/"+id, map[string]string{"title": "New"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "New", body["title"])
	assert.Equal(t, "keep me", body["description"])
}

func TestAPI_ListFiltersByStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createSession(t, "alice", "A")
	b := ts.createSession(t, "alice", "B")
	ts.createSession(t, "bob", "C")
	ts.transition(t, "alice", b, "strategy_ready")

	_, body := ts.do(t, "alice", http.MethodGet, "/api/v1/sessions", nil)
	assert.Len(t, body["sessions"], 2)

	_, body = ts.do(t, "alice", http.MethodGet, "/api/v1/sessions?status=strategy_ready", nil)
	require.Len(t, body["sessions"], 1)

	resp, _ := ts.do(t, "alice", http.MethodGet, "/api/v1/sessions?status=paused", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DeleteDuplicateArchive(t *testing.T) {
	ts := newTestServer(t, nil)
	draft := ts.createSession(t, "alice", "Draft")
	resp, _ := ts.do(t, "alice", http.MethodDelete, "/api/v1/sessions/"+draft, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	id := ts.createSession(t, "alice", "Done")
	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/duplicate", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "drafts cannot be duplicated")
	assert.Equal(t, "PERMISSION_DENIED", body["code"])

	ts.transition(t, "alice", id, "strategy_ready", "executing", "processing", "ready_for_review", "in_review", "completed")

	resp, body = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Done (Copy)", body["title"])
	assert.Equal(t, "draft", body["status"])

	resp, body = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/archive", map[string]string{"reason": "published"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "archived", body["status"])
	assert.Contains(t, ts.audit.String(), `"event_type":"session.archived"`)

	resp, _ = ts.do(t, "alice", http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/unarchive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
}

func TestAPI_Notes(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t, "alice", "Notes")

	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/notes", map[string]string{"text": "check CINAHL"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "NOTE_ADDED", body["action"])

	resp, _ = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/notes", map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Recovery(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t, "alice", "Flaky")
	ts.transition(t, "alice", id, "strategy_ready", "executing", "failed")

	resp, body := ts.do(t, "alice", http.MethodGet, "/api/v1/sessions/"+id+"/recovery?error_type=search_execution_failed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "search_execution_failed", body["error_type"])
	assert.Contains(t, body["message"], `"Flaky"`)

	resp, body = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/recovery",
		map[string]string{"error_type": "search_execution_failed", "action": "retry_search"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = ts.do(t, "alice", http.MethodPost, "/api/v1/sessions/"+id+"/recovery",
		map[string]string{"error_type": "session_expired", "action": "retry_search"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	resp, body = ts.do(t, "alice", http.MethodGet, "/api/v1/recovery/success-rates?scope=mine", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rates := body["success_rates"].(map[string]any)
	assert.Contains(t, rates, "search_execution_failed")
}

func TestAPI_Stats(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession(t, "alice", "Counted")
	ts.transition(t, "alice", id, "strategy_ready")

	resp, body := ts.do(t, "alice", http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total_sessions"])

	resp, body = ts.do(t, "alice", http.MethodPost, "/api/v1/stats/recompute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["user_id"])
}

func TestAPI_Users(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := ts.do(t, "admin", http.MethodPost, "/api/v1/users", map[string]string{"username": "carol"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "carol", body["username"])

	carol := body["id"].(string)

	resp, body = ts.do(t, "admin", http.MethodPost, "/api/v1/users", map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["code"])

	ts.createSession(t, "alice", "Pins alice")
	resp, body = ts.do(t, "alice", http.MethodDelete, "/api/v1/users/alice", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["code"])

	resp, body = ts.do(t, "bob", http.MethodDelete, "/api/v1/users/"+carol, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", body["code"])

	resp, _ = ts.do(t, carol, http.MethodDelete, "/api/v1/users/"+carol, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_PerUserRateLimit(t *testing.T) {
	cfg := ratelimit.Config{Rules: map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionCreateSession: {Limit: 2, Window: time.Hour},
		ratelimit.ActionMutateSession: {Limit: 100, Window: time.Minute},
	}}
	ts := newTestServer(t, ratelimit.New(cfg, cache.NewMemoryCache(0)))

	ts.createSession(t, "alice", "one")
	ts.createSession(t, "alice", "two")

	resp, body := ts.do(t, "alice", http.MethodPost, "/api/v1/sessions", map[string]string{"title": "three"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Contains(t, ts.audit.String(), `"event_type":"ratelimit.exceeded"`)

	// other users have their own budget
	ts.createSession(t, "bob", "one")
}

func TestAPI_ProbesAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, _ = ts.do(t, "", http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ts.createSession(t, "alice", "metered")
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/metrics", nil)
	require.NoError(t, err)
	mresp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = mresp.Body.Close() }()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "thesisgrey_http_requests_total")
	assert.Contains(t, string(raw), "thesisgrey_session_saves_total")

	resp, body = ts.do(t, "alice", http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
