// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xglog "github.com/ManuGH/thesisgrey/internal/log"
)

func capture() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(zerolog.New(&buf)), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger())
}

func TestLog_DefaultsTimestampAndFlattensDetails(t *testing.T) {
	l, buf := capture()
	l.Log(Event{
		Type:       EventSessionDeleted,
		Actor:      "u1",
		Action:     "deleted session",
		Resource:   "s1",
		Result:     ResultSuccess,
		RemoteAddr: "192.0.2.1",
		Details:    map[string]string{"title": "Scoping review"},
	})

	entry := decode(t, buf)
	assert.Equal(t, "audit", entry["log_type"])
	assert.Equal(t, "session.deleted", entry["event_type"])
	assert.Equal(t, "u1", entry["actor"])
	assert.Equal(t, "192.0.2.1", entry["remote_addr"])
	assert.Equal(t, "Scoping review", entry["title"])
	assert.NotEmpty(t, entry["timestamp"])
	assert.NotContains(t, entry, "user_agent")
}

func TestLogFromContext_FillsRequestAndActor(t *testing.T) {
	l, buf := capture()
	ctx := xglog.ContextWithRequestID(context.Background(), "req-9")
	ctx = xglog.ContextWithUserID(ctx, "u7")

	l.PermissionDenied(ctx, "", "delete", "s1", "only draft sessions can be deleted")

	entry := decode(t, buf)
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "u7", entry["actor"])
	assert.Equal(t, "denied", entry["result"])
	assert.Equal(t, "permission.denied", entry["event_type"])
	assert.Equal(t, "only draft sessions can be deleted", entry["reason"])
}

func TestRateLimitExceeded_RoundsRetryAfterUp(t *testing.T) {
	l, buf := capture()
	l.RateLimitExceeded(context.Background(), "u1", "create_session", 1500*time.Millisecond)

	entry := decode(t, buf)
	assert.Equal(t, "2", entry["retry_after_seconds"])
	assert.Equal(t, "ratelimit/create_session", entry["resource"])
}
