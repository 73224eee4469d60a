// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package audit provides structured audit logging for security-sensitive operations.
// It follows the WHO/WHAT/WHEN pattern for compliance and forensics.
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/thesisgrey/internal/log"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Access control
	EventPermissionDenied EventType = "permission.denied"
	EventRateLimited      EventType = "ratelimit.exceeded"
	EventAuthMissing      EventType = "auth.missing"

	// Destructive or state-hiding actions
	EventSessionDeleted    EventType = "session.deleted"
	EventSessionArchived   EventType = "session.archived"
	EventSessionUnarchived EventType = "session.unarchived"
	EventUserDeleted       EventType = "user.deleted"
)

// Result values.
const (
	ResultSuccess = "success"
	ResultDenied  = "denied"
	ResultFailure = "failure"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`    // WHO: user id, IP, or "system"
	Action     string            `json:"action"`   // WHAT: human-readable action description
	Resource   string            `json:"resource"` // session id, route or user id
	Result     string            `json:"result"`
	RemoteAddr string            `json:"remote_addr"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id"`
	Details    map[string]string `json:"details,omitempty"`
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger on the global "audit" component.
func NewLogger() *Logger {
	return New(xglog.WithComponent("audit"))
}

// New wraps an explicit zerolog logger; tests use it to capture output.
func New(base zerolog.Logger) *Logger {
	return &Logger{logger: base.With().Str("log_type", "audit").Logger()}
}

// Log writes an audit event.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		logEvent.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		logEvent.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		logEvent.Str(xglog.FieldRequestID, event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

// LogFromContext fills the request id from ctx before logging.
func (l *Logger) LogFromContext(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = xglog.RequestIDFromContext(ctx)
	}
	if event.Actor == "" {
		event.Actor = xglog.UserIDFromContext(ctx)
	}
	l.Log(event)
}

// PermissionDenied records a gate rejection.
func (l *Logger) PermissionDenied(ctx context.Context, userID, action, sessionID, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventPermissionDenied,
		Actor:    userID,
		Action:   action,
		Resource: sessionID,
		Result:   ResultDenied,
		Details:  map[string]string{"reason": reason},
	})
}

// RateLimitExceeded records a per-user limiter rejection.
func (l *Logger) RateLimitExceeded(ctx context.Context, userID, action string, retryAfter time.Duration) {
	l.LogFromContext(ctx, Event{
		Type:     EventRateLimited,
		Actor:    userID,
		Action:   action,
		Resource: "ratelimit/" + action,
		Result:   ResultDenied,
		Details: map[string]string{
			"retry_after_seconds": strconv.FormatInt(int64(retryAfter.Seconds()+0.999), 10),
		},
	})
}

// AuthMissing records a request that carried no caller identity.
func (l *Logger) AuthMissing(ctx context.Context, remoteAddr, endpoint string) {
	l.LogFromContext(ctx, Event{
		Type:       EventAuthMissing,
		Actor:      remoteAddr,
		Action:     "accessed endpoint without identity",
		Resource:   endpoint,
		Result:     ResultDenied,
		RemoteAddr: remoteAddr,
	})
}

// SessionDeleted records a hard delete.
func (l *Logger) SessionDeleted(ctx context.Context, userID, sessionID, title string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSessionDeleted,
		Actor:    userID,
		Action:   "deleted session",
		Resource: sessionID,
		Result:   ResultSuccess,
		Details:  map[string]string{"title": title},
	})
}

// SessionArchived records an archive.
func (l *Logger) SessionArchived(ctx context.Context, userID, sessionID, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSessionArchived,
		Actor:    userID,
		Action:   "archived session",
		Resource: sessionID,
		Result:   ResultSuccess,
		Details:  map[string]string{"reason": reason},
	})
}

// SessionUnarchived records a restore.
func (l *Logger) SessionUnarchived(ctx context.Context, userID, sessionID string) {
	l.LogFromContext(ctx, Event{
		Type:     EventSessionUnarchived,
		Actor:    userID,
		Action:   "unarchived session",
		Resource: sessionID,
		Result:   ResultSuccess,
	})
}

// UserDeleted records an account removal attempt.
func (l *Logger) UserDeleted(ctx context.Context, actor, userID, result string) {
	l.LogFromContext(ctx, Event{
		Type:     EventUserDeleted,
		Actor:    actor,
		Action:   "deleted user",
		Resource: userID,
		Result:   result,
	})
}
