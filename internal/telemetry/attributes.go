// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the service.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	SessionIDKey       = "session.id"
	SessionOwnerKey    = "session.owner"
	SessionFromKey     = "session.status.from"
	SessionToKey       = "session.status.to"
	SessionClassKey    = "session.transition.class"
	SessionSaveKindKey = "session.save.kind"

	StatsUserKey       = "stats.user"
	StatsSessionsKey   = "stats.sessions"
	StatsActivitiesKey = "stats.activities"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes identifies the session a span operates on. Empty values are omitted.
func SessionAttributes(sessionID, owner string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if owner != "" {
		attrs = append(attrs, attribute.String(SessionOwnerKey, owner))
	}
	return attrs
}

// TransitionAttributes describes a status change.
func TransitionAttributes(from, to, class string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionFromKey, from),
		attribute.String(SessionToKey, to),
		attribute.String(SessionClassKey, class),
	}
}

// StatsAttributes describes one aggregation pass.
func StatsAttributes(userID string, sessions, activities int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StatsUserKey, userID),
		attribute.Int(StatsSessionsKey, sessions),
		attribute.Int(StatsActivitiesKey, activities),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
