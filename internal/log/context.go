// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// correlation holds the request-scoped identifiers copied onto every log line.
type correlation struct {
	requestID string
	userID    string
	sessionID string
}

type correlationKey struct{}

func correlationFrom(ctx context.Context) correlation {
	if ctx == nil {
		return correlation{}
	}
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

func withCorrelation(ctx context.Context, set func(*correlation)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := correlationFrom(ctx)
	set(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

// ContextWithRequestID stores the request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.requestID = id })
}

// ContextWithUserID stores the authenticated caller in the context.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.userID = id })
}

// ContextWithSessionID stores the session a request operates on.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.sessionID = id })
}

func RequestIDFromContext(ctx context.Context) string { return correlationFrom(ctx).requestID }

func UserIDFromContext(ctx context.Context) string { return correlationFrom(ctx).userID }

func SessionIDFromContext(ctx context.Context) string { return correlationFrom(ctx).sessionID }

// WithContext adds the correlation identifiers and the active trace to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	c := correlationFrom(ctx)
	var sc trace.SpanContext
	if ctx != nil {
		sc = trace.SpanContextFromContext(ctx)
	}
	if c == (correlation{}) && !sc.IsValid() {
		return logger
	}

	b := logger.With()
	if c.requestID != "" {
		b = b.Str(FieldRequestID, c.requestID)
	}
	if c.userID != "" {
		b = b.Str(FieldUserID, c.userID)
	}
	if c.sessionID != "" {
		b = b.Str(FieldSessionID, c.sessionID)
	}
	if sc.IsValid() {
		b = b.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	return b.Logger()
}

// WithComponentFromContext is WithComponent enriched by WithContext.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
