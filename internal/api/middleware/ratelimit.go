// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/thesisgrey/internal/api/problem"
	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/metrics"
)

const actionHTTPIngress = "http_ingress"

// RateLimitConfig holds configuration for the per-IP ingress limiter.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc extracts the limit key; nil means the client IP.
	KeyFunc func(r *http.Request) (string, error)
	Audit   *audit.Logger
}

// RateLimit is a sliding-window per-key limiter in front of every route. It
// guards the process; per-user business limits live in the handlers.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByRealIP
	}
	auditor := cfg.Audit
	if auditor == nil {
		auditor = audit.NewLogger()
	}
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitExceeded(actionHTTPIngress)
			auditor.RateLimitExceeded(r.Context(), "", actionHTTPIngress, cfg.WindowSize)
			problem.RateLimited(w, r, actionHTTPIngress, cfg.WindowSize.Seconds())
		}),
	)
}
