// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/thesisgrey/internal/api/problem"
	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/domain/session/manager"
	"github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

// HeaderUserID carries the caller identity set by the upstream auth layer.
const HeaderUserID = "X-User-ID"

type userKey struct{}

// UserFromContext returns the authenticated caller, or "".
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// RequireUser rejects requests without X-User-ID and records the caller in
// the context for handlers and log correlation.
func RequireUser(auditor *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if id == "" {
				auditor.AuthMissing(r.Context(), ratelimit.ClientIP(r), r.URL.Path)
				problem.Unauthenticated(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), userKey{}, id)
			ctx = log.ContextWithUserID(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Origin attaches the client fingerprint that session saves write into audit rows.
func Origin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := manager.ContextWithOrigin(r.Context(), manager.Origin{
			IPAddress: ratelimit.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionScope copies the {id} route parameter into the log correlation
// fields so every line logged while serving the request names the session.
func SessionScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "id"); id != "" {
			r = r.WithContext(log.ContextWithSessionID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
