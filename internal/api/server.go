// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the session workflow over HTTP under /api/v1.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/thesisgrey/internal/api/middleware"
	"github.com/ManuGH/thesisgrey/internal/api/problem"
	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/domain/session/manager"
	"github.com/ManuGH/thesisgrey/internal/domain/session/recovery"
	"github.com/ManuGH/thesisgrey/internal/health"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

// Limiter is the per-user business rate limiter.
type Limiter interface {
	Allow(ctx context.Context, userID string, action ratelimit.Action) (ratelimit.Decision, error)
}

// Deps are the collaborators the server drives.
type Deps struct {
	Sessions *manager.Repository
	Recovery *recovery.Handler
	Health   *health.Manager
	// Limiter may be nil to disable per-user limits.
	Limiter Limiter
	Audit   *audit.Logger
}

// Options shape the ingress stack.
type Options struct {
	Stack       middleware.StackConfig
	MetricsPath string // empty disables /metrics
}

// Server holds the HTTP handlers.
type Server struct {
	sessions *manager.Repository
	recovery *recovery.Handler
	health   *health.Manager
	limiter  Limiter
	audit    *audit.Logger
	opts     Options
}

func New(deps Deps, opts Options) *Server {
	if deps.Audit == nil {
		deps.Audit = audit.NewLogger()
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	if deps.Recovery == nil {
		deps.Recovery = recovery.NewHandler(deps.Sessions, deps.Sessions)
	}
	opts.Stack.Audit = deps.Audit
	return &Server{
		sessions: deps.Sessions,
		recovery: deps.Recovery,
		health:   deps.Health,
		limiter:  deps.Limiter,
		audit:    deps.Audit,
		opts:     opts,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(s.opts.Stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser(s.audit))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.SessionScope)
				r.Get("/", s.handleGetSession)
				r.Patch("/", s.handleUpdateSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/transitions", s.handleTransition)
				r.Post("/duplicate", s.handleDuplicate)
				r.Post("/archive", s.handleArchive)
				r.Post("/unarchive", s.handleUnarchive)
				r.Post("/notes", s.handleAddNote)
				r.Get("/activities", s.handleActivities)
				r.Get("/history", s.handleHistory)
				r.Get("/recovery", s.handleRecoverySuggestions)
				r.Post("/recovery", s.handleRecoveryAttempt)
			})
		})

		r.Get("/stats", s.handleGetStats)
		r.Post("/stats/recompute", s.handleRecomputeStats)
		r.Get("/recovery/success-rates", s.handleSuccessRates)

		r.Post("/users", s.handleCreateUser)
		r.Delete("/users/{id}", s.handleDeleteUser)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "system/not_found", "Not Found", problem.CodeNotFound, "no such route", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed", "METHOD_NOT_ALLOWED", "", nil)
	})
	return r
}

// HTTPServer wraps Handler with the timeouts used in production.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// limit enforces the per-user limit for action, writing the 429 itself.
// It reports whether the request may proceed.
func (s *Server) limit(w http.ResponseWriter, r *http.Request, action ratelimit.Action) bool {
	if s.limiter == nil {
		return true
	}
	user := middleware.UserFromContext(r.Context())
	d, err := s.limiter.Allow(r.Context(), user, action)
	if err != nil {
		problem.FromError(w, r, err)
		return false
	}
	if !d.Allowed {
		s.audit.RateLimitExceeded(r.Context(), user, string(action), d.RetryAfter)
		problem.RateLimited(w, r, string(action), d.RetryAfter.Seconds())
		return false
	}
	return true
}
