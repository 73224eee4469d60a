// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/thesisgrey/internal/api/problem"
	"github.com/ManuGH/thesisgrey/internal/domain/session/recovery"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

type recoveryRequest struct {
	ErrorType recovery.ErrorType `json:"error_type"`
	Action    string             `json:"action"`
}

func (s *Server) handleRecoverySuggestions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.View(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	et := recovery.ErrorType(r.URL.Query().Get("error_type"))
	writeJSON(w, r, http.StatusOK, recovery.Suggestions(sess, et))
}

func (s *Server) handleRecoveryAttempt(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if !decode(w, r, &req) || !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	out, err := s.recovery.Handle(r.Context(), caller(r), chi.URLParam(r, "id"), req.ErrorType, req.Action)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleSuccessRates aggregates all attempts, or only the caller's with ?scope=mine.
func (s *Server) handleSuccessRates(w http.ResponseWriter, r *http.Request) {
	user := ""
	if r.URL.Query().Get("scope") == "mine" {
		user = caller(r)
	}
	rates, err := s.recovery.SuccessRates(r.Context(), user)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success_rates": rates})
}
