// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/thesisgrey/internal/api/problem"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Stats().Get(r.Context(), caller(r))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (s *Server) handleRecomputeStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Stats().Recompute(r.Context(), caller(r))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.sessions.CreateUser(r.Context(), req.Username, req.Email)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/users/"+u.ID)
	writeJSON(w, r, http.StatusCreated, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteUser(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
