// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/thesisgrey/internal/api/middleware"
	"github.com/ManuGH/thesisgrey/internal/api/problem"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

type createSessionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateSessionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type transitionRequest struct {
	To     model.Status `json:"to"`
	Reason string       `json:"reason"`
}

type archiveRequest struct {
	Reason string `json:"reason"`
}

type noteRequest struct {
	Text string `json:"text"`
}

func caller(r *http.Request) string { return middleware.UserFromContext(r.Context()) }

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) || !s.limit(w, r, ratelimit.ActionCreateSession) {
		return
	}
	me := caller(r)
	out, err := s.sessions.Create(r.Context(), me, req.Title, req.Description, model.ChangeContext{UserID: me})
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+out.ID)
	writeJSON(w, r, http.StatusCreated, newSessionView(me, out))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var statuses []model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := model.Status(strings.TrimSpace(part))
			if !st.Valid() {
				problem.Write(w, r, http.StatusBadRequest, "session/validation_failed", "Validation Failed",
					problem.CodeValidation, fmt.Sprintf("unknown status %q", st), nil)
				return
			}
			statuses = append(statuses, st)
		}
	}
	me := caller(r)
	list, err := s.sessions.ListForOwner(r.Context(), me, statuses...)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"sessions": newSessionViews(me, list)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	me := caller(r)
	out, err := s.sessions.View(r.Context(), me, chi.URLParam(r, "id"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	middleware.AnnotateSession(r, out.ID, out.OwnerID)
	writeJSON(w, r, http.StatusOK, newSessionView(me, out))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if !decode(w, r, &req) || !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	me := caller(r)
	id := chi.URLParam(r, "id")
	cur, err := s.sessions.View(r.Context(), me, id)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	title, desc := cur.Title, cur.Description
	if req.Title != nil {
		title = *req.Title
	}
	if req.Description != nil {
		desc = *req.Description
	}
	out, err := s.sessions.Update(r.Context(), me, id, title, desc)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(me, out))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	if err := s.sessions.Delete(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decode(w, r, &req) || !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	me := caller(r)
	out, err := s.sessions.Transition(r.Context(), chi.URLParam(r, "id"), req.To, model.ChangeContext{
		UserID: me,
		Reason: req.Reason,
	})
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(me, out))
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	if !s.limit(w, r, ratelimit.ActionCreateSession) {
		return
	}
	me := caller(r)
	out, err := s.sessions.Duplicate(r.Context(), me, chi.URLParam(r, "id"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+out.ID)
	writeJSON(w, r, http.StatusCreated, newSessionView(me, out))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if !decode(w, r, &req) || !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	me := caller(r)
	out, err := s.sessions.Archive(r.Context(), me, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(me, out))
}

func (s *Server) handleUnarchive(w http.ResponseWriter, r *http.Request) {
	if !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	me := caller(r)
	out, err := s.sessions.Unarchive(r.Context(), me, chi.URLParam(r, "id"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(me, out))
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decode(w, r, &req) || !s.limit(w, r, ratelimit.ActionMutateSession) {
		return
	}
	a, err := s.sessions.AddNote(r.Context(), caller(r), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, a)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultActivityLimit, maxActivityLimit)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, "session/validation_failed", "Validation Failed", problem.CodeValidation, err.Error(), nil)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.View(r.Context(), caller(r), id); err != nil {
		problem.FromError(w, r, err)
		return
	}
	acts, err := s.sessions.Activities(r.Context(), id, limit)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	if acts == nil {
		acts = []*model.Activity{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"activities": acts})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.View(r.Context(), caller(r), id); err != nil {
		problem.FromError(w, r, err)
		return
	}
	hist, err := s.sessions.History(r.Context(), id)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	if hist == nil {
		hist = []*model.StatusHistory{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"history": hist})
}
