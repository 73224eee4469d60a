// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"github.com/ManuGH/thesisgrey/internal/domain/session/lifecycle"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/permissions"
)

// sessionView is a session as seen by one caller.
type sessionView struct {
	*model.Session
	StatusLabel    string               `json:"status_label"`
	AllowedActions []permissions.Action `json:"allowed_actions"`
	NextStatuses   []model.Status       `json:"next_statuses"`
}

func newSessionView(caller string, s *model.Session) sessionView {
	next := []model.Status{}
	if s.IsOwnedBy(caller) {
		next = lifecycle.NextAllowed(s.Status)
	}
	return sessionView{
		Session:        s,
		StatusLabel:    s.Status.Label(),
		AllowedActions: permissions.AllowedActions(caller, s),
		NextStatuses:   next,
	}
}

func newSessionViews(caller string, ss []*model.Session) []sessionView {
	out := make([]sessionView, 0, len(ss))
	for _, s := range ss {
		out = append(out, newSessionView(caller, s))
	}
	return out
}
