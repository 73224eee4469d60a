// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package permissions is the single authority on what a user may do with a session.
// HTTP handlers, the repository and view rendering all consult it.
package permissions

import (
	"errors"
	"fmt"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

// Action names a gated operation.
type Action string

const (
	ActionView          Action = "view"
	ActionEdit          Action = "edit"
	ActionDelete        Action = "delete"
	ActionDuplicate     Action = "duplicate"
	ActionArchive       Action = "archive"
	ActionUnarchive     Action = "unarchive"
	ActionExecuteSearch Action = "execute_search"
	ActionReviewResults Action = "review_results"

	// ActionDeleteUser gates account removal rather than a session.
	ActionDeleteUser Action = "delete_user"
)

// ErrPermissionDenied is the class of all gate rejections.
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError names the rejected action and why.
type DeniedError struct {
	Action    Action
	UserID    string
	SessionID string
	Reason    string
}

func (e *DeniedError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("permission denied: %s: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("permission denied: %s on session %s: %s", e.Action, e.SessionID, e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }

type rule struct {
	action Action
	allow  func(model.Status) bool
	reason string
}

func statusIn(set ...model.Status) func(model.Status) bool {
	return func(s model.Status) bool {
		for _, v := range set {
			if v == s {
				return true
			}
		}
		return false
	}
}

// rules are evaluated in display order by AllowedActions. Ownership is checked first
// for every rule.
var rules = []rule{
	{ActionView, func(model.Status) bool { return true }, ""},
	{ActionEdit, statusIn(model.StatusDraft, model.StatusStrategyReady), "only draft or strategy_ready sessions can be edited"},
	{ActionDelete, statusIn(model.StatusDraft), "only draft sessions can be deleted"},
	{ActionDuplicate, func(s model.Status) bool { return s != model.StatusDraft }, "draft sessions cannot be duplicated"},
	{ActionArchive, statusIn(model.StatusCompleted), "only completed sessions can be archived"},
	{ActionUnarchive, statusIn(model.StatusArchived), "only archived sessions can be unarchived"},
	{ActionExecuteSearch, statusIn(model.StatusStrategyReady), "searches run only from strategy_ready"},
	{ActionReviewResults, statusIn(model.StatusReadyForReview, model.StatusInReview), "results can be reviewed only when ready_for_review or in_review"},
}

func lookup(a Action) (rule, bool) {
	for _, r := range rules {
		if r.action == a {
			return r, true
		}
	}
	return rule{}, false
}

// Can reports whether userID may perform a on s.
func Can(userID string, s *model.Session, a Action) bool {
	return Check(userID, s, a) == nil
}

// Check returns nil when allowed and a *DeniedError otherwise.
func Check(userID string, s *model.Session, a Action) error {
	deny := func(reason string) error {
		id := ""
		if s != nil {
			id = s.ID
		}
		return &DeniedError{Action: a, UserID: userID, SessionID: id, Reason: reason}
	}
	r, ok := lookup(a)
	if !ok {
		return deny("unknown action")
	}
	if !s.IsOwnedBy(userID) {
		return deny("not the session owner")
	}
	if !r.allow(s.Status) {
		return deny(r.reason)
	}
	return nil
}

func CanView(userID string, s *model.Session) bool { return Can(userID, s, ActionView) }
func CanEdit(userID string, s *model.Session) bool { return Can(userID, s, ActionEdit) }
func CanDelete(userID string, s *model.Session) bool { return Can(userID, s, ActionDelete) }
func CanDuplicate(userID string, s *model.Session) bool { return Can(userID, s, ActionDuplicate) }
func CanArchive(userID string, s *model.Session) bool { return Can(userID, s, ActionArchive) }
func CanUnarchive(userID string, s *model.Session) bool { return Can(userID, s, ActionUnarchive) }
func CanExecuteSearch(userID string, s *model.Session) bool { return Can(userID, s, ActionExecuteSearch) }
func CanReviewResults(userID string, s *model.Session) bool { return Can(userID, s, ActionReviewResults) }

// AllowedActions evaluates every predicate and returns the passing actions in a stable
// order. Non-owners get an empty, non-nil slice.
func AllowedActions(userID string, s *model.Session) []Action {
	out := make([]Action, 0, len(rules))
	for _, r := range rules {
		if Can(userID, s, r.action) {
			out = append(out, r.action)
		}
	}
	return out
}

// AllActions lists every gated action.
func AllActions() []Action {
	out := make([]Action, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.action)
	}
	return out
}

// CheckUserDeletion allows users to remove only their own account.
func CheckUserDeletion(actor, target string) error {
	if actor == "" || actor != target {
		return &DeniedError{Action: ActionDeleteUser, UserID: actor, Reason: "users can only delete their own account"}
	}
	return nil
}
