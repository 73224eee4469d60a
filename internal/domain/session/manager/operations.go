// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/domain/session/lifecycle"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/permissions"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/metrics"
)

const copySuffix = " (Copy)"

// Create stores a new draft session owned by owner.
func (r *Repository) Create(ctx context.Context, owner, title, description string, cc model.ChangeContext) (*model.Session, error) {
	if cc.UserID == "" {
		cc.UserID = owner
	}
	return r.Save(ctx, &model.Session{
		OwnerID:     owner,
		Title:       title,
		Description: description,
		Status:      model.StatusDraft,
		Visibility:  model.VisibilityPrivate,
	}, cc)
}

// Get returns the session or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*model.Session, error) {
	return r.store.GetSession(ctx, id)
}

// View returns the session when actor may see it.
func (r *Repository) View(ctx context.Context, actor, id string) (*model.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, actor, s, permissions.ActionView); err != nil {
		return nil, err
	}
	return s, nil
}

// ListForOwner returns owner's sessions, newest first, optionally narrowed to statuses.
func (r *Repository) ListForOwner(ctx context.Context, owner string, statuses ...model.Status) ([]*model.Session, error) {
	return r.store.QuerySessions(ctx, store.SessionFilter{OwnerID: owner, Statuses: statuses})
}

// Transition moves session id to status to. The edge is validated before
// anything is written; a rejected transition leaves the session untouched.
// When cc names a user, that user must own the session.
func (r *Repository) Transition(ctx context.Context, id string, to model.Status, cc model.ChangeContext) (*model.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if cc.UserID != "" {
		if err := r.authorize(ctx, cc.UserID, s, permissions.ActionView); err != nil {
			return nil, err
		}
	}
	if err := lifecycle.Validate(s.Status, to); err != nil {
		metrics.RecordSave(metrics.SaveRejected)
		return nil, err
	}
	s.Status = to
	return r.Save(ctx, s, cc)
}

// Update edits title and description of an editable session.
func (r *Repository) Update(ctx context.Context, actor, id, title, description string) (*model.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, actor, s, permissions.ActionEdit); err != nil {
		return nil, err
	}
	s.Title = title
	s.Description = description
	return r.Save(ctx, s, model.ChangeContext{UserID: actor})
}

// Delete removes a draft session with its activities, history and archive record.
func (r *Repository) Delete(ctx context.Context, actor, id string) error {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if err := r.authorize(ctx, actor, s, permissions.ActionDelete); err != nil {
		return err
	}
	if err := r.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.DeleteSession(ctx, id)
	}); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	metrics.RecordSave(metrics.SaveDeleted)
	r.audit.SessionDeleted(ctx, actor, id, s.Title)
	logger := xglog.WithComponentFromContext(ctx, "sessions")
	logger.Info().
		Str(xglog.FieldEvent, "session.deleted").
		Str(xglog.FieldSessionID, id).
		Str(xglog.FieldUserID, actor).
		Msg("session deleted")

	r.stats.RecomputeBestEffort(ctx, s.OwnerID)
	return nil
}

// Duplicate creates a draft copy of a non-draft session and logs a DUPLICATED
// activity on the copy pointing back at the source.
func (r *Repository) Duplicate(ctx context.Context, actor, id string) (*model.Session, error) {
	src, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, actor, src, permissions.ActionDuplicate); err != nil {
		return nil, err
	}

	cp := &model.Session{
		OwnerID:     src.OwnerID,
		Title:       copyTitle(src.Title),
		Description: src.Description,
		Status:      model.StatusDraft,
		Visibility:  src.Visibility,
	}
	cc := model.ChangeContext{UserID: actor, Metadata: map[string]any{"duplicated_from": src.ID}}
	return r.save(ctx, cp, cc, func(ctx context.Context, tx store.Tx, saved *model.Session, at time.Time) error {
		return tx.AppendActivity(ctx, &model.Activity{
			ID:          r.newID(),
			SessionID:   saved.ID,
			Type:        model.ActivityDuplicated,
			Description: fmt.Sprintf("Duplicated from %q", src.Title),
			UserID:      actor,
			CreatedAt:   at,
			Metadata: map[string]any{
				"source_session_id": src.ID,
				"source_title":      src.Title,
				"source_status":     string(src.Status),
			},
		})
	})
}

func copyTitle(title string) string {
	limit := model.MaxTitleLength - utf8.RuneCountInString(copySuffix)
	if utf8.RuneCountInString(title) > limit {
		title = string([]rune(title)[:limit])
	}
	return title + copySuffix
}

// Archive moves a completed session to archived.
func (r *Repository) Archive(ctx context.Context, actor, id, reason string) (*model.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, actor, s, permissions.ActionArchive); err != nil {
		return nil, err
	}
	s.Status = model.StatusArchived
	cc := model.ChangeContext{UserID: actor, Reason: reason}
	out, err := r.save(ctx, s, cc, r.businessEvent(actor, model.ActivityArchived, "Session archived", reason))
	if err != nil {
		return nil, err
	}
	r.audit.SessionArchived(ctx, actor, id, reason)
	return out, nil
}

// Unarchive restores an archived session to completed.
func (r *Repository) Unarchive(ctx context.Context, actor, id string) (*model.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, actor, s, permissions.ActionUnarchive); err != nil {
		return nil, err
	}
	s.Status = model.StatusCompleted
	out, err := r.save(ctx, s, model.ChangeContext{UserID: actor}, r.businessEvent(actor, model.ActivityUnarchived, "Session restored from archive", ""))
	if err != nil {
		return nil, err
	}
	r.audit.SessionUnarchived(ctx, actor, id)
	return out, nil
}

func (r *Repository) businessEvent(actor string, ty model.ActivityType, desc, reason string) afterSave {
	return func(ctx context.Context, tx store.Tx, saved *model.Session, at time.Time) error {
		var md map[string]any
		if reason != "" {
			md = map[string]any{"reason": reason}
		}
		return tx.AppendActivity(ctx, &model.Activity{
			ID:          r.newID(),
			SessionID:   saved.ID,
			Type:        ty,
			Description: desc,
			UserID:      actor,
			CreatedAt:   at,
			Metadata:    md,
		})
	}
}

// AddNote appends a NOTE_ADDED activity written by the owner.
func (r *Repository) AddNote(ctx context.Context, actor, id, text string) (*model.Activity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: note is empty", model.ErrValidation)
	}
	if utf8.RuneCountInString(text) > model.MaxDescriptionLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", model.ErrValidation, model.MaxDescriptionLength)
	}
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(ctx, actor, s, permissions.ActionView); err != nil {
		return nil, err
	}
	return r.LogActivity(ctx, &model.Activity{
		SessionID:   id,
		Type:        model.ActivityNoteAdded,
		Description: "Note added",
		UserID:      actor,
		Metadata:    map[string]any{"note": text},
	})
}

// LogActivity appends a business event that is not a session save. ID and
// CreatedAt are assigned here; any non-empty type tag is accepted.
func (r *Repository) LogActivity(ctx context.Context, a *model.Activity) (*model.Activity, error) {
	if a == nil || a.Type == "" {
		return nil, fmt.Errorf("%w: activity type is required", model.ErrValidation)
	}
	if a.UserID == "" {
		return nil, fmt.Errorf("%w: acting user is required", model.ErrValidation)
	}
	cp := *a
	cp.ID = r.newID()
	cp.CreatedAt = r.now()
	if err := r.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.AppendActivity(ctx, &cp)
	}); err != nil {
		return nil, fmt.Errorf("log %s activity: %w", cp.Type, err)
	}
	metrics.RecordActivityLogged(cp.Type.MetricLabel())
	r.stats.RecomputeBestEffort(ctx, cp.UserID)
	return &cp, nil
}

// Activities returns the newest activities of a session, at most limit when positive.
func (r *Repository) Activities(ctx context.Context, id string, limit int) ([]*model.Activity, error) {
	return r.store.QueryActivities(ctx, store.ActivityFilter{SessionID: id, Limit: limit})
}

// QueryActivities runs an activity query across sessions.
func (r *Repository) QueryActivities(ctx context.Context, filter store.ActivityFilter) ([]*model.Activity, error) {
	return r.store.QueryActivities(ctx, filter)
}

// History returns the status history of a session, oldest first.
func (r *Repository) History(ctx context.Context, id string) ([]*model.StatusHistory, error) {
	return r.store.ListStatusHistory(ctx, id)
}

// ArchiveRecord returns the archive satellite of a session or store.ErrNotFound.
func (r *Repository) ArchiveRecord(ctx context.Context, id string) (*model.SessionArchive, error) {
	return r.store.GetArchive(ctx, id)
}

// CreateUser registers a user that can own and act on sessions.
func (r *Repository) CreateUser(ctx context.Context, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	u := &model.User{ID: r.newID(), Username: username, Email: strings.TrimSpace(email), CreatedAt: r.now()}
	if err := r.store.PutUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes the actor's own account. Users still referenced by sessions,
// activities or status history are protected and yield store.ErrUserReferenced.
func (r *Repository) DeleteUser(ctx context.Context, actor, userID string) error {
	if err := permissions.CheckUserDeletion(actor, userID); err != nil {
		metrics.RecordPermissionDenied(string(permissions.ActionDeleteUser))
		r.audit.UserDeleted(ctx, actor, userID, audit.ResultDenied)
		return err
	}
	err := r.store.DeleteUser(ctx, userID)
	switch {
	case err == nil:
		r.audit.UserDeleted(ctx, actor, userID, audit.ResultSuccess)
	case errors.Is(err, store.ErrUserReferenced):
		r.audit.UserDeleted(ctx, actor, userID, audit.ResultDenied)
	default:
		r.audit.UserDeleted(ctx, actor, userID, audit.ResultFailure)
	}
	return err
}

// authorize runs the permission gate and reports denials to metrics and the audit log.
func (r *Repository) authorize(ctx context.Context, actor string, s *model.Session, action permissions.Action) error {
	err := permissions.Check(actor, s, action)
	if err == nil {
		return nil
	}
	metrics.RecordPermissionDenied(string(action))
	reason := err.Error()
	var denied *permissions.DeniedError
	if errors.As(err, &denied) {
		reason = denied.Reason
	}
	r.audit.PermissionDenied(ctx, actor, string(action), s.ID, reason)
	return err
}
