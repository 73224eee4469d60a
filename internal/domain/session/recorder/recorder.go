// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recorder writes the audit trail for a session save: Activity rows,
// StatusHistory rows and the archive/completion side effects of certain transitions.
// It runs inside the caller's store transaction, so a failure rolls back the save.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/ManuGH/thesisgrey/internal/domain/session/lifecycle"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/stats"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
)

// Kind is the shape of a recorded save.
type Kind string

const (
	KindCreated       Kind = "created"
	KindModified      Kind = "modified"
	KindStatusChanged Kind = "status_changed"
)

// Change describes one persisted save. Before is nil for a creation.
type Change struct {
	Before  *model.Session
	After   *model.Session
	Context model.ChangeContext
	At      time.Time
}

// Result summarises what was written.
type Result struct {
	Kind           Kind
	Classification lifecycle.Classification
	Activities     []*model.Activity
	History        *model.StatusHistory
}

// Recorder writes audit rows.
type Recorder struct {
	newID func() string
}

// New returns a Recorder that mints ids with model.NewID.
func New() *Recorder {
	return &Recorder{newID: model.NewID}
}

// Record writes the audit trail for ch using tx.
func (r *Recorder) Record(ctx context.Context, tx store.Tx, ch Change) (*Result, error) {
	if ch.After == nil {
		return nil, errors.New("recorder: change has no session")
	}
	w := &writer{r: r, tx: tx, ch: ch, actor: ch.Context.Actor(ch.After), res: &Result{}}

	var err error
	switch {
	case ch.Before == nil:
		err = w.created(ctx)
	case ch.Before.Status == ch.After.Status:
		err = w.modified(ctx)
	default:
		err = w.statusChanged(ctx)
	}
	if err != nil {
		return nil, err
	}
	return w.res, nil
}

type writer struct {
	r     *Recorder
	tx    store.Tx
	ch    Change
	actor string
	res   *Result
}

// baseMetadata carries the request fingerprint plus any caller-supplied extras.
func (w *writer) baseMetadata() map[string]any {
	md := maps.Clone(w.ch.Context.Metadata)
	if md == nil {
		md = make(map[string]any)
	}
	if w.ch.Context.IPAddress != "" {
		md["ip_address"] = w.ch.Context.IPAddress
	}
	if w.ch.Context.UserAgent != "" {
		md["user_agent"] = w.ch.Context.UserAgent
	}
	return md
}

func (w *writer) activity(ctx context.Context, ty model.ActivityType, desc string, md map[string]any) error {
	a := &model.Activity{
		ID:          w.r.newID(),
		SessionID:   w.ch.After.ID,
		Type:        ty,
		Description: desc,
		UserID:      w.actor,
		CreatedAt:   w.ch.At,
		Metadata:    md,
	}
	if ty == model.ActivityStatusChanged {
		a.OldStatus = w.ch.Before.Status
		a.NewStatus = w.ch.After.Status
	}
	if err := w.tx.AppendActivity(ctx, a); err != nil {
		return fmt.Errorf("recorder: %s activity: %w", ty, err)
	}
	w.res.Activities = append(w.res.Activities, a)
	return nil
}

func (w *writer) history(ctx context.Context, from model.Status, dur *time.Duration) error {
	md := w.baseMetadata()
	md["auto_transition"] = w.ch.Context.AutoTransition
	h := &model.StatusHistory{
		ID:                       w.r.newID(),
		SessionID:                w.ch.After.ID,
		FromStatus:               from,
		ToStatus:                 w.ch.After.Status,
		ChangedBy:                w.actor,
		ChangedAt:                w.ch.At,
		Reason:                   w.ch.Context.Reason,
		Metadata:                 md,
		IPAddress:                w.ch.Context.IPAddress,
		DurationInPreviousStatus: dur,
	}
	if err := w.tx.AppendStatusHistory(ctx, h); err != nil {
		return fmt.Errorf("recorder: status history: %w", err)
	}
	w.res.History = h
	return nil
}

func (w *writer) created(ctx context.Context) error {
	s := w.ch.After
	w.res.Kind = KindCreated
	w.res.Classification = lifecycle.ClassCreation

	if err := w.history(ctx, "", nil); err != nil {
		return err
	}
	md := w.baseMetadata()
	md["title"] = s.Title
	md["description"] = s.Description
	md["initial_status"] = string(s.Status)
	return w.activity(ctx, model.ActivityCreated, fmt.Sprintf("Session %q created", s.Title), md)
}

func (w *writer) modified(ctx context.Context) error {
	w.res.Kind = KindModified
	md := w.baseMetadata()
	if fields := changedFields(w.ch.Before, w.ch.After); len(fields) > 0 {
		md["changed_fields"] = fields
	}
	if w.ch.Context.Reason != "" {
		md["reason"] = w.ch.Context.Reason
	}
	return w.activity(ctx, model.ActivityModified, fmt.Sprintf("Session %q updated", w.ch.After.Title), md)
}

func changedFields(before, after *model.Session) []string {
	var out []string
	if before.Title != after.Title {
		out = append(out, "title")
	}
	if before.Description != after.Description {
		out = append(out, "description")
	}
	if before.Visibility != after.Visibility {
		out = append(out, "visibility")
	}
	return out
}

func (w *writer) statusChanged(ctx context.Context) error {
	before, after := w.ch.Before, w.ch.After
	from, to := before.Status, after.Status
	class := lifecycle.Classify(from, to)
	w.res.Kind = KindStatusChanged
	w.res.Classification = class

	dur := w.ch.At.Sub(before.UpdatedAt)
	if dur < 0 {
		dur = 0
	}
	if err := w.history(ctx, from, &dur); err != nil {
		return err
	}

	md := w.baseMetadata()
	md["classification"] = string(class)
	md["is_progression"] = lifecycle.IsProgression(from, to)
	md["is_regression"] = lifecycle.IsRegression(from, to)
	md["is_error_recovery"] = lifecycle.IsErrorRecovery(from, to)
	md["auto_transition"] = w.ch.Context.AutoTransition
	if w.ch.Context.Reason != "" {
		md["reason"] = w.ch.Context.Reason
	}
	desc := fmt.Sprintf("Status changed from %s to %s", from.Label(), to.Label())
	if err := w.activity(ctx, model.ActivityStatusChanged, desc, md); err != nil {
		return err
	}

	switch {
	case to == model.StatusArchived:
		if err := w.archived(ctx); err != nil {
			return err
		}
	case to == model.StatusCompleted && before.CompletedAt == nil:
		if err := w.firstCompletion(ctx); err != nil {
			return err
		}
	case to == model.StatusFailed:
		if err := w.failed(ctx); err != nil {
			return err
		}
	}
	if from == model.StatusArchived {
		return w.restored(ctx)
	}
	return nil
}

func (w *writer) archived(ctx context.Context) error {
	s := w.ch.After
	snapshot, err := stats.SessionSnapshot(ctx, w.tx, s, w.ch.At)
	if err != nil {
		return fmt.Errorf("recorder: archive snapshot: %w", err)
	}

	rec, err := w.tx.GetArchive(ctx, s.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = &model.SessionArchive{SessionID: s.ID}
	case err != nil:
		return err
	}
	rec.ArchivedBy = w.actor
	rec.ArchivedAt = w.ch.At
	rec.Reason = w.ch.Context.Reason
	rec.StatsSnapshot = snapshot
	rec.RestoredAt = nil
	rec.RestoredBy = ""
	if err := w.tx.PutArchive(ctx, rec); err != nil {
		return fmt.Errorf("recorder: archive record: %w", err)
	}

	md := w.baseMetadata()
	md["event"] = "archived"
	if rec.Reason != "" {
		md["reason"] = rec.Reason
	}
	return w.activity(ctx, model.ActivitySystem, fmt.Sprintf("Session %q archived", s.Title), md)
}

func (w *writer) restored(ctx context.Context) error {
	s := w.ch.After
	rec, err := w.tx.GetArchive(ctx, s.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Archived without a record (e.g. imported data): create one so the restore is tracked.
		rec = &model.SessionArchive{
			SessionID:  s.ID,
			ArchivedBy: w.actor,
			ArchivedAt: w.ch.Before.UpdatedAt,
		}
	case err != nil:
		return err
	}
	at := w.ch.At
	rec.RestoredAt = &at
	rec.RestoredBy = w.actor
	if err := w.tx.PutArchive(ctx, rec); err != nil {
		return fmt.Errorf("recorder: archive restore: %w", err)
	}

	md := w.baseMetadata()
	md["event"] = "restored"
	md["restored_to"] = string(s.Status)
	return w.activity(ctx, model.ActivitySystem, fmt.Sprintf("Session %q restored from archive", s.Title), md)
}

func (w *writer) firstCompletion(ctx context.Context) error {
	s := w.ch.After
	snapshot, err := stats.SessionSnapshot(ctx, w.tx, s, w.ch.At)
	if err != nil {
		return fmt.Errorf("recorder: completion snapshot: %w", err)
	}
	md := w.baseMetadata()
	md["stats"] = snapshot
	if s.StartedAt != nil && s.CompletedAt != nil {
		md["completion_seconds"] = s.CompletedAt.Sub(*s.StartedAt).Seconds()
	}
	return w.activity(ctx, model.ActivityReviewCompleted, fmt.Sprintf("Review of %q completed", s.Title), md)
}

func (w *writer) failed(ctx context.Context) error {
	md := w.baseMetadata()
	md["previous_status"] = string(w.ch.Before.Status)
	reason := w.ch.Context.String("failure_reason")
	if reason == "" {
		reason = w.ch.Context.Reason
	}
	if reason != "" {
		md["failure_reason"] = reason
	}
	if details, ok := w.ch.Context.Value("error_details"); ok {
		md["error_details"] = details
	}
	desc := fmt.Sprintf("Session failed while %s", w.ch.Before.Status.Label())
	return w.activity(ctx, model.ActivityError, desc, md)
}
