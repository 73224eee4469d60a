// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manager is the service layer over the session store. Every session
// mutation goes through Repository.Save, which validates the transition, stamps
// timestamps, persists, and writes the audit trail in one transaction, then
// refreshes user statistics outside it.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/thesisgrey/internal/audit"
	"github.com/ManuGH/thesisgrey/internal/domain/session/lifecycle"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/recorder"
	"github.com/ManuGH/thesisgrey/internal/domain/session/stats"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/metrics"
	"github.com/ManuGH/thesisgrey/internal/telemetry"
)

// Repository owns every write to sessions and their audit trail.
type Repository struct {
	store    store.Store
	recorder *recorder.Recorder
	stats    *stats.Aggregator
	audit    *audit.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithAggregator sets the statistics aggregator refreshed after each save.
func WithAggregator(a *stats.Aggregator) Option {
	return func(r *Repository) { r.stats = a }
}

// WithAuditLogger sets the security audit sink.
func WithAuditLogger(l *audit.Logger) Option {
	return func(r *Repository) { r.audit = l }
}

// NewRepository returns a Repository over st.
func NewRepository(st store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:    st,
		recorder: recorder.New(),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID:    model.NewID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.stats == nil {
		r.stats = stats.NewAggregator(st, stats.WithClock(r.now))
	}
	if r.audit == nil {
		r.audit = audit.NewLogger()
	}
	return r
}

// Stats exposes the aggregator the repository refreshes.
func (r *Repository) Stats() *stats.Aggregator { return r.stats }

// afterSave runs inside the save transaction once the session row and its
// audit trail are written.
type afterSave func(ctx context.Context, tx store.Tx, saved *model.Session, at time.Time) error

// Save persists s and records the change. A session without an ID, or with an
// ID not yet stored, is created. Status changes must be listed edges; the
// write is all-or-nothing. Statistics for the actor and owner are refreshed
// afterwards on a best-effort basis.
func (r *Repository) Save(ctx context.Context, s *model.Session, cc model.ChangeContext) (*model.Session, error) {
	return r.save(ctx, s, cc, nil)
}

func (r *Repository) save(ctx context.Context, s *model.Session, cc model.ChangeContext, extra afterSave) (_ *model.Session, err error) {
	if s == nil {
		return nil, fmt.Errorf("%w: session is required", model.ErrValidation)
	}
	cc = withOrigin(ctx, cc)

	ctx, span := telemetry.Tracer("thesisgrey.sessions").Start(ctx, "session.Save",
		trace.WithAttributes(telemetry.SessionAttributes(s.ID, s.OwnerID)...))
	defer span.End()

	var (
		saved *model.Session
		res   *recorder.Result
	)
	err = r.store.Atomic(ctx, func(tx store.Tx) error {
		next := s.Clone()
		before, err := r.preImage(ctx, tx, next)
		if err != nil {
			return err
		}
		now := r.now()
		if err := r.prepare(before, next, cc, now); err != nil {
			return err
		}
		if err := tx.PutSession(ctx, next); err != nil {
			return fmt.Errorf("save session %s: %w", next.ID, err)
		}
		res, err = r.recorder.Record(ctx, tx, recorder.Change{Before: before, After: next, Context: cc, At: now})
		if err != nil {
			return err
		}
		if extra != nil {
			if err := extra(ctx, tx, next, now); err != nil {
				return err
			}
		}
		saved = next
		return nil
	})

	logger := xglog.WithComponentFromContext(ctx, "sessions")
	if err != nil {
		metrics.RecordSave(metrics.SaveRejected)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Info().Err(err).
			Str(xglog.FieldEvent, "session.save_rejected").
			Str(xglog.FieldSessionID, s.ID).
			Str(xglog.FieldNewState, string(s.Status)).
			Msg("session save rejected")
		return nil, err
	}

	r.observe(span, logger, saved, res)
	r.stats.RecomputeBestEffort(ctx, cc.Actor(saved), saved.OwnerID)
	return saved.Clone(), nil
}

// preImage loads the stored version of next, assigning an id to new sessions.
func (r *Repository) preImage(ctx context.Context, tx store.Tx, next *model.Session) (*model.Session, error) {
	if next.ID == "" {
		next.ID = r.newID()
		return nil, nil
	}
	if !model.IsSafeID(next.ID) {
		return nil, fmt.Errorf("%w: session id %q has unsupported characters", model.ErrValidation, next.ID)
	}
	before, err := tx.GetSession(ctx, next.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return before, nil
}

// prepare validates next against its pre-image and stamps system-managed fields.
func (r *Repository) prepare(before, next *model.Session, cc model.ChangeContext, now time.Time) error {
	if before == nil {
		if next.Status == "" {
			next.Status = model.StatusDraft
		}
		if next.Status != model.StatusDraft {
			return &lifecycle.InvalidTransitionError{From: "", To: next.Status, Allowed: []model.Status{model.StatusDraft}}
		}
		next.CreatedAt = now
		next.StartedAt = nil
		next.CompletedAt = nil
	} else {
		if next.OwnerID != before.OwnerID {
			return fmt.Errorf("%w: owner cannot be changed", model.ErrValidation)
		}
		if next.Status != before.Status {
			if err := lifecycle.Validate(before.Status, next.Status); err != nil {
				return err
			}
		}
		next.CreatedAt = before.CreatedAt
		next.StartedAt = before.StartedAt
		next.CompletedAt = before.CompletedAt
		if next.Status != before.Status {
			if next.Status == model.StatusExecuting && next.StartedAt == nil {
				at := now
				next.StartedAt = &at
			}
			if next.Status == model.StatusCompleted && next.CompletedAt == nil {
				at := now
				next.CompletedAt = &at
			}
		}
	}
	next.UpdatedAt = now
	next.LastModifiedBy = cc.Actor(next)
	return next.Validate()
}

func (r *Repository) observe(span trace.Span, logger zerolog.Logger, s *model.Session, res *recorder.Result) {
	switch res.Kind {
	case recorder.KindCreated:
		metrics.RecordSave(metrics.SaveCreated)
		metrics.RecordTransition("", string(s.Status), string(res.Classification))
		logger.Info().
			Str(xglog.FieldEvent, "session.created").
			Str(xglog.FieldSessionID, s.ID).
			Str(xglog.FieldUserID, s.OwnerID).
			Msg("session created")
	case recorder.KindStatusChanged:
		from := string(res.History.FromStatus)
		metrics.RecordSave(metrics.SaveStatusChanged)
		metrics.RecordTransition(from, string(s.Status), string(res.Classification))
		span.SetAttributes(telemetry.TransitionAttributes(from, string(s.Status), string(res.Classification))...)
		logger.Info().
			Str(xglog.FieldEvent, "session.status_changed").
			Str(xglog.FieldSessionID, s.ID).
			Str(xglog.FieldOldState, from).
			Str(xglog.FieldNewState, string(s.Status)).
			Str(xglog.FieldClassification, string(res.Classification)).
			Msg("session status changed")
	default:
		metrics.RecordSave(metrics.SaveModified)
		logger.Debug().
			Str(xglog.FieldEvent, "session.modified").
			Str(xglog.FieldSessionID, s.ID).
			Msg("session updated")
	}
}
