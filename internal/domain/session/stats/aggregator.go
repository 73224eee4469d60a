// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package stats derives per-user session statistics.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/metrics"
	"github.com/ManuGH/thesisgrey/internal/telemetry"
)

// Aggregator recomputes UserSessionStats from the session and activity tables.
// Every Recompute reads and writes in its own transaction, so the last one to
// commit wins with a full view of the tables. Only first-access computations
// in Get are shared between callers.
type Aggregator struct {
	store   store.Store
	now     func() time.Time
	initial singleflight.Group
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator returns an Aggregator over st.
func NewAggregator(st store.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: st,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute rebuilds and persists the stats row for userID. Notification preferences
// are carried over from the existing row since they are user input, not derived data.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (_ *model.UserSessionStats, err error) {
	ctx, span := telemetry.Tracer("thesisgrey.stats").Start(ctx, "stats.Recompute")
	defer span.End()

	started := time.Now()
	defer func() {
		metrics.RecordStatsRecompute(err == nil, time.Since(started).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var result model.UserSessionStats
	err = a.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return fmt.Errorf("stats: user %s: %w", userID, err)
		}
		sessions, err := tx.QuerySessions(ctx, store.SessionFilter{OwnerID: userID})
		if err != nil {
			return err
		}
		activities, err := tx.QueryActivities(ctx, store.ActivityFilter{UserID: userID})
		if err != nil {
			return err
		}

		result = Compute(userID, sessions, activities, a.now())
		span.SetAttributes(telemetry.StatsAttributes(userID, len(sessions), len(activities))...)

		prev, err := tx.GetUserStats(ctx, userID)
		switch {
		case err == nil:
			result.NotificationPrefs = prev.NotificationPrefs
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return tx.PutUserStats(ctx, &result)
	})
	if err != nil {
		return nil, err
	}

	logger := xglog.WithComponentFromContext(ctx, "stats")
	logger.Debug().
		Str(xglog.FieldEvent, "stats.recomputed").
		Str(xglog.FieldUserID, userID).
		Int("total_sessions", result.TotalSessions).
		Float64("productivity_score", result.ProductivityScore).
		Msg("user statistics recomputed")
	return &result, nil
}

// Get returns the cached row, computing it on first access.
func (a *Aggregator) Get(ctx context.Context, userID string) (*model.UserSessionStats, error) {
	st, err := a.store.GetUserStats(ctx, userID)
	if !errors.Is(err, store.ErrNotFound) {
		return st, err
	}
	v, err, _ := a.initial.Do(userID, func() (any, error) {
		return a.Recompute(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*model.UserSessionStats)
	return &cp, nil
}

// RecomputeBestEffort recomputes and logs failures instead of returning them. Stats are a
// derived cache; a failure here must not fail the caller's mutation.
func (a *Aggregator) RecomputeBestEffort(ctx context.Context, userIDs ...string) {
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := a.Recompute(ctx, id); err != nil {
			logger := xglog.WithComponentFromContext(ctx, "stats")
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "stats.recompute_failed").
				Str(xglog.FieldUserID, id).
				Msg("statistics recomputation failed; continuing")
		}
	}
}
