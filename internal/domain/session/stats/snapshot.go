// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package stats

import (
	"context"
	"time"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
)

// SessionSnapshot freezes per-session figures for archive records and completion
// events. Values are JSON-friendly so the snapshot survives a store round trip.
func SessionSnapshot(ctx context.Context, tx store.Tx, s *model.Session, now time.Time) (map[string]any, error) {
	activities, err := tx.CountActivities(ctx, store.ActivityFilter{SessionID: s.ID})
	if err != nil {
		return nil, err
	}
	changes, err := tx.CountActivities(ctx, store.ActivityFilter{
		SessionID: s.ID,
		Types:     []model.ActivityType{model.ActivityStatusChanged},
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"title":          s.Title,
		"status":         string(s.Status),
		"activity_count": activities,
		"status_changes": changes,
		"days_active":    DaysSince(s.CreatedAt, now),
		"captured_at":    now.Format(time.RFC3339),
	}, nil
}
