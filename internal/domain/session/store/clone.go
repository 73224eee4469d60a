// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"maps"
	"time"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

func cloneUser(u *model.User) *model.User {
	cp := *u
	return &cp
}

func cloneActivity(a *model.Activity) *model.Activity {
	cp := *a
	cp.Metadata = maps.Clone(a.Metadata)
	return &cp
}

func cloneHistory(h *model.StatusHistory) *model.StatusHistory {
	cp := *h
	cp.Metadata = maps.Clone(h.Metadata)
	if h.DurationInPreviousStatus != nil {
		d := *h.DurationInPreviousStatus
		cp.DurationInPreviousStatus = &d
	}
	return &cp
}

func cloneArchive(a *model.SessionArchive) *model.SessionArchive {
	cp := *a
	cp.StatsSnapshot = maps.Clone(a.StatsSnapshot)
	cp.RestoredAt = clonePtr(a.RestoredAt)
	return &cp
}

func cloneStats(st *model.UserSessionStats) *model.UserSessionStats {
	cp := *st
	cp.AvgCompletionTime = clonePtr(st.AvgCompletionTime)
	cp.FastestCompletion = clonePtr(st.FastestCompletion)
	cp.LastActivity = clonePtr(st.LastActivity)
	cp.MostActiveHour = clonePtr(st.MostActiveHour)
	cp.NotificationPrefs = maps.Clone(st.NotificationPrefs)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func toMS(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMS(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
