// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package stats

import (
	"time"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

// weekdays in tie-break order.
var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// Compute derives a user's aggregate from scratch. It is pure: the same inputs and now
// always produce the same result.
func Compute(userID string, sessions []*model.Session, activities []*model.Activity, now time.Time) model.UserSessionStats {
	st := model.UserSessionStats{UserID: userID, LastCalculated: now}

	var total time.Duration
	var timed int
	for _, s := range sessions {
		st.TotalSessions++
		switch s.Status {
		case model.StatusCompleted:
			st.CompletedSessions++
		case model.StatusArchived:
			st.ArchivedSessions++
		case model.StatusFailed:
			st.FailedSessions++
		}
		if s.StartedAt == nil || s.CompletedAt == nil {
			continue
		}
		d := s.CompletedAt.Sub(*s.StartedAt)
		if d < 0 {
			continue
		}
		total += d
		timed++
		if st.FastestCompletion == nil || d < *st.FastestCompletion {
			fastest := d
			st.FastestCompletion = &fastest
		}
	}
	if timed > 0 {
		avg := total / time.Duration(timed)
		st.AvgCompletionTime = &avg
	}

	var dayCounts [7]int
	var hourCounts [24]int
	for _, a := range activities {
		st.TotalActivities++
		if st.LastActivity == nil || a.CreatedAt.After(*st.LastActivity) {
			last := a.CreatedAt
			st.LastActivity = &last
		}
		at := a.CreatedAt.UTC()
		dayCounts[at.Weekday()]++
		hourCounts[at.Hour()]++
	}
	if st.TotalActivities > 0 {
		best := weekdays[0]
		for _, d := range weekdays[1:] {
			if dayCounts[d] > dayCounts[best] {
				best = d
			}
		}
		st.MostActiveDay = best.String()

		hour := 0
		for h := 1; h < 24; h++ {
			if hourCounts[h] > hourCounts[hour] {
				hour = h
			}
		}
		st.MostActiveHour = &hour
	}

	st.CompletionRate = CompletionRate(st.TotalSessions, st.CompletedSessions)
	st.ProductivityScore = ProductivityScore(
		st.CompletionRate,
		FailureRate(st.TotalSessions, st.FailedSessions),
		RecencyScore(st.LastActivity, now),
	)
	return st
}
