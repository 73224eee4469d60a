// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "time"

// User is an account that owns sessions and acts on them.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is an append-only audit log entry for one event on a session.
type Activity struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Type        ActivityType   `json:"action"`
	Description string         `json:"description"`
	UserID      string         `json:"user_id"`
	CreatedAt   time.Time      `json:"created_at"`
	OldStatus   Status         `json:"old_status,omitempty"`
	NewStatus   Status         `json:"new_status,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// StatusHistory is the structured record of one status transition. FromStatus is empty
// for the creation pseudo-transition.
type StatusHistory struct {
	ID                       string         `json:"id"`
	SessionID                string         `json:"session_id"`
	FromStatus               Status         `json:"from_status"`
	ToStatus                 Status         `json:"to_status"`
	ChangedBy                string         `json:"changed_by"`
	ChangedAt                time.Time      `json:"changed_at"`
	Reason                   string         `json:"reason,omitempty"`
	Metadata                 map[string]any `json:"metadata,omitempty"`
	IPAddress                string         `json:"ip_address,omitempty"`
	DurationInPreviousStatus *time.Duration `json:"duration_in_previous_status,omitempty"`
}

// SessionArchive tracks when, why and by whom a session was archived.
type SessionArchive struct {
	SessionID     string         `json:"session_id"`
	ArchivedBy    string         `json:"archived_by"`
	ArchivedAt    time.Time      `json:"archived_at"`
	Reason        string         `json:"reason,omitempty"`
	StatsSnapshot map[string]any `json:"stats_snapshot,omitempty"`
	RestoredAt    *time.Time     `json:"restored_at,omitempty"`
	RestoredBy    string         `json:"restored_by,omitempty"`
}

// UserSessionStats is a derived per-user aggregate. It is a cache, recomputable at any
// time from the session and activity tables.
type UserSessionStats struct {
	UserID            string            `json:"user_id"`
	TotalSessions     int               `json:"total_sessions"`
	CompletedSessions int               `json:"completed_sessions"`
	ArchivedSessions  int               `json:"archived_sessions"`
	FailedSessions    int               `json:"failed_sessions"`
	TotalActivities   int               `json:"total_activities"`
	AvgCompletionTime *time.Duration    `json:"avg_completion_time,omitempty"`
	FastestCompletion *time.Duration    `json:"fastest_completion,omitempty"`
	LastActivity      *time.Time        `json:"last_activity,omitempty"`
	MostActiveDay     string            `json:"most_active_day,omitempty"`
	MostActiveHour    *int              `json:"most_active_hour,omitempty"`
	CompletionRate    float64           `json:"completion_rate"`
	ProductivityScore float64           `json:"productivity_score"`
	NotificationPrefs map[string]string `json:"notification_preferences,omitempty"`
	LastCalculated    time.Time         `json:"last_calculated"`
}
