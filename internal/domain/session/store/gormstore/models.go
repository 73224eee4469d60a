// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package gormstore

import "time"

type userRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Username  string    `gorm:"size:150;not null;uniqueIndex"`
	Email     string    `gorm:"size:254;not null;default:''"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
}

func (userRow) TableName() string { return "users" }

type sessionRow struct {
	ID             string     `gorm:"primaryKey;size:64"`
	Title          string     `gorm:"size:200;not null"`
	Description    string     `gorm:"size:1000;not null;default:''"`
	Status         string     `gorm:"size:32;not null;index:idx_sessions_owner_status,priority:2"`
	Visibility     string     `gorm:"size:16;not null"`
	OwnerID        string     `gorm:"size:64;not null;index:idx_sessions_owner_status,priority:1"`
	CreatedAt      time.Time  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime:false"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	LastModifiedBy string `gorm:"size:64;not null;default:''"`
}

func (sessionRow) TableName() string { return "sessions" }

type activityRow struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement"`
	ID          string    `gorm:"size:64;not null;uniqueIndex"`
	SessionID   string    `gorm:"size:64;not null;index:idx_activities_session,priority:1"`
	Action      string    `gorm:"size:64;not null;index"`
	Description string    `gorm:"not null;default:''"`
	UserID      string    `gorm:"size:64;not null;default:'';index:idx_activities_user,priority:1"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false;index:idx_activities_session,priority:2;index:idx_activities_user,priority:2"`
	OldStatus   string    `gorm:"size:32;not null;default:''"`
	NewStatus   string    `gorm:"size:32;not null;default:''"`
	Metadata    string    `gorm:"type:text;not null;default:''"`
}

func (activityRow) TableName() string { return "session_activities" }

type historyRow struct {
	Seq          int64     `gorm:"primaryKey;autoIncrement"`
	ID           string    `gorm:"size:64;not null;uniqueIndex"`
	SessionID    string    `gorm:"size:64;not null;index:idx_history_session,priority:1"`
	FromStatus   string    `gorm:"size:32;not null;default:''"`
	ToStatus     string    `gorm:"size:32;not null"`
	ChangedBy    string    `gorm:"size:64;not null;default:'';index"`
	ChangedAt    time.Time `gorm:"not null;index:idx_history_session,priority:2"`
	Reason       string    `gorm:"not null;default:''"`
	Metadata     string    `gorm:"type:text;not null;default:''"`
	IPAddress    string    `gorm:"size:64;not null;default:''"`
	DurationPrev *int64    `gorm:"column:duration_prev_ms"`
}

func (historyRow) TableName() string { return "session_status_history" }

type archiveRow struct {
	SessionID     string    `gorm:"primaryKey;size:64"`
	ArchivedBy    string    `gorm:"size:64;not null;default:''"`
	ArchivedAt    time.Time `gorm:"not null"`
	Reason        string    `gorm:"not null;default:''"`
	StatsSnapshot string    `gorm:"type:text;not null;default:''"`
	RestoredAt    *time.Time
	RestoredBy    string `gorm:"size:64;not null;default:''"`
}

func (archiveRow) TableName() string { return "session_archives" }

type statsRow struct {
	UserID            string    `gorm:"primaryKey;size:64"`
	TotalSessions     int       `gorm:"not null;default:0"`
	CompletedSessions int       `gorm:"not null;default:0"`
	CompletionRate    float64   `gorm:"not null;default:0"`
	ProductivityScore float64   `gorm:"not null;default:0"`
	Payload           string    `gorm:"type:text;not null"`
	LastCalculated    time.Time `gorm:"not null"`
}

func (statsRow) TableName() string { return "user_session_stats" }

func allModels() []any {
	return []any{&userRow{}, &sessionRow{}, &activityRow{}, &historyRow{}, &archiveRow{}, &statsRow{}}
}
