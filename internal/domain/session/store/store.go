// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists users, review sessions and their audit trail.
package store

import (
	"context"
	"errors"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

var (
	// ErrNotFound is returned when a keyed lookup has no row.
	ErrNotFound = errors.New("store: not found")
	// ErrUserReferenced is returned when deleting a user still referenced by a session,
	// activity or status-history row.
	ErrUserReferenced = errors.New("store: user is still referenced")
	// ErrConstraint is returned when a write references a missing parent row.
	ErrConstraint = errors.New("store: constraint violation")
	// ErrDuplicate is returned when a write would repeat a unique value, such as a
	// username already taken by another user.
	ErrDuplicate = errors.New("store: duplicate value")
)

// SessionFilter narrows QuerySessions. Zero values match everything.
type SessionFilter struct {
	OwnerID  string
	Statuses []model.Status
}

// ActivityFilter narrows activity queries. Results are newest first; Limit <= 0 means
// no limit.
type ActivityFilter struct {
	SessionID string
	UserID    string
	Types     []model.ActivityType
	Limit     int
}

// Tx is the set of operations available both directly on a Store and inside Atomic.
type Tx interface {
	PutUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	PutSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	QuerySessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error)

	AppendActivity(ctx context.Context, a *model.Activity) error
	QueryActivities(ctx context.Context, filter ActivityFilter) ([]*model.Activity, error)
	CountActivities(ctx context.Context, filter ActivityFilter) (int, error)

	AppendStatusHistory(ctx context.Context, h *model.StatusHistory) error
	ListStatusHistory(ctx context.Context, sessionID string) ([]*model.StatusHistory, error)

	GetArchive(ctx context.Context, sessionID string) (*model.SessionArchive, error)
	PutArchive(ctx context.Context, a *model.SessionArchive) error

	GetUserStats(ctx context.Context, userID string) (*model.UserSessionStats, error)
	PutUserStats(ctx context.Context, st *model.UserSessionStats) error
}

// Store is a Tx plus transactional grouping. Every write inside Atomic commits
// together or not at all. fn must only use the Tx it is handed.
type Store interface {
	Tx
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

func statusIn(s model.Status, set []model.Status) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func typeIn(t model.ActivityType, set []model.ActivityType) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == t {
			return true
		}
	}
	return false
}
