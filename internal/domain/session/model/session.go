// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// ErrValidation is the class of all field-level validation failures.
var ErrValidation = errors.New("validation failed")

// Session is one literature-review workflow instance.
type Session struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	Visibility     Visibility `json:"visibility"`
	OwnerID        string     `json:"owner_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastModifiedBy string     `json:"last_modified_by,omitempty"`
}

// Clone returns a deep copy so stores never share pointers with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.StartedAt = cloneTime(s.StartedAt)
	cp.CompletedAt = cloneTime(s.CompletedAt)
	return &cp
}

// Validate checks the persisted-field invariants. Title and description are
// normalised to NFC before their lengths are counted, and the title is trimmed.
func (s *Session) Validate() error {
	s.Title = norm.NFC.String(strings.TrimSpace(s.Title))
	s.Description = norm.NFC.String(s.Description)
	if s.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(s.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if utf8.RuneCountInString(s.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, s.Status)
	}
	if s.Visibility == "" {
		s.Visibility = VisibilityPrivate
	}
	if !s.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrValidation, s.Visibility)
	}
	if strings.TrimSpace(s.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	return nil
}

// IsOwnedBy reports whether userID owns the session.
func (s *Session) IsOwnedBy(userID string) bool {
	return s != nil && userID != "" && s.OwnerID == userID
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
