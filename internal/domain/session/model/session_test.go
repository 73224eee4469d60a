// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSession() *Session {
	return &Session{
		ID:      NewID(),
		Title:   "Grey literature on remote care",
		Status:  StatusDraft,
		OwnerID: "u1",
	}
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Session) {}},
		{name: "blank title", mutate: func(s *Session) { s.Title = "   " }, wantErr: true},
		{name: "title at limit", mutate: func(s *Session) { s.Title = strings.Repeat("é", MaxTitleLength) }},
		{name: "title too long", mutate: func(s *Session) { s.Title = strings.Repeat("a", MaxTitleLength+1) }, wantErr: true},
		{name: "description too long", mutate: func(s *Session) { s.Description = strings.Repeat("a", MaxDescriptionLength+1) }, wantErr: true},
		{name: "unknown status", mutate: func(s *Session) { s.Status = "paused" }, wantErr: true},
		{name: "unknown visibility", mutate: func(s *Session) { s.Visibility = "secret" }, wantErr: true},
		{name: "missing owner", mutate: func(s *Session) { s.OwnerID = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSessionValidate_NormalisesTitleAndVisibility(t *testing.T) {
	s := validSession()
	s.Title = "  padded  "
	require.NoError(t, s.Validate())
	assert.Equal(t, "padded", s.Title)
	assert.Equal(t, VisibilityPrivate, s.Visibility)
}

func TestSessionValidate_CountsComposedRunes(t *testing.T) {
	s := validSession()
	// "e" followed by a combining acute accent composes to one rune.
	s.Title = strings.Repeat("e\u0301", MaxTitleLength)
	require.NoError(t, s.Validate())
	assert.Equal(t, strings.Repeat("\u00e9", MaxTitleLength), s.Title)
}

func TestSessionClone_IsDeep(t *testing.T) {
	now := time.Now()
	s := validSession()
	s.CompletedAt = &now

	cp := s.Clone()
	later := now.Add(time.Hour)
	*cp.CompletedAt = later

	assert.True(t, s.CompletedAt.Equal(now))
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestStatusValid(t *testing.T) {
	for _, st := range AllStatuses {
		assert.True(t, st.Valid(), st)
		assert.NotEmpty(t, st.Label())
	}
	assert.False(t, Status("").Valid())
	assert.Equal(t, "weird", Status("weird").Label())
}

func TestChangeContextActor(t *testing.T) {
	s := validSession()
	assert.Equal(t, "u1", ChangeContext{}.Actor(s))
	assert.Equal(t, "u2", ChangeContext{UserID: "u2"}.Actor(s))
	assert.Equal(t, "", ChangeContext{}.Actor(nil))

	cc := ChangeContext{Metadata: map[string]any{"failure_reason": "timeout", "n": 3}}
	assert.Equal(t, "timeout", cc.String("failure_reason"))
	assert.Equal(t, "", cc.String("n"))
	assert.Equal(t, "", cc.String("missing"))
}

func TestIsSafeID(t *testing.T) {
	assert.True(t, IsSafeID(NewID()))
	assert.True(t, IsSafeID("import-2025_01"))
	for _, id := range []string{"", "../x", "a b", "a/b", "ü"} {
		assert.False(t, IsSafeID(id), id)
	}
}

func TestActivityTypeMetricLabel(t *testing.T) {
	for _, ty := range CanonicalActivityTypes {
		assert.True(t, ty.IsCanonical())
		assert.Equal(t, string(ty), ty.MetricLabel())
	}
	assert.False(t, ActivityType("IMPORTED").IsCanonical())
	assert.Equal(t, "custom", ActivityType("IMPORTED").MetricLabel())
}
