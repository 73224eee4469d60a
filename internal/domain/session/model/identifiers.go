// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"regexp"

	"github.com/google/uuid"
)

var idRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// IsSafeID returns true if the ID is safe for URLs and cache keys.
func IsSafeID(id string) bool {
	return idRe.MatchString(id)
}
