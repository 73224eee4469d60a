// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// ChangeContext carries who/why metadata for a single mutation. It is passed alongside
// the save call and never persisted on the session itself.
type ChangeContext struct {
	UserID         string
	Reason         string
	AutoTransition bool
	IPAddress      string
	UserAgent      string
	Metadata       map[string]any
}

// Actor returns the acting user, falling back to the session owner when the change
// carries no explicit user (system-initiated saves).
func (c ChangeContext) Actor(s *Session) string {
	if c.UserID != "" {
		return c.UserID
	}
	if s != nil {
		return s.OwnerID
	}
	return ""
}

// Value returns an extra metadata value by key.
func (c ChangeContext) Value(key string) (any, bool) {
	if c.Metadata == nil {
		return nil, false
	}
	v, ok := c.Metadata[key]
	return v, ok
}

// String returns an extra metadata value as a string, or "".
func (c ChangeContext) String(key string) string {
	v, ok := c.Value(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
