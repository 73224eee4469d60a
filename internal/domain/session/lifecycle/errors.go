// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

// ErrInvalidTransition is the class of all rejected status changes.
var ErrInvalidTransition = errors.New("invalid status transition")

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError struct {
	From    model.Status
	To      model.Status
	Allowed []model.Status
}

func (e *InvalidTransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "(new)"
	}
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot transition from %s to %s: no transitions are allowed from %s", from, e.To, from)
	}
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition from %s to %s: allowed transitions are %s", from, e.To, strings.Join(names, ", "))
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
