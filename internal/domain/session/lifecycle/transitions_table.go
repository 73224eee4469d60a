// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/thesisgrey/internal/domain/session/model"

// transitionsTable is the complete set of allowed status edges. Anything not listed
// here is rejected.
var transitionsTable = map[model.Status][]model.Status{
	model.StatusDraft:          {model.StatusStrategyReady},
	model.StatusStrategyReady:  {model.StatusExecuting, model.StatusDraft},
	model.StatusExecuting:      {model.StatusProcessing, model.StatusFailed},
	model.StatusProcessing:     {model.StatusReadyForReview, model.StatusFailed},
	model.StatusReadyForReview: {model.StatusInReview},
	model.StatusInReview:       {model.StatusCompleted, model.StatusReadyForReview},
	model.StatusCompleted:      {model.StatusArchived, model.StatusInReview},
	model.StatusFailed:         {model.StatusDraft, model.StatusStrategyReady},
	model.StatusArchived:       {model.StatusCompleted},
}

// CanTransition reports whether from -> to is a listed edge.
func CanTransition(from, to model.Status) bool {
	for _, next := range transitionsTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextAllowed returns the statuses reachable from `from` in one step. Unknown states
// yield an empty set.
func NextAllowed(from model.Status) []model.Status {
	next := transitionsTable[from]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}

// Validate returns nil when the transition is allowed, and an *InvalidTransitionError
// naming the allowed alternatives otherwise.
func Validate(from, to model.Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to, Allowed: NextAllowed(from)}
}
