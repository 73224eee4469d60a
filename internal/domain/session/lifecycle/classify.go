// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/thesisgrey/internal/domain/session/model"

// Classification labels the direction of a status change for audit and analytics.
type Classification string

const (
	ClassCreation      Classification = "creation"
	ClassProgression   Classification = "progression"
	ClassRegression    Classification = "regression"
	ClassErrorRecovery Classification = "error_recovery"
	ClassError         Classification = "error"
	ClassLateral       Classification = "lateral"
)

// lifecycleOrder is the canonical forward order. Failed is deliberately absent: moves
// into and out of it are classified on their own.
var lifecycleOrder = []model.Status{
	model.StatusDraft,
	model.StatusStrategyReady,
	model.StatusExecuting,
	model.StatusProcessing,
	model.StatusReadyForReview,
	model.StatusInReview,
	model.StatusCompleted,
	model.StatusArchived,
}

// LifecycleOrder returns a copy of the canonical forward order.
func LifecycleOrder() []model.Status {
	out := make([]model.Status, len(lifecycleOrder))
	copy(out, lifecycleOrder)
	return out
}

func orderIndex(s model.Status) int {
	for i, st := range lifecycleOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Classify returns the single label recorded on a STATUS_CHANGED activity.
func Classify(from, to model.Status) Classification {
	switch {
	case from == "":
		return ClassCreation
	case to == model.StatusFailed:
		return ClassError
	case from == model.StatusFailed:
		return ClassErrorRecovery
	}
	fi, ti := orderIndex(from), orderIndex(to)
	switch {
	case fi < 0 || ti < 0 || fi == ti:
		return ClassLateral
	case ti > fi:
		return ClassProgression
	default:
		return ClassRegression
	}
}

// IsProgression is true for the creation pseudo-transition and for forward moves in
// the canonical order.
func IsProgression(from, to model.Status) bool {
	if from == "" {
		return true
	}
	fi, ti := orderIndex(from), orderIndex(to)
	return fi >= 0 && ti >= 0 && ti > fi
}

// IsRegression is true for backward moves that are not failures. Leaving failed counts
// as a backward move since failed sits outside the forward order.
func IsRegression(from, to model.Status) bool {
	if from == "" || to == model.StatusFailed {
		return false
	}
	if from == model.StatusFailed {
		return true
	}
	fi, ti := orderIndex(from), orderIndex(to)
	return fi >= 0 && ti >= 0 && ti < fi
}

// IsErrorRecovery is true when a session leaves the failed state.
func IsErrorRecovery(from, to model.Status) bool {
	return from == model.StatusFailed && to != model.StatusFailed
}
