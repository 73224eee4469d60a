// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// Status is the workflow state of a review session.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusStrategyReady  Status = "strategy_ready"
	StatusExecuting      Status = "executing"
	StatusProcessing     Status = "processing"
	StatusReadyForReview Status = "ready_for_review"
	StatusInReview       Status = "in_review"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusArchived       Status = "archived"
)

// AllStatuses lists every status in display order. The order carries no transition meaning.
var AllStatuses = []Status{
	StatusDraft,
	StatusStrategyReady,
	StatusExecuting,
	StatusProcessing,
	StatusReadyForReview,
	StatusInReview,
	StatusCompleted,
	StatusFailed,
	StatusArchived,
}

var statusLabels = map[Status]string{
	StatusDraft:          "Draft",
	StatusStrategyReady:  "Strategy Ready",
	StatusExecuting:      "Executing Searches",
	StatusProcessing:     "Processing Results",
	StatusReadyForReview: "Ready for Review",
	StatusInReview:       "Under Review",
	StatusCompleted:      "Completed",
	StatusFailed:         "Failed",
	StatusArchived:       "Archived",
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human-readable name, or the raw value for unknown statuses.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Visibility controls who may see a session. Only private is used today.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityPublic:
		return true
	}
	return false
}

// ActivityType tags an Activity row. The constants are the canonical set, but any
// non-empty tag is accepted so other components can log their own business events.
type ActivityType string

const (
	ActivityCreated          ActivityType = "CREATED"
	ActivityModified         ActivityType = "MODIFIED"
	ActivityStatusChanged    ActivityType = "STATUS_CHANGED"
	ActivityDuplicated       ActivityType = "DUPLICATED"
	ActivityArchived         ActivityType = "ARCHIVED"
	ActivityUnarchived       ActivityType = "UNARCHIVED"
	ActivityNoteAdded        ActivityType = "NOTE_ADDED"
	ActivitySearchExecuted   ActivityType = "SEARCH_EXECUTED"
	ActivityResultsProcessed ActivityType = "RESULTS_PROCESSED"
	ActivityReviewCompleted  ActivityType = "REVIEW_COMPLETED"
	ActivityExported         ActivityType = "EXPORTED"
	ActivitySystem           ActivityType = "SYSTEM"
	ActivityError            ActivityType = "ERROR"
	ActivityRecoveryAttempt  ActivityType = "RECOVERY_ATTEMPT"
)

// CanonicalActivityTypes is the documented tag list.
var CanonicalActivityTypes = []ActivityType{
	ActivityCreated,
	ActivityModified,
	ActivityStatusChanged,
	ActivityDuplicated,
	ActivityArchived,
	ActivityUnarchived,
	ActivityNoteAdded,
	ActivitySearchExecuted,
	ActivityResultsProcessed,
	ActivityReviewCompleted,
	ActivityExported,
	ActivitySystem,
	ActivityError,
	ActivityRecoveryAttempt,
}

// IsCanonical reports whether t is one of CanonicalActivityTypes.
func (t ActivityType) IsCanonical() bool {
	for _, c := range CanonicalActivityTypes {
		if t == c {
			return true
		}
	}
	return false
}

// MetricLabel returns t for canonical tags and "custom" otherwise, keeping
// label cardinality bounded.
func (t ActivityType) MetricLabel() string {
	if t.IsCanonical() {
		return string(t)
	}
	return "custom"
}
