// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recovery maps session failure types to suggested recovery actions and
// executes those actions.
package recovery

import (
	"fmt"
	"strings"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

// ErrorType tags a class of session failure.
type ErrorType string

const (
	SearchExecutionFailed   ErrorType = "search_execution_failed"
	ProcessingTimeout       ErrorType = "processing_timeout"
	RateLimitExceeded       ErrorType = "rate_limit_exceeded"
	InvalidSearchParameters ErrorType = "invalid_search_parameters"
	SessionExpired          ErrorType = "session_expired"
	PermissionDenied        ErrorType = "permission_denied"
	DatabaseConnectionError ErrorType = "database_connection_error"
	UnknownError            ErrorType = "unknown_error"
)

// Severity grades how disruptive an error is for the user.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Action identifiers.
const (
	ActionRetrySearch        = "retry_search"
	ActionRetryProcessing    = "retry_processing"
	ActionRetryOperation     = "retry_operation"
	ActionResetSession       = "reset_session"
	ActionModifyStrategy     = "modify_strategy"
	ActionWaitAndRetry       = "wait_and_retry"
	ActionReduceScope        = "reduce_scope"
	ActionValidateParameters = "validate_parameters"
	ActionReauthenticate     = "reauthenticate"
	ActionRequestAccess      = "request_access"
	ActionReturnToDashboard  = "return_to_dashboard"
	ActionContactSupport     = "contact_support"
)

// Step is one suggested recovery action. Description and URL may contain the
// placeholders {title} and {session_id}.
type Step struct {
	Action        string `json:"action"`
	Description   string `json:"description"`
	EstimatedTime string `json:"estimated_time"`
	URL           string `json:"url,omitempty"`
}

// Strategy is the catalog entry for one error type.
type Strategy struct {
	ErrorType ErrorType `json:"error_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Steps     []Step    `json:"actions"`
}

var (
	stepContactSupport = Step{ActionContactSupport, "Contact support about {title}", "1-2 business days", "/support?session={session_id}"}
	stepDashboard      = Step{ActionReturnToDashboard, "Return to the dashboard", "immediate", "/dashboard"}
	stepModifyStrategy = Step{ActionModifyStrategy, "Revise the search strategy of {title}", "5-10 minutes", "/sessions/{session_id}/strategy"}
	stepResetSession   = Step{ActionResetSession, "Reset {title} to draft and start over", "1 minute", "/sessions/{session_id}"}
	stepReduceScope    = Step{ActionReduceScope, "Narrow the queries or result limits of {title}", "5 minutes", "/sessions/{session_id}/strategy"}
	stepRetryOperation = Step{ActionRetryOperation, "Retry the last operation on {title}", "1-2 minutes", "/sessions/{session_id}"}
)

var catalog = map[ErrorType]Strategy{
	SearchExecutionFailed: {
		Title:    "Search execution failed",
		Message:  "One or more searches for {title} could not be completed.",
		Severity: SeverityError,
		Steps: []Step{
			{ActionRetrySearch, "Run the searches for {title} again", "2-5 minutes", "/sessions/{session_id}/execute"},
			stepModifyStrategy,
			stepContactSupport,
		},
	},
	ProcessingTimeout: {
		Title:    "Processing timed out",
		Message:  "Processing the results of {title} took too long and was stopped.",
		Severity: SeverityWarning,
		Steps: []Step{
			{ActionRetryProcessing, "Process the results of {title} again", "5-15 minutes", "/sessions/{session_id}/process"},
			stepReduceScope,
			stepContactSupport,
		},
	},
	RateLimitExceeded: {
		Title:    "Too many requests",
		Message:  "The search provider limited requests for {title}.",
		Severity: SeverityWarning,
		Steps: []Step{
			{ActionWaitAndRetry, "Wait a few minutes before retrying", "1-5 minutes", ""},
			stepReduceScope,
		},
	},
	InvalidSearchParameters: {
		Title:    "Invalid search parameters",
		Message:  "The search strategy of {title} contains parameters the provider rejected.",
		Severity: SeverityError,
		Steps: []Step{
			{ActionValidateParameters, "Check the queries and filters of {title}", "2 minutes", "/sessions/{session_id}/strategy"},
			stepModifyStrategy,
			stepResetSession,
		},
	},
	SessionExpired: {
		Title:    "Login expired",
		Message:  "Your login expired while working on {title}.",
		Severity: SeverityInfo,
		Steps: []Step{
			{ActionReauthenticate, "Sign in again", "1 minute", "/login?next=/sessions/{session_id}"},
			stepDashboard,
		},
	},
	PermissionDenied: {
		Title:    "Access denied",
		Message:  "You do not have access to perform this action on {title}.",
		Severity: SeverityError,
		Steps: []Step{
			{ActionRequestAccess, "Ask the owner of {title} for access", "1 business day", ""},
			stepDashboard,
		},
	},
	DatabaseConnectionError: {
		Title:    "Storage unavailable",
		Message:  "Changes to {title} could not be saved because storage was unavailable.",
		Severity: SeverityError,
		Steps: []Step{
			stepRetryOperation,
			stepContactSupport,
		},
	},
	UnknownError: {
		Title:    "Unexpected error",
		Message:  "Something went wrong with {title}.",
		Severity: SeverityError,
		Steps: []Step{
			stepRetryOperation,
			stepResetSession,
			stepContactSupport,
		},
	},
}

func init() {
	for et, s := range catalog {
		s.ErrorType = et
		catalog[et] = s
	}
}

// ErrorTypes lists the catalogued error types.
func ErrorTypes() []ErrorType {
	return []ErrorType{
		SearchExecutionFailed, ProcessingTimeout, RateLimitExceeded, InvalidSearchParameters,
		SessionExpired, PermissionDenied, DatabaseConnectionError, UnknownError,
	}
}

// Lookup returns the catalog entry for et, falling back to UnknownError.
func Lookup(et ErrorType) Strategy {
	s, ok := catalog[et]
	if !ok {
		s = catalog[UnknownError]
	}
	return s.clone()
}

// Known reports whether et has its own catalog entry.
func Known(et ErrorType) bool {
	_, ok := catalog[et]
	return ok
}

func (s Strategy) clone() Strategy {
	s.Steps = append([]Step(nil), s.Steps...)
	return s
}

// Has reports whether action is one of the strategy's steps.
func (s Strategy) Has(action string) bool {
	for _, st := range s.Steps {
		if st.Action == action {
			return true
		}
	}
	return false
}

// Suggestions returns the strategy for et bound to session s: placeholders in
// the message, step descriptions and URLs carry the session's title and id.
func Suggestions(s *model.Session, et ErrorType) Strategy {
	st := Lookup(et)
	if s == nil {
		return st
	}
	r := strings.NewReplacer("{title}", fmt.Sprintf("%q", s.Title), "{session_id}", s.ID)
	st.Message = r.Replace(st.Message)
	for i := range st.Steps {
		st.Steps[i].Description = r.Replace(st.Steps[i].Description)
		st.Steps[i].URL = r.Replace(st.Steps[i].URL)
	}
	return st
}
