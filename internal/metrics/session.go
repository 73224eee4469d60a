// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_session_transitions_total",
		Help: "Applied session status transitions",
	}, []string{"from", "to", "classification"})

	sessionSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_session_saves_total",
		Help: "Session saves by kind",
	}, []string{"kind"}) // kind=created|modified|status_changed|deleted|rejected

	statsRecompute = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_stats_recompute_total",
		Help: "User statistics recomputations by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	statsRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "thesisgrey_stats_recompute_duration_seconds",
		Help:    "Duration of one user statistics recomputation",
		Buckets: prometheus.DefBuckets,
	})

	permissionDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_permission_denied_total",
		Help: "Rejected actions by the permission gate",
	}, []string{"action"})

	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_ratelimit_exceeded_total",
		Help: "Requests rejected by the per-user action limiter",
	}, []string{"action"})

	activitiesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_activities_logged_total",
		Help: "Business events appended outside session saves",
	}, []string{"type"})

	recoveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thesisgrey_recovery_attempts_total",
		Help: "Recovery attempts by error type and outcome",
	}, []string{"error_type", "outcome"})
)

// Save kinds.
const (
	SaveCreated       = "created"
	SaveModified      = "modified"
	SaveStatusChanged = "status_changed"
	SaveDeleted       = "deleted"
	SaveRejected      = "rejected"
)

// RecordTransition counts one applied status change.
func RecordTransition(from, to, classification string) {
	if from == "" {
		from = "none"
	}
	sessionTransitions.WithLabelValues(from, to, classification).Inc()
}

// RecordSave counts one save outcome.
func RecordSave(kind string) {
	sessionSaves.WithLabelValues(kind).Inc()
}

// RecordStatsRecompute counts one recomputation and observes its duration.
func RecordStatsRecompute(ok bool, seconds float64) {
	statsRecompute.WithLabelValues(outcome(ok)).Inc()
	statsRecomputeDuration.Observe(seconds)
}

// RecordPermissionDenied counts one rejected action.
func RecordPermissionDenied(action string) {
	permissionDenied.WithLabelValues(action).Inc()
}

// RecordRateLimitExceeded counts one limiter rejection.
func RecordRateLimitExceeded(action string) {
	rateLimitExceeded.WithLabelValues(action).Inc()
}

// RecordActivityLogged counts one appended business event.
func RecordActivityLogged(activityType string) {
	activitiesLogged.WithLabelValues(activityType).Inc()
}

// RecordRecoveryAttempt counts one recovery attempt.
func RecordRecoveryAttempt(errorType string, ok bool) {
	recoveryAttempts.WithLabelValues(errorType, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
