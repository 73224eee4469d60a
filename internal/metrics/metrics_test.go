// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition_CreationUsesNoneLabel(t *testing.T) {
	before := testutil.ToFloat64(sessionTransitions.WithLabelValues("none", "draft", "creation"))
	RecordTransition("", "draft", "creation")
	assert.Equal(t, before+1, testutil.ToFloat64(sessionTransitions.WithLabelValues("none", "draft", "creation")))
}

func TestRecordStatsRecompute_Outcomes(t *testing.T) {
	ok := testutil.ToFloat64(statsRecompute.WithLabelValues("success"))
	failed := testutil.ToFloat64(statsRecompute.WithLabelValues("failure"))

	RecordStatsRecompute(true, 0.01)
	RecordStatsRecompute(false, 0.02)

	assert.Equal(t, ok+1, testutil.ToFloat64(statsRecompute.WithLabelValues("success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(statsRecompute.WithLabelValues("failure")))
}

func TestRecordActivityLogged(t *testing.T) {
	before := testutil.ToFloat64(activitiesLogged.WithLabelValues("custom"))
	RecordActivityLogged("custom")
	assert.Equal(t, before+1, testutil.ToFloat64(activitiesLogged.WithLabelValues("custom")))
}

func TestStatusClass(t *testing.T) {
	for status, want := range map[int]string{100: "1xx", 200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 429: "4xx", 503: "5xx"} {
		assert.Equal(t, want, statusClass(status), "status %d", status)
	}
}

func TestInFlightGauge(t *testing.T) {
	base := testutil.ToFloat64(httpInFlight)
	done := IncHTTPInFlight()
	assert.Equal(t, base+1, testutil.ToFloat64(httpInFlight))
	done()
	assert.Equal(t, base, testutil.ToFloat64(httpInFlight))
}

func TestPromhttpExposure(t *testing.T) {
	RecordPermissionDenied("delete")
	RecordRateLimitExceeded("create_session")
	RecordRecoveryAttempt("processing_timeout", true)
	RecordSave(SaveCreated)
	ObserveHTTP("/api/v1/sessions", "GET", 200, 0.003)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"thesisgrey_permission_denied_total",
		"thesisgrey_ratelimit_exceeded_total",
		"thesisgrey_recovery_attempts_total",
		"thesisgrey_session_saves_total",
		"thesisgrey_http_requests_total",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
