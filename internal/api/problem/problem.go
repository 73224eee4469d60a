// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package problem writes RFC 7807 problem details and maps domain errors onto them.
package problem

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ManuGH/thesisgrey/internal/domain/session/lifecycle"
	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/permissions"
	"github.com/ManuGH/thesisgrey/internal/domain/session/recovery"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

const (
	HeaderRequestID  = "X-Request-ID"
	JSONKeyRequestID = "requestId"
)

// Stable machine-readable codes.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_FAILED"
	CodeConflict          = "CONFLICT"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeInternal          = "INTERNAL"
)

// Write writes an RFC 7807 problem details response.
//
//   - type: canonical identifier, "session/<code in lower case>"
//   - title: short human label
//   - code: stable machine code
//   - detail: explanation of this occurrence
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	instance := ""
	reqID := ""
	if r != nil {
		instance = r.URL.EscapedPath()
		reqID = log.RequestIDFromContext(r.Context())
	}
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res[JSONKeyRequestID] = reqID
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance != "" {
		res["instance"] = instance
	}
	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code":
			log.L().Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	if reqID != "" {
		w.Header().Set(HeaderRequestID, reqID)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}

// FromError maps err onto a problem response. Unknown errors become a 500
// whose detail is not exposed to the client.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *lifecycle.InvalidTransitionError
		denied   *permissions.DeniedError
		exceeded *ratelimit.ExceededError
	)
	switch {
	case errors.As(err, &invalid):
		next := make([]string, 0, len(invalid.Allowed))
		for _, s := range invalid.Allowed {
			next = append(next, string(s))
		}
		Write(w, r, http.StatusConflict, "session/invalid_transition", "Invalid Transition", CodeInvalidTransition, err.Error(),
			map[string]any{"from": string(invalid.From), "to": string(invalid.To), "allowed": next})
	case errors.As(err, &denied):
		Write(w, r, http.StatusForbidden, "session/permission_denied", "Permission Denied", CodePermissionDenied, denied.Reason,
			map[string]any{"action": string(denied.Action)})
	case errors.As(err, &exceeded):
		RateLimited(w, r, string(exceeded.Action), exceeded.RetryAfter.Seconds())
	case errors.Is(err, store.ErrNotFound):
		Write(w, r, http.StatusNotFound, "session/not_found", "Not Found", CodeNotFound, "resource not found", nil)
	case errors.Is(err, model.ErrValidation), errors.Is(err, recovery.ErrUnknownAction), errors.Is(err, store.ErrConstraint):
		Write(w, r, http.StatusBadRequest, "session/validation_failed", "Validation Failed", CodeValidation, err.Error(), nil)
	case errors.Is(err, store.ErrUserReferenced), errors.Is(err, store.ErrDuplicate):
		Write(w, r, http.StatusConflict, "session/conflict", "Conflict", CodeConflict, err.Error(), nil)
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "request.failed").Msg("unhandled error")
		Write(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error", CodeInternal, "", nil)
	}
}

// RateLimited writes a 429 with a Retry-After header rounded up to whole seconds.
func RateLimited(w http.ResponseWriter, r *http.Request, action string, retryAfterSeconds float64) {
	secs := int(math.Ceil(retryAfterSeconds))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	extra := map[string]any{"retry_after": secs}
	if action != "" {
		extra["action"] = action
	}
	Write(w, r, http.StatusTooManyRequests, "session/rate_limited", "Too Many Requests", CodeRateLimited,
		"rate limit exceeded, retry later", extra)
}

// Unauthenticated writes a 401 for requests without a caller identity.
func Unauthenticated(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusUnauthorized, "auth/unauthenticated", "Unauthenticated", CodeUnauthenticated,
		"missing caller identity", nil)
}
