// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/permissions"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/metrics"
)

// ErrUnknownAction is returned for an action that is not a step of the error type's strategy.
var ErrUnknownAction = errors.New("recovery: action not offered for this error type")

// Sessions is the slice of the session repository the handler drives.
type Sessions interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Transition(ctx context.Context, id string, to model.Status, cc model.ChangeContext) (*model.Session, error)
	LogActivity(ctx context.Context, a *model.Activity) (*model.Activity, error)
}

// ActivityReader reads logged recovery attempts.
type ActivityReader interface {
	QueryActivities(ctx context.Context, filter store.ActivityFilter) ([]*model.Activity, error)
}

// Outcome is the result of one recovery attempt.
type Outcome struct {
	ErrorType ErrorType      `json:"error_type"`
	Action    string         `json:"action"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	NextStep  string         `json:"next_step,omitempty"`
	Session   *model.Session `json:"session,omitempty"`
}

// Handler executes recovery actions and keeps attempt analytics.
type Handler struct {
	sessions   Sessions
	activities ActivityReader
}

func NewHandler(sessions Sessions, activities ActivityReader) *Handler {
	return &Handler{sessions: sessions, activities: activities}
}

// restartTargets maps state-changing actions to the status they move a failed session to.
var restartTargets = map[string]model.Status{
	ActionRetrySearch:     model.StatusStrategyReady,
	ActionRetryProcessing: model.StatusStrategyReady,
	ActionRetryOperation:  model.StatusStrategyReady,
	ActionResetSession:    model.StatusDraft,
	ActionModifyStrategy:  model.StatusDraft,
}

// Handle runs action for a session that hit et. Every attempt on an owned
// session is logged as a RECOVERY_ATTEMPT activity, whether it succeeded or not.
// A returned error means no attempt was made.
func (h *Handler) Handle(ctx context.Context, actor, sessionID string, et ErrorType, action string) (*Outcome, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(actor, s, permissions.ActionView); err != nil {
		return nil, err
	}
	strategy := Lookup(et)
	if !strategy.Has(action) {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownAction, action, et)
	}
	if !Known(et) {
		et = UnknownError
	}

	out := &Outcome{ErrorType: et, Action: action}
	if to, ok := restartTargets[action]; ok {
		h.restart(ctx, actor, s, to, out)
	} else {
		out.Success = true
		out.Message = "Recovery step acknowledged"
		out.NextStep = nextStep(action, s)
	}

	if err := h.logAttempt(ctx, actor, s.ID, out); err != nil {
		logger := xglog.WithComponentFromContext(ctx, "recovery")
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "recovery.log_failed").
			Str(xglog.FieldSessionID, s.ID).
			Msg("recovery attempt could not be logged")
	}
	metrics.RecordRecoveryAttempt(string(et), out.Success)
	return out, nil
}

func (h *Handler) restart(ctx context.Context, actor string, s *model.Session, to model.Status, out *Outcome) {
	if s.Status != model.StatusFailed {
		out.Message = fmt.Sprintf("Session is %s, not failed; nothing to recover", s.Status.Label())
		return
	}
	updated, err := h.sessions.Transition(ctx, s.ID, to, model.ChangeContext{
		UserID:         actor,
		Reason:         "recovery:" + out.Action,
		AutoTransition: true,
		Metadata:       map[string]any{"error_type": string(out.ErrorType)},
	})
	if err != nil {
		out.Message = err.Error()
		return
	}
	out.Success = true
	out.Session = updated
	out.Message = fmt.Sprintf("Session moved to %s", to.Label())
	out.NextStep = "/sessions/" + s.ID
}

func nextStep(action string, s *model.Session) string {
	switch action {
	case ActionWaitAndRetry:
		return "retry in a few minutes"
	case ActionReduceScope, ActionValidateParameters:
		return "/sessions/" + s.ID + "/strategy"
	case ActionReauthenticate:
		return "/login?next=/sessions/" + s.ID
	case ActionRequestAccess:
		return "/sessions/" + s.ID + "/access"
	case ActionContactSupport:
		return "/support?session=" + s.ID
	default:
		return "/dashboard"
	}
}

func (h *Handler) logAttempt(ctx context.Context, actor, sessionID string, out *Outcome) error {
	desc := fmt.Sprintf("Recovery %s for %s failed", out.Action, out.ErrorType)
	if out.Success {
		desc = fmt.Sprintf("Recovery %s for %s succeeded", out.Action, out.ErrorType)
	}
	_, err := h.sessions.LogActivity(ctx, &model.Activity{
		SessionID:   sessionID,
		Type:        model.ActivityRecoveryAttempt,
		Description: desc,
		UserID:      actor,
		Metadata: map[string]any{
			"error_type": string(out.ErrorType),
			"action":     out.Action,
			"success":    out.Success,
			"message":    out.Message,
		},
	})
	return err
}

// Rate is the success ratio of recovery attempts for one error type.
type Rate struct {
	Total      int     `json:"total_attempts"`
	Successful int     `json:"successful_attempts"`
	Percent    float64 `json:"success_rate"`
}

// SuccessRates aggregates logged attempts per error type. A non-empty userID
// restricts the tally to that user's attempts.
func (h *Handler) SuccessRates(ctx context.Context, userID string) (map[ErrorType]Rate, error) {
	acts, err := h.activities.QueryActivities(ctx, store.ActivityFilter{
		UserID: userID,
		Types:  []model.ActivityType{model.ActivityRecoveryAttempt},
	})
	if err != nil {
		return nil, err
	}

	out := make(map[ErrorType]Rate)
	for _, a := range acts {
		et, _ := a.Metadata["error_type"].(string)
		if et == "" {
			continue
		}
		r := out[ErrorType(et)]
		r.Total++
		if ok, _ := a.Metadata["success"].(bool); ok {
			r.Successful++
		}
		out[ErrorType(et)] = r
	}
	for et, r := range out {
		r.Percent = float64(r.Successful) / float64(r.Total) * 100
		out[et] = r
	}
	return out, nil
}
