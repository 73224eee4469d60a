// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"
	"testing"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/stretchr/testify/require"
)

var expectedEdges = map[model.Status][]model.Status{
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

func TestTransitionTable_Coverage(t *testing.T) {
	for _, from := range model.AllStatuses {
		allowed := map[model.Status]bool{}
		for _, to := range expectedEdges[from] {
			allowed[to] = true
		}
		for _, to := range model.AllStatuses {
			got := CanTransition(from, to)
			require.Equal(t, allowed[to], got, "CanTransition(%s, %s)", from, to)

			err := Validate(from, to)
			if allowed[to] {
				require.NoError(t, err)
				continue
			}
			require.ErrorIs(t, err, ErrInvalidTransition)
			var ite *InvalidTransitionError
			require.True(t, errors.As(err, &ite))
			require.Equal(t, from, ite.From)
			require.Equal(t, to, ite.To)
			require.ElementsMatch(t, expectedEdges[from], ite.Allowed)
		}
		require.ElementsMatch(t, expectedEdges[from], NextAllowed(from))
	}
}

func TestTransitionTable_UnknownStateIsClosed(t *testing.T) {
	require.Empty(t, NextAllowed("paused"))
	require.Empty(t, NextAllowed(""))
	for _, to := range model.AllStatuses {
		require.False(t, CanTransition("paused", to))
	}
	err := Validate("", model.StatusExecuting)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Contains(t, err.Error(), "no transitions are allowed")
}

func TestNextAllowed_ReturnsCopy(t *testing.T) {
	next := NextAllowed(model.StatusDraft)
	next[0] = model.StatusArchived
	require.Equal(t, []model.Status{model.StatusStrategyReady}, NextAllowed(model.StatusDraft))
}

func TestInvalidTransitionError_NamesAlternatives(t *testing.T) {
	err := Validate(model.StatusDraft, model.StatusCompleted)
	require.EqualError(t, err, "cannot transition from draft to completed: allowed transitions are strategy_ready")

	err = Validate(model.StatusCompleted, model.StatusDraft)
	require.EqualError(t, err, "cannot transition from completed to draft: allowed transitions are archived, in_review")
}
