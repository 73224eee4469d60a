// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"testing"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/stretchr/testify/assert"
)

func TestClassify_TableEdges(t *testing.T) {
	tests := []struct {
		from, to    model.Status
		want        Classification
		progression bool
		regression  bool
		recovery    bool
	}{
		{"", model.StatusDraft, ClassCreation, true, false, false},
		{model.StatusDraft, model.StatusStrategyReady, ClassProgression, true, false, false},
		{model.StatusStrategyReady, model.StatusExecuting, ClassProgression, true, false, false},
		{model.StatusStrategyReady, model.StatusDraft, ClassRegression, false, true, false},
		{model.StatusExecuting, model.StatusProcessing, ClassProgression, true, false, false},
		{model.StatusExecuting, model.StatusFailed, ClassError, false, false, false},
		{model.StatusProcessing, model.StatusReadyForReview, ClassProgression, true, false, false},
		{model.StatusProcessing, model.StatusFailed, ClassError, false, false, false},
		{model.StatusReadyForReview, model.StatusInReview, ClassProgression, true, false, false},
		{model.StatusInReview, model.StatusCompleted, ClassProgression, true, false, false},
		{model.StatusInReview, model.StatusReadyForReview, ClassRegression, false, true, false},
		{model.StatusCompleted, model.StatusArchived, ClassProgression, true, false, false},
		{model.StatusCompleted, model.StatusInReview, ClassRegression, false, true, false},
		{model.StatusFailed, model.StatusDraft, ClassErrorRecovery, false, true, true},
		{model.StatusFailed, model.StatusStrategyReady, ClassErrorRecovery, false, true, true},
		{model.StatusArchived, model.StatusCompleted, ClassRegression, false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.from, tt.to))
			assert.Equal(t, tt.progression, IsProgression(tt.from, tt.to))
			assert.Equal(t, tt.regression, IsRegression(tt.from, tt.to))
			assert.Equal(t, tt.recovery, IsErrorRecovery(tt.from, tt.to))
		})
	}
}

func TestClassify_EveryTableEdgeIsCovered(t *testing.T) {
	for from, tos := range transitionsTable {
		for _, to := range tos {
			c := Classify(from, to)
			assert.NotEqual(t, ClassLateral, c, "%s->%s", from, to)
			assert.NotEqual(t, ClassCreation, c, "%s->%s", from, to)
		}
	}
}

func TestClassify_Lateral(t *testing.T) {
	assert.Equal(t, ClassLateral, Classify(model.StatusDraft, model.StatusDraft))
	assert.Equal(t, ClassLateral, Classify("paused", model.StatusDraft))
}

func TestLifecycleOrder_ExcludesFailed(t *testing.T) {
	order := LifecycleOrder()
	assert.Len(t, order, 8)
	assert.NotContains(t, order, model.StatusFailed)
	assert.Equal(t, model.StatusDraft, order[0])
	assert.Equal(t, model.StatusArchived, order[len(order)-1])
}
