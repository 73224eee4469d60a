// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package stats

import (
	"math"
	"time"
)

// Productivity weights. They sum to 1 so the score stays on the 0-100 scale.
const (
	weightCompletion  = 0.4
	weightReliability = 0.3
	weightRecency     = 0.3

	recencyPenaltyPerDay = 2.0
)

// CompletionRate is completed/total as a percentage, 0 when total is 0.
func CompletionRate(total, completed int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// FailureRate is failed/total as a percentage, 0 when total is 0.
func FailureRate(total, failed int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total) * 100
}

// DaysSince returns the whole days elapsed between last and now.
func DaysSince(last, now time.Time) int {
	d := now.Sub(last)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// RecencyScore is 100 minus two points per whole day since the last activity, floored
// at 0. No activity at all scores 0.
func RecencyScore(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	return math.Max(0, 100-recencyPenaltyPerDay*float64(DaysSince(*last, now)))
}

// ProductivityScore combines the three sub-scores and clamps the result to [0,100] even
// when the inputs fall outside their natural ranges.
func ProductivityScore(completionRate, failureRate, recency float64) float64 {
	score := weightCompletion*completionRate +
		weightReliability*math.Max(0, 100-failureRate) +
		weightRecency*recency
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
