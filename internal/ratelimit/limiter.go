// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ratelimit throttles mutating session actions per user.
//
// Counts live in a cache.Cache as fixed windows; a request is judged
// against the current window plus the previous window weighted by how much
// of it still overlaps the sliding window. Reads and writes are separate
// cache calls, so concurrent requests may both pass the last slot. The
// limiter is approximate.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ManuGH/thesisgrey/internal/cache"
	"github.com/ManuGH/thesisgrey/internal/metrics"
	"golang.org/x/time/rate"
)

// Action names a throttled operation.
type Action string

const (
	ActionCreateSession Action = "create_session"
	ActionMutateSession Action = "mutate_session"
)

var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUnknownAction = errors.New("unknown rate limit action")
)

// ExceededError is returned by Enforce when a request is rejected.
type ExceededError struct {
	Action     Action
	UserID     string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: retry after %s", e.Action, e.RetryAfter.Round(time.Second))
}

func (e *ExceededError) Unwrap() error { return ErrRateLimited }

// Rule allows Limit requests per sliding Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Config holds the per-action rules and a process-wide token bucket
// applied before any per-user accounting.
type Config struct {
	Rules       map[Action]Rule
	GlobalRate  rate.Limit
	GlobalBurst int
}

func DefaultConfig() Config {
	return Config{
		Rules: map[Action]Rule{
			ActionCreateSession: {Limit: 20, Window: time.Hour},
			ActionMutateSession: {Limit: 120, Window: time.Minute},
		},
		GlobalRate:  50,
		GlobalBurst: 100,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces Config over a counter store.
type Limiter struct {
	cfg    Config
	store  cache.Cache
	global *rate.Limiter
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, store cache.Cache, opts ...Option) *Limiter {
	l := &Limiter{cfg: cfg, store: store, now: time.Now}
	if cfg.GlobalRate > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = 1
		}
		l.global = rate.NewLimiter(cfg.GlobalRate, burst)
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow records one request by userID for action and reports whether it
// fits the configured rule. A rejected request is not counted.
func (l *Limiter) Allow(ctx context.Context, userID string, action Action) (Decision, error) {
	rule, ok := l.cfg.Rules[action]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}, nil
	}
	now := l.now()

	var reservation *rate.Reservation
	if l.global != nil {
		r := l.global.ReserveN(now, 1)
		if !r.OK() {
			metrics.RecordRateLimitExceeded(string(action))
			return Decision{Limit: rule.Limit, RetryAfter: time.Second}, nil
		}
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			metrics.RecordRateLimitExceeded(string(action))
			return Decision{Limit: rule.Limit, RetryAfter: delay}, nil
		}
		reservation = r
	}

	idx := now.UnixNano() / int64(rule.Window)
	elapsed := time.Duration(now.UnixNano() - idx*int64(rule.Window))
	curKey := windowKey(action, userID, idx)

	cur := l.count(ctx, curKey)
	prev := l.count(ctx, windowKey(action, userID, idx-1))
	weight := 1 - float64(elapsed)/float64(rule.Window)
	estimate := float64(prev)*weight + float64(cur)

	if estimate >= float64(rule.Limit) {
		// A request the user window rejects must not drain the shared bucket.
		if reservation != nil {
			reservation.CancelAt(now)
		}
		metrics.RecordRateLimitExceeded(string(action))
		return Decision{
			Limit:      rule.Limit,
			RetryAfter: retryAfter(rule, elapsed, prev, cur),
		}, nil
	}

	l.store.Set(ctx, curKey, cur+1, 2*rule.Window)

	remaining := rule.Limit - int(math.Ceil(estimate+1))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: rule.Limit, Remaining: remaining}, nil
}

// Enforce is Allow folded into an error: nil when allowed, *ExceededError
// when rejected.
func (l *Limiter) Enforce(ctx context.Context, userID string, action Action) error {
	d, err := l.Allow(ctx, userID, action)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &ExceededError{Action: action, UserID: userID, RetryAfter: d.RetryAfter}
	}
	return nil
}

func (l *Limiter) count(ctx context.Context, key string) int64 {
	v, ok := l.store.Get(ctx, key)
	if !ok {
		return 0
	}
	n, _ := cache.Int64(v)
	return n
}

func windowKey(action Action, userID string, idx int64) string {
	return fmt.Sprintf("rl:%s:%s:%d", action, userID, idx)
}

// retryAfter estimates how long until the weighted count drops below the
// limit, assuming no further requests.
func retryAfter(rule Rule, elapsed time.Duration, prev, cur int64) time.Duration {
	limit := float64(rule.Limit)
	win := float64(rule.Window)

	if float64(cur) < limit && prev > 0 {
		// prev*(1-e/w) + cur < limit
		target := win * (1 - (limit-float64(cur))/float64(prev))
		if d := time.Duration(target) - elapsed; d > 0 {
			return d
		}
		return time.Second
	}
	// Current window alone is full; wait for it to become the previous one
	// and decay enough.
	rest := rule.Window - elapsed
	if cur <= 0 {
		return rest
	}
	return rest + time.Duration(win*(1-limit/float64(cur)))
}
