// Package ratelimit bounds how often a client may create orders or poll
// payment status. Windows are fixed, not sliding: the counter resets when its
// window elapses, an accepted imprecision.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store is the keyed counter behind the limiter. The in-memory store is
// process-local; multi-instance deployments need the shared Redis store so
// every instance sees the same counts.
type Store interface {
	// Incr bumps the counter for key, starting a fresh window of the given
	// length when none is active, and returns the new count plus the
	// window's reset time.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}

// Limiter applies fixed-window budgets over a Store.
type Limiter struct {
	store Store
}

// New returns a Limiter over store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Allow admits or rejects one request for the identifier under a budget of
// maxRequests per window.
func (l *Limiter) Allow(ctx context.Context, identifier string, maxRequests int, window time.Duration) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, identifier, window)
	if err != nil {
		return Decision{}, err
	}
	if count > int64(maxRequests) {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: maxRequests - int(count),
		ResetAt:   resetAt,
	}, nil
}
