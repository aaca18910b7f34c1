package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Decision is the per-request view of one bucket against one policy. It is
// computed, acted on, and discarded; the store owns the durable counters.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the bucket resets, clamped to
// zero. Suitable for the Retry-After header.
func (d Decision) RetryAfter(now time.Time) int {
	seconds := int(d.ResetAt.Sub(now).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

// Key derives the counting-bucket key for a policy and identifier. Same
// policy and identifier always derive the same key; distinct identifiers
// never collide short of a hash collision upstream.
func Key(policy Policy, dim Dimension, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", policy.Namespace, dim, identifier)
}

// Engine evaluates keys against policies through a shared counting store.
// It holds no in-process state and is safe for concurrent use; per-key
// atomicity is the store's job.
type Engine struct {
	store CountingStore
}

// NewEngine wraps a counting store.
func NewEngine(store CountingStore) *Engine {
	return &Engine{store: store}
}

// Evaluate counts one event for key under policy and reports whether it is
// within budget. The count at exactly capacity is still allowed; capacity+1
// is the first denial. Store failures are returned as-is — the caller, not
// the engine, decides whether to fail open.
func (e *Engine) Evaluate(ctx context.Context, policy Policy, key string) (Decision, error) {
	if err := policy.Validate(); err != nil {
		return Decision{}, err
	}

	sample, err := e.store.IncrementAndCheck(ctx, key, policy.Capacity, policy.Window)
	if err != nil {
		return Decision{}, err
	}

	remaining := policy.Capacity - sample.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   sample.Count <= policy.Capacity,
		Remaining: remaining,
		ResetAt:   sample.ResetAt,
	}, nil
}
