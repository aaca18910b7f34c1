package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable classifies counting-store failures so callers can
// apply their fail-open policy without string matching.
var ErrStoreUnavailable = errors.New("counting store unavailable")

// Sample is the store's view of one bucket after an increment: how many
// events fall inside the trailing window, and when the oldest of them
// expires.
type Sample struct {
	Count   int
	ResetAt time.Time
}

// CountingStore is the single primitive the admission engine needs. The
// increment and the count must be atomic at the store; the engine holds no
// locks of its own. Buckets expire on their own once the window passes, so
// the store's keyspace is self-cleaning.
//
// Implementations must propagate failures rather than guessing an answer:
// the calling endpoint owns the fail-open/fail-closed decision.
type CountingStore interface {
	IncrementAndCheck(ctx context.Context, key string, capacity int, window time.Duration) (Sample, error)
}
