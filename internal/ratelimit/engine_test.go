package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPolicy(capacity int, window time.Duration) Policy {
	return Policy{
		Name:      "contact:ip",
		Capacity:  capacity,
		Window:    window,
		Namespace: "contact",
	}
}

func TestEvaluateCapacityBoundary(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store)
	policy := testPolicy(2, 30*time.Minute)
	key := Key(policy, DimensionIP, "203.0.113.7")

	first, err := engine.Evaluate(context.Background(), policy, key)
	require.NoError(t, err)
	require.True(t, first.Allowed)
	require.Equal(t, 1, first.Remaining)

	second, err := engine.Evaluate(context.Background(), policy, key)
	require.NoError(t, err)
	require.True(t, second.Allowed, "count == capacity is still within budget")
	require.Equal(t, 0, second.Remaining)

	third, err := engine.Evaluate(context.Background(), policy, key)
	require.NoError(t, err)
	require.False(t, third.Allowed)
	require.Equal(t, 0, third.Remaining)
}

func TestEvaluateWindowRollover(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	engine := NewEngine(store)
	policy := testPolicy(1, time.Second)
	key := Key(policy, DimensionIP, "203.0.113.7")

	first, err := engine.Evaluate(context.Background(), policy, key)
	require.NoError(t, err)
	require.True(t, first.Allowed)
	require.Equal(t, now.Add(time.Second), first.ResetAt)

	now = now.Add(100 * time.Millisecond)
	second, err := engine.Evaluate(context.Background(), policy, key)
	require.NoError(t, err)
	require.False(t, second.Allowed)

	now = now.Add(time.Second)
	third, err := engine.Evaluate(context.Background(), policy, key)
	require.NoError(t, err)
	require.True(t, third.Allowed, "oldest event fell outside the window")
}

func TestEvaluateKeyIsolation(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store)
	policy := Policy{Name: "newsletter-subscribe:id", Capacity: 1, Window: time.Hour, Namespace: "newsletter-subscribe"}

	keyA := Key(policy, DimensionIdentity, HashIdentifier("a@example.com"))
	keyB := Key(policy, DimensionIdentity, HashIdentifier("b@example.com"))

	// Exhaust A's budget.
	_, err := engine.Evaluate(context.Background(), policy, keyA)
	require.NoError(t, err)
	denied, err := engine.Evaluate(context.Background(), policy, keyA)
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	// B is untouched.
	fresh, err := engine.Evaluate(context.Background(), policy, keyB)
	require.NoError(t, err)
	require.True(t, fresh.Allowed)
}

type failingStore struct {
	err error
}

func (f *failingStore) IncrementAndCheck(ctx context.Context, key string, capacity int, window time.Duration) (Sample, error) {
	return Sample{}, f.err
}

func TestEvaluatePropagatesStoreFailure(t *testing.T) {
	engine := NewEngine(&failingStore{err: ErrStoreUnavailable})
	policy := testPolicy(5, time.Minute)

	_, err := engine.Evaluate(context.Background(), policy, "contact:ip:203.0.113.7")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestEvaluateRejectsInvalidPolicy(t *testing.T) {
	engine := NewEngine(NewMemoryStore())

	_, err := engine.Evaluate(context.Background(), Policy{Name: "bad", Namespace: "bad"}, "bad:ip:x")
	require.Error(t, err)
}

func TestDecisionRetryAfterClamped(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := Decision{ResetAt: now.Add(-time.Minute)}
	require.Equal(t, 0, past.RetryAfter(now))

	future := Decision{ResetAt: now.Add(90 * time.Second)}
	require.Equal(t, 90, future.RetryAfter(now))
}

func TestMemoryStoreContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().IncrementAndCheck(ctx, "contact:ip:x", 1, time.Minute)
	require.True(t, errors.Is(err, context.Canceled))
}
