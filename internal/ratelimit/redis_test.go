package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Integration test against a local Redis; skipped when none is reachable.
func TestRedisStoreIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	store, err := NewRedisStore(ctx, client)
	require.NoError(t, err)
	defer store.Close() // nolint:errcheck // best-effort cleanup

	key := fmt.Sprintf("it:%d", time.Now().UnixNano())

	t.Run("CapacityBoundary", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			sample, err := store.IncrementAndCheck(ctx, key, 2, time.Minute)
			require.NoError(t, err)
			require.Equal(t, i, sample.Count)
			require.False(t, sample.ResetAt.IsZero())
		}
	})

	t.Run("DeleteMatching", func(t *testing.T) {
		deleted, err := store.DeleteMatching(ctx, "it:*")
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, 1)

		sample, err := store.IncrementAndCheck(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, 1, sample.Count, "bucket starts fresh after reset")

		_, _ = store.DeleteMatching(ctx, "it:*")
	})
}
