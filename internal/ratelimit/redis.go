package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed sliding_window.lua
var slidingWindowScript string

// keyPrefix namespaces every bucket this service owns inside a shared Redis.
const keyPrefix = "ratelimit:"

// RedisStore is the production CountingStore. Each bucket is a sorted set of
// event timestamps maintained by a Lua script, so the prune + add + count
// cycle is atomic at the server and the sliding window is exact. Buckets
// carry a TTL equal to the window and clean themselves up.
//
// Multiple service instances sharing one Redis share one budget per key; no
// coordination beyond the script's atomicity is needed.
type RedisStore struct {
	client    *redis.Client
	scriptSHA string
}

// NewRedisStore verifies connectivity and preloads the sliding-window
// script.
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", ErrStoreUnavailable, err)
	}

	sha, err := client.ScriptLoad(ctx, slidingWindowScript).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: script load: %v", ErrStoreUnavailable, err)
	}

	return &RedisStore{client: client, scriptSHA: sha}, nil
}

// NewRedisClient builds a client from a REDIS_URL-style connection string,
// optionally overriding the password with a separately supplied token.
func NewRedisClient(url, authToken string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if authToken != "" {
		opts.Password = authToken
	}
	return redis.NewClient(opts), nil
}

// IncrementAndCheck runs the sliding-window script for key.
func (s *RedisStore) IncrementAndCheck(ctx context.Context, key string, capacity int, window time.Duration) (Sample, error) {
	now := time.Now().UTC()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	args := []interface{}{window.Milliseconds(), now.UnixMilli(), member}
	cmd := s.client.EvalSha(ctx, s.scriptSHA, []string{keyPrefix + key}, args...)
	result, err := cmd.Result()
	if err != nil && redis.HasErrorPrefix(err, "NOSCRIPT") {
		// Script cache was flushed (e.g. Redis restart); re-send the source.
		cmd = s.client.Eval(ctx, slidingWindowScript, []string{keyPrefix + key}, args...)
		result, err = cmd.Result()
	}
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return Sample{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, result)
	}

	count, ok := values[0].(int64)
	if !ok {
		return Sample{}, fmt.Errorf("%w: unexpected count type %T", ErrStoreUnavailable, values[0])
	}

	resetAt := now.Add(window)
	if oldest := toMillis(values[1]); oldest > 0 {
		resetAt = time.UnixMilli(oldest).Add(window).UTC()
	}

	return Sample{Count: int(count), ResetAt: resetAt}, nil
}

// DeleteMatching removes every bucket whose key (without the service
// prefix) matches pattern. Used by the rate-limit reset command to clear
// state for a falsely limited caller.
func (s *RedisStore) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var deleted int
	iter := s.client.Scan(ctx, 0, keyPrefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("%w: del: %v", ErrStoreUnavailable, err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
	}
	return deleted, nil
}

// CheckHealth pings the counting store.
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func toMillis(val interface{}) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case string:
		parsed, _ := strconv.ParseInt(v, 10, 64)
		return parsed
	case float64:
		return int64(v)
	default:
		return 0
	}
}
