package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process CountingStore backed by per-key timestamp
// logs. It exists for tests and single-instance development; its state is
// local to the process, so it cannot enforce a global budget across
// replicas.
//
// The clock is injectable so window-rollover behavior can be tested without
// real delays.
type MemoryStore struct {
	mu    sync.Mutex
	logs  map[string][]time.Time
	clock func() time.Time
}

// NewMemoryStore returns an empty in-process store using the real clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]time.Time)}
}

// SetClock replaces the time source. Test use only.
func (m *MemoryStore) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

func (m *MemoryStore) now() time.Time {
	if m.clock != nil {
		return m.clock()
	}
	return time.Now().UTC()
}

// IncrementAndCheck records one event for key and returns the count of
// events inside the trailing window, pruning anything older.
func (m *MemoryStore) IncrementAndCheck(ctx context.Context, key string, capacity int, window time.Duration) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)

	entries := m.logs[key]
	pruned := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	pruned = append(pruned, now)
	m.logs[key] = pruned

	return Sample{
		Count:   len(pruned),
		ResetAt: pruned[0].Add(window),
	}, nil
}
