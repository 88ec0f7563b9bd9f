package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold caps memory growth from inactive keys: once the map holds
// this many entries, expired ones are dropped on the next write.
const sweepThreshold = 4096

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a mutex-guarded fixed-window counter map. Suitable for
// single-instance deployments; limits are not shared across processes.
type MemoryStore struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		limit:   limit,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow serializes the read-increment-write sequence per store, so concurrent
// requests for one key cannot overcount past the limit. Windows expire lazily
// by timestamp comparison; no background sweep runs.
func (s *MemoryStore) Allow(_ context.Context, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		if len(s.entries) >= sweepThreshold {
			s.sweep(now)
		}
		resetAt := now.Add(s.window)
		s.entries[key] = &entry{count: 1, resetAt: resetAt}
		return Result{Allowed: true, Remaining: s.limit - 1, ResetAt: resetAt}, nil
	}

	e.count++
	if e.count <= s.limit {
		return Result{Allowed: true, Remaining: s.limit - e.count, ResetAt: e.resetAt}, nil
	}
	return Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: e.resetAt.Sub(now),
		ResetAt:    e.resetAt,
	}, nil
}

// sweep drops expired entries. Caller must hold s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, k)
		}
	}
}
