package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStoreWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	store := NewMemoryStore(10, 60*time.Second)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	// exactly 10 requests are admitted
	for i := 0; i < 10; i++ {
		res, err := store.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 9-i, res.Remaining)
	}

	// the 11th within the window is denied with a positive retry-after
	res, err := store.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.Equal(t, base.Add(60*time.Second), res.ResetAt)

	// other keys are unaffected
	res, err = store.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// once the window elapses the counter resets, not accumulates
	now = base.Add(61 * time.Second)
	res, err = store.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 9, res.Remaining)
}

func TestMemoryStoreConcurrentExactLimit(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Allow(ctx, "ip:race")
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), allowed.Load())
}

func TestMemoryStoreSweep(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	store := NewMemoryStore(1, time.Second)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < sweepThreshold; i++ {
		_, err := store.Allow(ctx, "ip:"+time.Duration(i).String())
		require.NoError(t, err)
	}
	require.Len(t, store.entries, sweepThreshold)

	// all windows expired; the next write sweeps them out
	now = base.Add(2 * time.Second)
	_, err := store.Allow(ctx, "ip:fresh")
	require.NoError(t, err)
	assert.Len(t, store.entries, 1)
}

func TestLimiterFailedAttemptChargesBudget(t *testing.T) {
	store := NewMemoryStore(2, time.Minute)
	limiter := NewLimiter(store, zap.NewNop().Sugar())
	ctx := context.Background()

	limiter.RecordFailedAttempt(ctx, "ip:1.2.3.4")
	limiter.RecordFailedAttempt(ctx, "ip:1.2.3.4")

	res := limiter.Check(ctx, "ip:1.2.3.4")
	assert.False(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string) (Result, error) {
	return Result{}, context.DeadlineExceeded
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(failingStore{}, zap.NewNop().Sugar())
	res := limiter.Check(context.Background(), "ip:any")
	assert.True(t, res.Allowed)
}
