package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicnotes/internal/config"
)

func TestMemoryStoreWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	limiter := New(store, 3, 15*time.Minute)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		res, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, 15*time.Minute, res.ResetIn)
	assert.EqualValues(t, 900, res.ResetSeconds())

	other, err := limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are counted separately")

	now = now.Add(15 * time.Minute)
	res, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.EqualValues(t, 2, res.Remaining)
}

func TestMemoryStoreSweepsExpiredWindows(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	store.windows["stale"] = &window{count: 5, resetAt: now.Add(-time.Second)}
	store.windows["live"] = &window{count: 1, resetAt: now.Add(time.Minute)}
	store.sweep(now)

	assert.NotContains(t, store.windows, "stale")
	assert.Contains(t, store.windows, "live")
}

func TestPolicy(t *testing.T) {
	limiter := New(NewMemoryStore(), 100, 15*time.Minute)
	assert.Equal(t, "100;w=900", limiter.Policy())
	assert.EqualValues(t, 100, limiter.Limit())
}

func TestResetSecondsRoundsUp(t *testing.T) {
	assert.EqualValues(t, 2, Result{ResetIn: 1500 * time.Millisecond}.ResetSeconds())
	assert.EqualValues(t, 1, Result{}.ResetSeconds())
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStoreWindow(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()
	limiter := New(store, 2, time.Minute)

	require.NoError(t, store.Ping(ctx))

	res, err := limiter.Allow(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, time.Minute, res.ResetIn)
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"key-1"))

	_, err = limiter.Allow(ctx, "key-1")
	require.NoError(t, err)

	res, err = limiter.Allow(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	mr.FastForward(time.Minute)

	res, err = limiter.Allow(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.EqualValues(t, 1, res.Remaining)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, store := setupTestRedis(t)
	mr.Close()

	_, err := New(store, 1, time.Minute).Allow(context.Background(), "key-1")
	require.Error(t, err)
}
