package throttle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrs   int
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.incrs++
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	f.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func TestAllowWithinLimit(t *testing.T) {
	store := newFakeStore()
	counter := newCounter(store, "throttle:test")

	for i := 0; i < 3; i++ {
		allowed, err := counter.Allow(context.Background(), "+447700900123", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i+1)
	}
}

func TestAllowBlocksOverLimit(t *testing.T) {
	store := newFakeStore()
	counter := newCounter(store, "throttle:test")

	for i := 0; i < 2; i++ {
		_, err := counter.Allow(context.Background(), "+447700900123", 2, time.Minute)
		require.NoError(t, err)
	}

	allowed, err := counter.Allow(context.Background(), "+447700900123", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllowUsesLocalCacheOnceBlocked(t *testing.T) {
	store := newFakeStore()
	counter := newCounter(store, "throttle:test")

	for i := 0; i < 3; i++ {
		_, err := counter.Allow(context.Background(), "+447700900123", 2, time.Minute)
		require.NoError(t, err)
	}
	incrsAfterBlock := store.incrs

	allowed, err := counter.Allow(context.Background(), "+447700900123", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, incrsAfterBlock, store.incrs, "a blocked key is answered from the local cache")
}

func TestWindowSetOnFirstIncrement(t *testing.T) {
	store := newFakeStore()
	counter := newCounter(store, "throttle:test")

	_, err := counter.Allow(context.Background(), "+447700900123", 5, time.Minute)
	require.NoError(t, err)
	_, err = counter.Allow(context.Background(), "+447700900123", 5, time.Minute)
	require.NoError(t, err)

	require.Len(t, store.expires, 1, "the window is only set when the key is created")
	for _, window := range store.expires {
		assert.Equal(t, time.Minute, window)
	}
}

func TestKeysAreHashed(t *testing.T) {
	store := newFakeStore()
	counter := newCounter(store, "throttle:test")

	_, err := counter.Allow(context.Background(), "+447700900123", 5, time.Minute)
	require.NoError(t, err)

	for key := range store.counts {
		assert.NotContains(t, key, "447700900123", "raw caller identifiers must not appear in store keys")
	}
}

func TestStoreErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.err = fmt.Errorf("connection refused")
	counter := newCounter(store, "throttle:test")

	_, err := counter.Allow(context.Background(), "+447700900123", 5, time.Minute)
	assert.Error(t, err)
}
