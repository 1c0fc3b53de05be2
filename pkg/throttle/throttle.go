package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// counterStore is the slice of the redis API the counter needs.
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Counter is a fixed-window request counter backed by redis, so the limit
// holds across horizontally scaled instances. A short-lived in-process
// cache absorbs repeat lookups for keys that are already over the limit;
// redis remains the source of truth.
type Counter struct {
	client counterStore
	prefix string
	local  *gocache.Cache
}

func NewCounter(client *redis.Client, prefix string) *Counter {
	return newCounter(client, prefix)
}

func newCounter(client counterStore, prefix string) *Counter {
	return &Counter{
		client: client,
		prefix: prefix,
		local:  gocache.New(10*time.Second, time.Minute),
	}
}

// Allow increments the counter for key and reports whether the caller is
// within limit for the current window. Identifiers are hashed before use
// so raw phone numbers never appear in redis keys.
func (c *Counter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	hashed := hashKey(key)

	if _, blocked := c.local.Get(hashed); blocked {
		return false, nil
	}

	redisKey := fmt.Sprintf("%s:%s", c.prefix, hashed)

	count, err := c.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment throttle counter: %w", err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set throttle window: %w", err)
		}
	}

	if count > limit {
		c.local.Set(hashed, struct{}{}, window)
		return false, nil
	}
	return true, nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
