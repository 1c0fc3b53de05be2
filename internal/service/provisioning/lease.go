package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes provisioning per event. The carrier purchase is
// irreversible and happens before the check-and-set persistence write,
// so the whole purchase-then-persist sequence is gated by a short
// lease instead of relying on the read check alone.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client, prefix: "lease:provision"}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+":"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire provisioning lease: %w", err)
	}
	return ok, nil
}

func (l *redisLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+":"+key).Err(); err != nil {
		return fmt.Errorf("failed to release provisioning lease: %w", err)
	}
	return nil
}
