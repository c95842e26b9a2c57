package outbox

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards an event against concurrent re-drives.
type Locker interface {
	// Acquire returns false when another worker holds the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements Locker with SET NX and a TTL.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

// NewLocker returns a RedisLocker, or a no-op locker when rdb is nil.
func NewLocker(rdb *redis.Client, prefix string) Locker {
	if rdb == nil {
		return noopLocker{}
	}
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) key(k string) string { return l.prefix + ":" + k }

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, l.key(key), "1", ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.key(key)).Err()
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (noopLocker) Release(context.Context, string) error                       { return nil }
