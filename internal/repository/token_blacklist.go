package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist records refresh tokens that were already rotated.
type TokenBlacklist interface {
	// Consume marks jti as used until ttl elapses. It reports false when jti
	// had already been consumed.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type memoryBlacklist struct {
	mu   sync.Mutex
	now  func() time.Time
	used map[string]time.Time
}

// NewMemoryBlacklist keeps consumed ids in process memory.
func NewMemoryBlacklist() TokenBlacklist {
	return &memoryBlacklist{now: time.Now, used: make(map[string]time.Time)}
}

func (b *memoryBlacklist) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for id, until := range b.used {
		if now.After(until) {
			delete(b.used, id)
		}
	}
	if _, ok := b.used[jti]; ok {
		return false, nil
	}
	b.used[jti] = now.Add(ttl)
	return true, nil
}

type redisBlacklist struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBlacklist stores consumed ids as expiring redis keys.
func NewRedisBlacklist(client redis.Cmdable, prefix string) TokenBlacklist {
	return &redisBlacklist{client: client, prefix: prefix}
}

func (b *redisBlacklist) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	return b.client.SetNX(ctx, b.prefix+jti, 1, ttl).Result()
}
