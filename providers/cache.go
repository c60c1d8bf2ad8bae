package providers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs for provider lookups. Negative results are cached shorter so
// a transient upstream failure does not hide a track for a full hour.
const (
	CacheTTL         = 1 * time.Hour
	NegativeCacheTTL = 30 * time.Minute
)

// Cache is a minimal get/set cache injected into the catalog and lyrics
// clients. A miss is reported with found=false, never an error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// RedisCache backs Cache with a Redis client.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	// Cache writes are best-effort; the caller already has the value.
	c.client.Set(ctx, key, value, ttl)
}

// NoopCache satisfies Cache without storing anything. Used when Redis is
// not configured and in tests.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) (string, bool)        { return "", false }
func (NoopCache) Set(ctx context.Context, key, value string, ttl time.Duration) {}
