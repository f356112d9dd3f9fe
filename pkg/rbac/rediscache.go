package rbac

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a ResultCache backed by Redis, for deployments running
// more than one engine instance against the same role data. Redis
// errors degrade to cache misses; the evaluation path never fails
// because the cache is unreachable.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. ttl zero falls back to
// DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client: client,
		prefix: "gatekeeper:permcache:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(userID, permission string) string {
	return c.prefix + userID + ":" + permission
}

// Get returns a cached result; Redis expiry enforces the TTL.
func (c *RedisCache) Get(ctx context.Context, userID, permission string) (*PermissionResult, bool) {
	data, err := c.client.Get(ctx, c.key(userID, permission)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	var result PermissionResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		// Corrupt entry; drop it rather than serve garbage.
		c.client.Del(ctx, c.key(userID, permission))
		return nil, false
	}
	return &result, true
}

// Put stores a result with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, userID, permission string, result *PermissionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(userID, permission), data, c.ttl)
}

// InvalidateUser drops all cached results for one user.
func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) {
	c.deletePattern(ctx, c.prefix+userID+":*")
}

// InvalidateAll drops every cached result in the keyspace.
func (c *RedisCache) InvalidateAll(ctx context.Context) {
	c.deletePattern(ctx, c.prefix+"*")
}

func (c *RedisCache) deletePattern(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}
