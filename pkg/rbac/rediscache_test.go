package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, time.Minute), srv
}

func TestRedisCache_PutGet(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	result := &PermissionResult{
		Permission:  "batch:view",
		Granted:     true,
		Reason:      "granted by: role:supervisor",
		Sources:     []string{"role:supervisor"},
		EvaluatedAt: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
	}
	cache.Put(ctx, "u1", "batch:view", result)

	got, ok := cache.Get(ctx, "u1", "batch:view")
	require.True(t, ok)
	assert.Equal(t, result.Permission, got.Permission)
	assert.Equal(t, result.Sources, got.Sources)
	assert.True(t, result.EvaluatedAt.Equal(got.EvaluatedAt))

	_, ok = cache.Get(ctx, "u2", "batch:view")
	assert.False(t, ok)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	cache, srv := setupRedisCache(t)
	ctx := context.Background()

	cache.Put(ctx, "u1", "batch:view", &PermissionResult{Permission: "batch:view"})

	srv.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "u1", "batch:view")
	assert.False(t, ok)
}

func TestRedisCache_InvalidateUser(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	cache.Put(ctx, "u1", "batch:view", &PermissionResult{})
	cache.Put(ctx, "u1", "batch:approve", &PermissionResult{})
	cache.Put(ctx, "u2", "batch:view", &PermissionResult{})

	cache.InvalidateUser(ctx, "u1")

	_, ok := cache.Get(ctx, "u1", "batch:view")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "u2", "batch:view")
	assert.True(t, ok)
}

func TestRedisCache_InvalidateAll(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	cache.Put(ctx, "u1", "batch:view", &PermissionResult{})
	cache.Put(ctx, "u2", "batch:approve", &PermissionResult{})

	cache.InvalidateAll(ctx)

	_, ok := cache.Get(ctx, "u1", "batch:view")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "u2", "batch:approve")
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	cache, srv := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, srv.Set("gatekeeper:permcache:u1:batch:view", "not-json"))

	_, ok := cache.Get(ctx, "u1", "batch:view")
	assert.False(t, ok)
}
