package rbac

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL is the fixed time-to-live for cached results.
const DefaultCacheTTL = 5 * time.Minute

// ResultCache memoizes evaluation outcomes per (user, permission). The
// cache is a derived, disposable view: dropping it wholesale is always
// safe and costs only latency. InvalidateAll is deliberately coarse;
// fine-grained invalidation would require tracking reverse dependencies
// between roles and cached users.
type ResultCache interface {
	// Get returns a cached result, or false on miss or expiry.
	Get(ctx context.Context, userID, permission string) (*PermissionResult, bool)

	// Put stores a result unconditionally.
	Put(ctx context.Context, userID, permission string, result *PermissionResult)

	// InvalidateUser drops all cached results for one user.
	InvalidateUser(ctx context.Context, userID string)

	// InvalidateAll drops everything. Called on any role or permission
	// mutation.
	InvalidateAll(ctx context.Context)
}

const cacheKeySep = "\x00"

func cacheKey(userID, permission string) string {
	return userID + cacheKeySep + permission
}

// MemoryCache is an in-process ResultCache backed by an expirable LRU.
type MemoryCache struct {
	cache *lru.LRU[string, *PermissionResult]
}

// NewMemoryCache creates a memory cache. maxEntries bounds memory; ttl
// zero falls back to DefaultCacheTTL.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		cache: lru.NewLRU[string, *PermissionResult](maxEntries, nil, ttl),
	}
}

// Get returns a cached result if present and not expired.
func (c *MemoryCache) Get(_ context.Context, userID, permission string) (*PermissionResult, bool) {
	return c.cache.Get(cacheKey(userID, permission))
}

// Put stores a result unconditionally.
func (c *MemoryCache) Put(_ context.Context, userID, permission string, result *PermissionResult) {
	c.cache.Add(cacheKey(userID, permission), result)
}

// InvalidateUser drops all cached results for one user.
func (c *MemoryCache) InvalidateUser(_ context.Context, userID string) {
	prefix := userID + cacheKeySep
	for _, key := range c.cache.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.cache.Remove(key)
		}
	}
}

// InvalidateAll drops everything.
func (c *MemoryCache) InvalidateAll(_ context.Context) {
	c.cache.Purge()
}
