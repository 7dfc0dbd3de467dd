package domain

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// requestCacheKey is an unexported context key for the per-request circle cache.
type requestCacheKey struct{}

// requestCache memoizes resolved circles and branches for the lifetime of
// one request. It is deliberately not shared across requests: directory
// mutations between requests must be observed, so there is no process-wide
// circle cache. Circles and branches differ for agent roots, so they live
// in separate maps.
type requestCache struct {
	mu       sync.Mutex
	circles  map[snowflake.ID]Circle
	branches map[snowflake.ID]Circle
}

// WithRequestCache attaches a fresh circle cache to ctx. Handlers that
// perform several access checks per request should install one so the
// directory is scanned at most once per user.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheKey{}, &requestCache{
		circles:  make(map[snowflake.ID]Circle),
		branches: make(map[snowflake.ID]Circle),
	})
}

func cacheFromContext(ctx context.Context) *requestCache {
	if ctx == nil {
		return nil
	}
	cache, _ := ctx.Value(requestCacheKey{}).(*requestCache)
	return cache
}

func (c *requestCache) get(id snowflake.ID) (Circle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	circle, ok := c.circles[id]
	return circle, ok
}

func (c *requestCache) set(id snowflake.ID, circle Circle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circles[id] = circle
}

// CachedCircle consults the request cache, if one is installed.
func CachedCircle(ctx context.Context, id snowflake.ID) (Circle, bool) {
	cache := cacheFromContext(ctx)
	if cache == nil {
		return nil, false
	}
	return cache.get(id)
}

// StoreCircle records a resolved circle in the request cache, if one is installed.
func StoreCircle(ctx context.Context, id snowflake.ID, circle Circle) {
	cache := cacheFromContext(ctx)
	if cache == nil {
		return
	}
	cache.set(id, circle)
}

// CachedBranch consults the request cache, if one is installed.
func CachedBranch(ctx context.Context, id snowflake.ID) (Circle, bool) {
	cache := cacheFromContext(ctx)
	if cache == nil {
		return nil, false
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	branch, ok := cache.branches[id]
	return branch, ok
}

// StoreBranch records a resolved branch in the request cache, if one is installed.
func StoreBranch(ctx context.Context, id snowflake.ID, branch Circle) {
	cache := cacheFromContext(ctx)
	if cache == nil {
		return
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.branches[id] = branch
}
