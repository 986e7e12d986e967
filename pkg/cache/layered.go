package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with a small in-process layer. Reads try memory
// first and backfill it from Redis on a miss; writes go through to Redis so
// other instances see them. Locks live in Redis only, since an in-process
// lock cannot dedupe alerts across instances.
type LayeredCache struct {
	local  *MemoryCache
	shared *RedisCache
}

// localBackfillTTL bounds how long a read-through entry lives in memory. The
// remaining Redis TTL is unknown at backfill time, so the local copy must not
// outlive the shared one by much.
const localBackfillTTL = time.Minute

// NewLayeredCache creates the two-level cache over an existing Redis cache.
func NewLayeredCache(shared *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		local:  NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		shared: shared,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := lc.shared.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string) (string, error) {
	if val, err := lc.local.Get(ctx, key); err == nil {
		return val, nil
	}
	val, err := lc.shared.Get(ctx, key)
	if err != nil {
		return "", err
	}
	_ = lc.local.Set(ctx, key, val, localBackfillTTL)
	return val, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.shared.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.local.DeleteByPattern(ctx, pattern)
	return lc.shared.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.shared.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.shared.Unlock(ctx, key)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.shared.Close()
}
