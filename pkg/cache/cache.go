package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss reports an absent or expired key.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the contract shared by the memory, Redis, and layered caches.
// Values are plain strings: callers that cache structs JSON-encode them
// first, so the in-process layer never holds live pointers and the Redis
// layer needs no extra codec. Get returns ErrCacheMiss when the key is
// absent or expired. TryLock sets a key only if it does not exist yet,
// which doubles as the watcher's seen-alert marker.
type Service interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
