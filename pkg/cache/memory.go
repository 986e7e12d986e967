package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	expireAt time.Time
	touched  time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is the in-process Service implementation. Entries carry their
// own expiry and last-use time; when the entry cap is hit the least recently
// used entry is evicted, and a background sweep drops expired entries so a
// quiet cache does not hold dead windows for days.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	maxSize int
	sweep   *time.Ticker
	done    chan struct{}
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: cfg.MaxSize,
		sweep:   time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go mc.sweepLoop()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	now := time.Now()
	if ttl <= 0 {
		// unbounded entries still age out eventually
		ttl = 7 * 24 * time.Hour
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.entries[key]; !ok && len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}
	mc.entries[key] = &memoryEntry{value: value, expireAt: now.Add(ttl), touched: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string) (string, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if e.expired(now) {
		delete(mc.entries, key)
		return "", ErrCacheMiss
	}
	e.touched = now
	return e.value, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

// DeleteByPattern drops every key with the pattern's literal prefix. Only
// trailing-star patterns occur in this codebase; anything else clears the
// whole cache rather than silently keeping entries the caller meant to drop.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	prefix, ok := literalPrefix(pattern)
	if !ok {
		mc.entries = make(map[string]*memoryEntry)
		return nil
	}
	for key := range mc.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(mc.entries, key)
		}
	}
	return nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if e, ok := mc.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	mc.entries[key] = &memoryEntry{value: "1", expireAt: now.Add(ttl), touched: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest removes the least recently touched entry. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range mc.entries {
		if first || e.touched.Before(oldest) {
			oldest = e.touched
			oldestKey = key
			first = false
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

func (mc *MemoryCache) sweepLoop() {
	for {
		select {
		case <-mc.done:
			return
		case now := <-mc.sweep.C:
			mc.mu.Lock()
			for key, e := range mc.entries {
				if e.expired(now) {
					delete(mc.entries, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the background sweep.
func (mc *MemoryCache) Close() error {
	mc.sweep.Stop()
	select {
	case <-mc.done:
	default:
		close(mc.done)
	}
	return nil
}

// literalPrefix returns the literal part of a trailing-star glob, or false
// when the pattern has wildcards anywhere else.
func literalPrefix(pattern string) (string, bool) {
	if pattern == "" {
		return "", false
	}
	star := -1
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*':
			if star >= 0 {
				return "", false
			}
			star = i
		case '?', '[':
			return "", false
		}
	}
	if star < 0 {
		return pattern, true
	}
	if star != len(pattern)-1 {
		return "", false
	}
	return pattern[:star], true
}
