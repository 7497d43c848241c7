package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is an in-memory implementation of shortener.Cache with per-key expiry.
// Expired entries are dropped lazily on access.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock creates an in-memory cache that reads time from now.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lookup(key)
	if !ok {
		return nil, shortener.ErrCacheMiss
	}

	return append([]byte(nil), entry.value...), nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = c.newEntry(value, ttl)

	return nil
}

func (c *MemoryCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(key); ok {
		return false, nil
	}

	c.entries[key] = c.newEntry(value, ttl)

	return true, nil
}

// Incr increments the counter at key and returns the new value.
// A missing or expired key starts at 1 and expires after ttl; later increments keep that expiry.
func (c *MemoryCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lookup(key)
	if !ok {
		c.entries[key] = c.newEntry([]byte("1"), ttl)

		return 1, nil
	}

	count, err := strconv.ParseInt(string(entry.value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("incr %s: value is not a counter: %w", key, err)
	}

	count++
	entry.value = strconv.AppendInt(nil, count, 10)
	c.entries[key] = entry

	return count, nil
}

// lookup must be called with mu held.
func (c *MemoryCache) lookup(key string) (cacheEntry, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}

	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)

		return cacheEntry{}, false
	}

	return entry, true
}

func (c *MemoryCache) newEntry(value []byte, ttl time.Duration) cacheEntry {
	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	return entry
}

// Compile-time checks.
var (
	_ shortener.Cache    = (*MemoryCache)(nil)
	_ shortener.Reserver = (*MemoryCache)(nil)
)
