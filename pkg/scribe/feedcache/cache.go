// Package feedcache holds the process-wide cache of rendered global-feed
// pages. Entries live for a fixed TTL; post writes do not touch the cache,
// so a new post may not show up on the global feed until the TTL elapses.
// That staleness window is the intended trade-off, mirroring a fixed-TTL
// page cache. Expired entries are swept whenever a new body is stored, and
// Invalidate drops everything at once.
package feedcache

import (
	"sync"
	"time"
)

type entry struct {
	body      []byte
	expiresAt time.Time
}

// Cache is a TTL-bounded cache of rendered feed bodies keyed by page.
// The clock is injected so tests can move time instead of sleeping.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a Cache with the given TTL, reading time from time.Now.
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock creates a Cache with an explicit clock. Use in tests.
func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// GetOrCompute returns the cached body for key if it has not expired,
// otherwise calls produce, caches its result, and returns it. The second
// return reports whether the body came from the cache. Storing a new body
// also sweeps out every expired entry, so the cache never holds more than
// one TTL window's worth of keys.
func (c *Cache) GetOrCompute(key string, produce func() ([]byte, error)) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		return e.body, true, nil
	}

	body, err := produce()
	if err != nil {
		return nil, false, err
	}

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = entry{body: body, expiresAt: now.Add(c.ttl)}
	return body, false, nil
}

// Invalidate drops every cached entry, forcing recompute on next read.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
