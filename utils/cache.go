// utils/cache.go
package utils

import (
	"sync"
	"time"
)

// TTLCache is a small read-through cache with per-entry expiry. It is never
// a system of record: writers must call Delete so readers fall back to the
// database, and redemption balance checks bypass it entirely.
type TTLCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	storedAt  time.Time
	expiresAt time.Time
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value and its age. ok is false once expired.
func (c *TTLCache) Get(key string) (value interface{}, age time.Duration, ok bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found || time.Now().After(e.expiresAt) {
		return nil, 0, false
	}
	return e.value, time.Since(e.storedAt), true
}

func (c *TTLCache) Set(key string, value interface{}) {
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: now, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge drops every entry, expired or not.
func (c *TTLCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// TTL returns the staleness bound callers are promised.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}
