package envdata

import (
	"sync"
	"time"

	"eldersafe/internal/types"
)

// maxCacheEntries bounds per-provider cache growth; beyond this, expired
// entries are purged and, if still full, an arbitrary entry is evicted.
const maxCacheEntries = 256

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a small coordinate-keyed cache with per-cache TTL. Each
// provider gets its own instance so weather, air quality, and UV can expire
// on different schedules.
type ttlCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   types.Clock
	entries map[string]cacheEntry[V]
}

func newTTLCache[V any](ttl time.Duration, clock types.Clock) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry[V]),
	}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= maxCacheEntries {
		now := c.clock.Now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= maxCacheEntries {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
	}

	c.entries[key] = cacheEntry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}
