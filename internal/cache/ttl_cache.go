package cache

import (
	"sync"
	"time"
)

// Cache is a read-through cache with per-entry TTL.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a size-bounded TTL cache. When full it evicts expired entries
// first, then the entry closest to expiry. Owned explicitly by whoever
// constructs it; there is no package-level instance.
type ttlCache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	maxEntries int
	now        func() time.Time
}

const defaultMaxEntries = 1024

func NewTTLCache[K comparable, V any]() Cache[K, V] {
	return NewBoundedTTLCache[K, V](defaultMaxEntries)
}

func NewBoundedTTLCache[K comparable, V any](maxEntries int) Cache[K, V] {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &ttlCache[K, V]{
		entries:    make(map[K]entry[V]),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *ttlCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries, or the soonest-to-expire entry when
// nothing has expired yet. Caller holds the lock.
func (c *ttlCache[K, V]) evictLocked() {
	now := c.now()
	removed := false
	for key, item := range c.entries {
		if now.After(item.expiresAt) {
			delete(c.entries, key)
			removed = true
		}
	}
	if removed {
		return
	}

	var (
		oldestKey K
		oldestAt  time.Time
		found     bool
	)
	for key, item := range c.entries {
		if !found || item.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = item.expiresAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
