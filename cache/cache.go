package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with its creation timestamp.
type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache is a simple in-memory TTL cache keyed by string.
// It is safe for concurrent use.
type Cache[V any] struct {
	mu         sync.RWMutex
	store      map[string]*entry[V]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache holding at most maxEntries values for ttl each.
// A background goroutine evicts expired entries every 5 minutes until
// Close is called.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		store:      make(map[string]*entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Get retrieves a value if it exists and is younger than the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		return zero, false
	}
	return e.value, true
}

// Set stores a value. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && c.maxEntries > 0 && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry[V]{
		value:     value,
		createdAt: c.now(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache[V]) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
