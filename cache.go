package dinghy

import (
	"reflect"
	"sync"
)

// cacheEntry is an in-flight or completed creation for one service type.
// The creating goroutine closes done when the instance is ready; other
// callers wait on it instead of holding the cache lock during creation.
type cacheEntry struct {
	done     chan struct{}
	instance any
	err      error
}

// instanceCache holds created instances for one lifetime boundary: the
// root provider owns one for singletons, every scope owns one for scoped
// instances. getOrCreate guarantees at most one creation per service type
// under concurrent callers.
type instanceCache struct {
	mu      sync.RWMutex
	entries map[reflect.Type]*cacheEntry
}

func newInstanceCache() *instanceCache {
	return &instanceCache{
		entries: make(map[reflect.Type]*cacheEntry),
	}
}

// getOrCreate returns the cached instance for t, creating it with create
// on a miss. The check-lock-recheck discipline ensures a single creation
// even under simultaneous first-time resolvers; create runs without the
// map lock held so dependency creation can reenter the cache. A failed
// creation is removed so later resolutions can retry.
//
// The returned bool is true when this call performed the creation.
func (c *instanceCache) getOrCreate(t reflect.Type, create func() (any, error)) (any, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[t]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		entry, ok = c.entries[t]
		if !ok {
			entry = &cacheEntry{done: make(chan struct{})}
			c.entries[t] = entry
			c.mu.Unlock()

			entry.instance, entry.err = create()
			if entry.err != nil {
				c.mu.Lock()
				delete(c.entries, t)
				c.mu.Unlock()
			}
			close(entry.done)

			return entry.instance, true, entry.err
		}
		c.mu.Unlock()
	}

	<-entry.done
	return entry.instance, false, entry.err
}

// clear drops every entry. Called on disposal, after the owner has
// released its disposable instances.
func (c *instanceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[reflect.Type]*cacheEntry)
}
