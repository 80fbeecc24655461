package validate

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"ehonhub/pkg/models"
)

type cacheEntry struct {
	metas []models.VolumeMeta
}

// Cache memoizes catalog lookups for the lifetime of one build. Concurrent
// lookups of the same key share one upstream call. A Cache must not be
// shared between builds.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Do returns the cached result for key, or runs fn once and stores what it
// returns. Errors are stored as "no metadata" so a failing lookup is not
// retried within the same build.
func (c *Cache) Do(ctx context.Context, key string, fn func(ctx context.Context) ([]models.VolumeMeta, error)) ([]models.VolumeMeta, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e.metas, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e.metas, nil
		}
		metas, err := fn(ctx)
		c.mu.Lock()
		c.entries[key] = cacheEntry{metas: metas}
		c.mu.Unlock()
		return metas, err
	})
	metas, _ := v.([]models.VolumeMeta)
	return metas, err
}

// Len returns the number of memoized keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
