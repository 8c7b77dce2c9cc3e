package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry stores one cached value with expiry.
type entry[V any] struct {
	expiresAt time.Time
	value     V
}

// Cache keeps loaded values for a TTL. Concurrent loads of the same key are
// coalesced; failed loads are not cached.
type Cache[V any] struct {
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry[V]
	sf    singleflight.Group
	now   func() time.Time
}

func New[V any](ttl time.Duration, maxItems int) *Cache[V] {
	return &Cache[V]{TTL: ttl, MaxItems: maxItems, items: make(map[string]entry[V]), now: time.Now}
}

// Get returns the cached value for key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !c.clock().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrLoad returns the cached value for key, calling load on a miss.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if c == nil || c.TTL <= 0 {
		return load(ctx)
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) put(key string, v V) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry[V])
	}
	c.items[key] = entry[V]{expiresAt: now.Add(c.TTL), value: v}
	if c.MaxItems <= 0 || len(c.items) <= c.MaxItems {
		return
	}
	// evict expired first, then arbitrary keys
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
	for k := range c.items {
		if len(c.items) <= c.MaxItems {
			break
		}
		if k != key {
			delete(c.items, k)
		}
	}
}

func (c *Cache[V]) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
