// Package cache provides the process-local cache services put in front
// of the database for reads of immutable rows.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platewise/mealplanner/common/logger"
)

// Cache is a byte-oriented key-value store with per-entry TTLs
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryCache keeps entries in a mutex-guarded map. Suited to values
// that never go stale, like base recipes; there is no eviction beyond
// TTL expiry.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]entry
	stop chan struct{}
	once sync.Once
	log  *logger.Logger
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a memory cache and starts its expiry sweeper
func NewMemoryCache(log *logger.Logger) *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]entry),
		stop: make(chan struct{}),
		log:  log,
	}
	go c.sweep()
	return c
}

// Get returns the value stored under key, if present and unexpired
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for the given TTL
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes key from the cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Close stops the sweeper and drops all entries. The cache is not
// usable afterwards.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.log.Info("memory cache closed")
	return nil
}

// sweep drops expired entries once a minute so the map does not grow
// with keys nobody reads again
func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.data {
				if now.After(e.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
