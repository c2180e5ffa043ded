// Package cache provides a thread-safe LRU cache with per-entry TTL, used
// for API key lookups and permission results. Presentation content is never
// cached: every request reads the live document.
package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// Metrics tracks cache statistics.
type Metrics struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
}

// HitRate returns the hit rate as a percentage (0-100).
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total) * 100
}

// Config holds configuration for an LRU cache.
type Config struct {
	Name       string        // Used in log attributes
	MaxEntries int           // 0 means unlimited
	TTL        time.Duration // Default TTL (default: 5m)
	Logger     *slog.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Name:       "cache",
		MaxEntries: 1000,
		TTL:        5 * time.Minute,
		Logger:     slog.Default(),
	}
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRU is a least-recently-used cache with expiring entries.
type LRU[V any] struct {
	config  Config
	items   map[string]*list.Element
	order   *list.List
	mu      sync.Mutex
	metrics Metrics
	now     func() time.Time
}

// New creates an LRU cache.
func New[V any](config Config) *LRU[V] {
	if config.Name == "" {
		config.Name = "cache"
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &LRU[V]{
		config: config,
		items:  make(map[string]*list.Element),
		order:  list.New(),
		now:    time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.metrics.Misses++
		return zero, false
	}

	e := elem.Value.(*entry[V])
	if c.now().After(e.expiresAt) {
		c.removeLocked(elem)
		c.metrics.Misses++
		c.metrics.Expirations++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.metrics.Hits++
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.config.TTL)
}

// SetWithTTL stores a value with a specific TTL.
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.config.MaxEntries > 0 && c.order.Len() >= c.config.MaxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
			c.metrics.Evictions++
			c.config.Logger.Debug("cache eviction",
				slog.String("cache", c.config.Name),
				slog.Int("max_entries", c.config.MaxEntries),
			)
		}
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

// Delete removes a key. It reports whether the key was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(elem)
	return true
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of entries, expired ones included until they are
// touched or cleaned up.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Metrics returns a snapshot of the cache statistics.
func (c *LRU[V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Cleanup removes expired entries and returns how many were removed.
func (c *LRU[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, elem := range c.items {
		if now.After(elem.Value.(*entry[V]).expiresAt) {
			c.removeLocked(elem)
			c.metrics.Expirations++
			removed++
		}
	}
	if removed > 0 {
		c.config.Logger.Debug("cache cleanup",
			slog.String("cache", c.config.Name),
			slog.Int("removed", removed),
		)
	}
	return removed
}

// removeLocked removes an element. The lock must be held.
func (c *LRU[V]) removeLocked(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[V]).key)
	c.order.Remove(elem)
}
