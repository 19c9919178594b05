package cache

import (
	"path"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// EvictReason says why an entry left the cache.
type EvictReason int

const (
	// EvictExpired is a TTL expiry discovered on access or sweep.
	EvictExpired EvictReason = iota
	// EvictCapacity is an eviction making room for a new entry.
	EvictCapacity
)

// String returns a human-readable reason.
func (r EvictReason) String() string {
	switch r {
	case EvictExpired:
		return "expired"
	case EvictCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Config configures a cache.
type Config struct {
	// Name identifies this cache for metrics/logging.
	Name string
	// MaxEntries bounds the cache size. The oldest entry is evicted when a
	// new key would exceed it.
	MaxEntries int
	// DefaultTTL applies when Set is called without a positive TTL.
	DefaultTTL time.Duration
	// OnEvict is called when an entry is evicted by TTL or capacity.
	OnEvict func(key string, reason EvictReason)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:       name,
		MaxEntries: 500,
		DefaultTTL: 5 * time.Minute,
	}
}

// entry is one cached value with its expiry bookkeeping.
type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

// expired reports whether the entry is past its TTL at now.
func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Cache is an in-memory store with lazy TTL expiry and insertion-order
// capacity eviction. Values are whatever the caller stores; Typed recovers
// them with their concrete type. Safe for concurrent use.
type Cache struct {
	config Config

	mu      sync.RWMutex
	entries map[string]*entry
	flights singleflight.Group

	now func() time.Time // test hook
}

// New creates a cache.
func New(config Config) *Cache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 500
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}

	return &Cache{
		config:  config,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the value for key, or false when absent or expired.
// An expired entry is removed on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		c.expire(key)
		return nil, false
	}
	return e.value, true
}

// Typed returns the value for key as T. A present value of another type is
// treated as a miss.
func Typed[T any](c *Cache, key string) (T, bool) {
	var zero T

	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set stores value under key. A non-positive ttl falls back to DefaultTTL.
// When the cache is full and key is new, the oldest entry by insertion time
// is evicted first.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	var evictedKey string
	evicted := false

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		evictedKey, evicted = c.evictOldestLocked()
	}
	c.entries[key] = &entry{value: value, insertedAt: c.now(), ttl: ttl}
	c.mu.Unlock()

	if evicted && c.config.OnEvict != nil {
		c.config.OnEvict(evictedKey, EvictCapacity)
	}
}

// Has reports whether key holds a fresh value, removing it when expired.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	return ok
}

// DeletePattern removes every key matching the glob pattern, as understood
// by path.Match, and returns how many were dropped. Used after a successful
// write to invalidate derived reads, for example "reports:*".
func (c *Cache) DeletePattern(pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if matched {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, counting expired ones that have
// not been swept yet.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	var dropped []string
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			dropped = append(dropped, key)
		}
	}
	c.mu.Unlock()

	if c.config.OnEvict != nil {
		for _, key := range dropped {
			c.config.OnEvict(key, EvictExpired)
		}
	}
	return len(dropped)
}

// expire deletes key if it is still expired, then reports the eviction.
// Re-checks under the write lock so a concurrent Set is not clobbered.
func (c *Cache) expire(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	stale := ok && e.expired(c.now())
	if stale {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if stale && c.config.OnEvict != nil {
		c.config.OnEvict(key, EvictExpired)
	}
}

// evictOldestLocked removes the entry with the earliest insertion time.
// Callers must hold the write lock.
func (c *Cache) evictOldestLocked() (string, bool) {
	var oldestKey string
	var oldestAt time.Time
	found := false

	for key, e := range c.entries {
		if !found || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, e.insertedAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
	return oldestKey, found
}
