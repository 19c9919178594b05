package cache

import (
	"context"
	"fmt"
	"time"
)

// Strategy is a caller-applied policy for combining the cache with a fetch.
// The cache itself only stores and expires; the strategy decides when to
// read it, per data domain.
type Strategy int

const (
	// CacheFirst serves a fresh cached value and only fetches on a miss.
	CacheFirst Strategy = iota
	// NetworkFirst always fetches, keeping the cache warm for fallback.
	NetworkFirst
	// StaleWhileRevalidate serves the cached value immediately and
	// refreshes it in the background.
	StaleWhileRevalidate
	// NetworkOnly never reads or writes the cache.
	NetworkOnly
)

// String returns the wire name of the strategy.
func (s Strategy) String() string {
	switch s {
	case CacheFirst:
		return "cache-first"
	case NetworkFirst:
		return "network-first"
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	case NetworkOnly:
		return "network-only"
	default:
		return "unknown"
	}
}

// ParseStrategy resolves a wire name back to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "cache-first":
		return CacheFirst, nil
	case "network-first":
		return NetworkFirst, nil
	case "stale-while-revalidate":
		return StaleWhileRevalidate, nil
	case "network-only":
		return NetworkOnly, nil
	default:
		return 0, fmt.Errorf("cache: unknown strategy %q", s)
	}
}

// Resolve applies a strategy to one key: it decides whether to serve the
// cached value, call fetch, or both. Concurrent fetches for the same key are
// collapsed into one. Values fetched here are stored with ttl; pass 0 to use
// the cache default. Background refresh errors are discarded, the next read
// simply fetches again.
func Resolve[T any](ctx context.Context, c *Cache, key string, strategy Strategy, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	switch strategy {
	case NetworkOnly:
		return fetch(ctx)

	case CacheFirst:
		if v, ok := Typed[T](c, key); ok {
			return v, nil
		}
		return fetchAndFill(ctx, c, key, ttl, fetch)

	case NetworkFirst:
		return fetchAndFill(ctx, c, key, ttl, fetch)

	case StaleWhileRevalidate:
		if v, ok := Typed[T](c, key); ok {
			go func() {
				_, _ = fetchAndFill(context.WithoutCancel(ctx), c, key, ttl, fetch)
			}()
			return v, nil
		}
		return fetchAndFill(ctx, c, key, ttl, fetch)

	default:
		return zero, fmt.Errorf("cache: unknown strategy %d", strategy)
	}
}

// fetchAndFill loads a value through the cache's singleflight group and
// stores the result on success.
func fetchAndFill[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	v, err, _ := c.flights.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	result, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache %q: key %q holds %T", c.config.Name, key, v)
	}
	return result, nil
}
