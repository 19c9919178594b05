// Package cache provides an in-memory store for fetched data with lazy TTL
// expiry and a small capacity bound.
//
// Expiry is checked on access: a read past the TTL deletes the entry and
// reports a miss. Capacity is checked on write: inserting a new key into a
// full cache evicts the single oldest entry by insertion time.
//
// How the cache is consulted is a per-domain policy, not a cache property.
// Resolve applies one of four strategies around a fetch function:
//
//	// Reference data changes rarely: serve from cache when fresh.
//	plans, err := cache.Resolve(ctx, c, "billing:plans", cache.CacheFirst, time.Hour, fetchPlans)
//
//	// Dashboards want fast paint and eventual freshness.
//	stats, err := cache.Resolve(ctx, c, "stats:today", cache.StaleWhileRevalidate, 0, fetchStats)
//
// After a successful write, invalidate the reads it affects:
//
//	n, _ := c.DeletePattern("reports:*")
package cache
