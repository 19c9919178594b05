// Package config defines the policy configuration of the resilience
// layer and loads it from config.yml, .env files, and environment
// variables.
//
// Each policy section (breaker, rate_limit, cache, queue, retry,
// recovery, connectivity, observability) owns its defaults and
// validation. Load resolves the files, binds environment overrides
// through Viper, and returns a fully defaulted, validated Config:
//
//	cfg, err := config.Load()
//
// Environment variables override file values using underscore-separated
// paths (e.g., CACHE_MAX_ENTRIES, BREAKER_FAILURE_THRESHOLD).
package config
