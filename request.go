package backstop

import (
	"context"
	"time"

	"github.com/kbukum/backstop/cache"
	apperrors "github.com/kbukum/backstop/errors"
	"github.com/kbukum/backstop/validation"
)

// Operation is the caller-supplied unit of work: an opaque call against
// the backend that returns a result or fails with an error.
type Operation[T any] func(ctx context.Context) (T, error)

// Request names and shapes one backend call.
type Request struct {
	// Service is the logical backend capability being called, e.g.
	// "auth", "database", "social". Keys circuit breaker and monitor
	// state. Required.
	Service string

	// Operation names the call within the service and selects its rate
	// limit rule. Defaults to "request".
	Operation string

	// Subject is the rate-limit subject, typically a user ID. Defaults
	// to "anonymous".
	Subject string

	// SubKey optionally splits the rate-limit bucket further.
	SubKey string

	// Priority orders queued requests; higher runs first.
	Priority int

	// CacheKey is where this call's result lives in the cache. Empty
	// disables caching and cache fallback for the call.
	CacheKey string

	// CacheTTL overrides the cache's default TTL. Zero uses the default.
	CacheTTL time.Duration

	// CacheStrategy picks how the cache participates. The zero value is
	// cache-first; a per-service strategy registered on the client
	// overrides the zero value, an explicit non-default strategy here
	// overrides both.
	CacheStrategy cache.Strategy

	// Metadata is carried into the failure context for diagnostics and
	// custom strategies.
	Metadata map[string]any
}

// validate rejects shapes the client cannot run.
func (r Request) validate() error {
	if r.Service == "" {
		return apperrors.MissingField("service")
	}

	v := validation.New().
		Min("priority", r.Priority, 0).
		MinDuration("cache_ttl", r.CacheTTL, 0).
		Custom(r.CacheTTL == 0 || r.CacheKey != "", "cache_key", "required when cache_ttl is set")
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// normalize fills the defaulted fields.
func (r Request) normalize() Request {
	if r.Operation == "" {
		r.Operation = "request"
	}
	if r.Subject == "" {
		r.Subject = "anonymous"
	}
	return r
}
