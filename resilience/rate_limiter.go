package resilience

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Common rate limiter errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)

// LimitRule bounds request counts within a sliding window.
type LimitRule struct {
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int `mapstructure:"max_requests" validate:"required,gt=0"`
	// Window is the length of the sliding window.
	Window time.Duration `mapstructure:"window" validate:"required,gt=0"`
}

// RateLimiterConfig configures a sliding window rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Rules maps an operation name to its limit rule.
	Rules map[string]LimitRule
	// Default applies to operations with no specific rule.
	Default LimitRule
	// OnLimit is called with the bucket key when a request is denied.
	OnLimit func(key string)
}

// DefaultRateLimiterConfig returns the built-in rules: five login attempts
// per fifteen minutes, a hundred requests per minute for everything else.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name: name,
		Rules: map[string]LimitRule{
			"login": {MaxRequests: 5, Window: 15 * time.Minute},
		},
		Default: LimitRule{MaxRequests: 100, Window: time.Minute},
	}
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the rule's maximum for this window.
	Limit int
	// Remaining is how many requests are left in the window.
	Remaining int
	// ResetTime is when the oldest counted request leaves the window.
	ResetTime time.Time
	// RetryAfter is how long to wait before retrying. Zero when allowed.
	RetryAfter time.Duration
}

// window holds the request timestamps for one bucket, oldest first.
type window struct {
	span   time.Duration
	stamps []time.Time
}

// trim drops timestamps older than the cutoff.
func (w *window) trim(cutoff time.Time) {
	drop := 0
	for drop < len(w.stamps) && w.stamps[drop].Before(cutoff) {
		drop++
	}
	if drop > 0 {
		w.stamps = w.stamps[drop:]
	}
}

// RateLimiter enforces per-subject sliding window limits. Each subject and
// operation pair gets its own bucket; an optional sub-key splits a bucket
// further, for example per upload target.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	windows map[string]*window

	now func() time.Time // test hook
}

// NewRateLimiter creates a sliding window rate limiter.
// Rules with non-positive values are dropped in favor of the default rule.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Default.MaxRequests <= 0 || config.Default.Window <= 0 {
		config.Default = LimitRule{MaxRequests: 100, Window: time.Minute}
	}

	rules := make(map[string]LimitRule, len(config.Rules))
	for op, rule := range config.Rules {
		if rule.MaxRequests > 0 && rule.Window > 0 {
			rules[op] = rule
		}
	}
	config.Rules = rules

	return &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Key returns the bucket key for a subject, operation and optional sub-keys.
func Key(subject, operation string, subKey ...string) string {
	parts := append([]string{subject, operation}, subKey...)
	return strings.Join(parts, ":")
}

// Check reports what would happen to a request without consuming quota.
func (rl *RateLimiter) Check(subject, operation string, subKey ...string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rule := rl.ruleFor(operation)
	stamps := rl.peek(Key(subject, operation, subKey...), rule)

	return rl.decision(len(stamps) < rule.MaxRequests, rule, stamps)
}

// Consume records a request against the window if the rule allows it and
// returns the post-append decision. On denial the returned error wraps
// ErrRateLimited and the decision carries a positive RetryAfter.
func (rl *RateLimiter) Consume(subject, operation string, subKey ...string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := Key(subject, operation, subKey...)
	rule := rl.ruleFor(operation)
	stamps := rl.peek(key, rule)

	if len(stamps) >= rule.MaxRequests {
		if rl.config.OnLimit != nil {
			rl.config.OnLimit(key)
		}
		return rl.decision(false, rule, stamps), fmt.Errorf("%s: %w", key, ErrRateLimited)
	}

	w, ok := rl.windows[key]
	if !ok {
		w = &window{span: rule.Window}
		rl.windows[key] = w
	}
	w.stamps = append(w.stamps, rl.now())

	return rl.decision(true, rule, w.stamps), nil
}

// SetRule installs or replaces the rule for an operation. Both values must
// be positive, same as the built-in defaults.
func (rl *RateLimiter) SetRule(operation string, rule LimitRule) error {
	if rule.MaxRequests <= 0 {
		return fmt.Errorf("rate limiter %q: max requests must be a positive integer", rl.config.Name)
	}
	if rule.Window <= 0 {
		return fmt.Errorf("rate limiter %q: window must be a positive duration", rl.config.Name)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.config.Rules[operation] = rule
	return nil
}

// Sweep drops buckets whose requests have all left the window and reports
// how many were removed. Run periodically so abandoned subjects do not
// accumulate.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, w := range rl.windows {
		w.trim(now.Add(-w.span))
		if len(w.stamps) == 0 {
			delete(rl.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// ruleFor resolves the limit rule for an operation. Callers must hold the
// mutex.
func (rl *RateLimiter) ruleFor(operation string) LimitRule {
	if rule, ok := rl.config.Rules[operation]; ok {
		return rule
	}
	return rl.config.Default
}

// peek trims the bucket for key and returns its surviving timestamps,
// dropping the bucket when nothing survives. Callers must hold the mutex.
func (rl *RateLimiter) peek(key string, rule LimitRule) []time.Time {
	w, ok := rl.windows[key]
	if !ok {
		return nil
	}

	w.span = rule.Window
	w.trim(rl.now().Add(-rule.Window))
	if len(w.stamps) == 0 {
		delete(rl.windows, key)
		return nil
	}
	return w.stamps
}

// decision builds the caller-facing outcome from the surviving timestamps.
// Callers must hold the mutex.
func (rl *RateLimiter) decision(allowed bool, rule LimitRule, stamps []time.Time) Decision {
	now := rl.now()

	d := Decision{
		Allowed:   allowed,
		Limit:     rule.MaxRequests,
		Remaining: rule.MaxRequests - len(stamps),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}

	if len(stamps) == 0 {
		d.ResetTime = now.Add(rule.Window)
	} else {
		d.ResetTime = stamps[0].Add(rule.Window)
	}

	if !allowed {
		d.RetryAfter = d.ResetTime.Sub(now)
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d
}
