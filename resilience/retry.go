package resilience

import (
	"context"
	"math"
	"time"

	apperrors "github.com/kbukum/backstop/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Name identifies this retry manager for metrics/logging.
	Name string
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// RetryIf decides whether an error is worth another attempt. Defaults
	// to the error classification, which never retries authentication or
	// validation failures.
	RetryIf func(error) bool
	// OnAttempt is called after every attempt with its outcome and duration.
	OnAttempt func(service, operation string, attempt int, d time.Duration, err error)
	// OnRetry is called before each wait between attempts.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:       name,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// RetryManager retries transient failures with capped exponential backoff.
// Errors that cannot self-resolve, such as invalid credentials or rejected
// input, are surfaced immediately rather than burning attempts.
type RetryManager struct {
	config RetryConfig
}

// NewRetryManager creates a retry manager.
func NewRetryManager(config RetryConfig) *RetryManager {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = apperrors.IsRetryable
	}
	return &RetryManager{config: config}
}

// MaxRetries returns the configured retry budget.
func (m *RetryManager) MaxRetries() int {
	return m.config.MaxRetries
}

// WithRetry runs fn under the manager's policy: at most MaxRetries+1
// attempts with a wait of min(BaseDelay*2^n, MaxDelay) after the n-th
// failure, counting from zero. No jitter is applied. Waits respect ctx, and
// on exhaustion the last error is propagated as-is.
func WithRetry[T any](ctx context.Context, m *RetryManager, service, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cfg := m.config

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		start := time.Now()
		result, err := fn(ctx)
		elapsed := time.Since(start)

		if cfg.OnAttempt != nil {
			cfg.OnAttempt(service, operation, attempt+1, elapsed, err)
		}

		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxRetries {
			break
		}

		delay := backoffDelay(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// Do runs an operation with no return value under the retry policy.
func (m *RetryManager) Do(ctx context.Context, service, operation string, fn func(context.Context) error) error {
	_, err := WithRetry(ctx, m, service, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// backoffDelay computes min(BaseDelay*2^n, MaxDelay) for the n-th failure.
func backoffDelay(n int, cfg RetryConfig) time.Duration {
	d := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(n)))
	if d <= 0 || d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}
