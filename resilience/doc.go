// Package resilience provides the building blocks for fault-tolerant
// clients.
//
// This package includes:
//   - CircuitBreaker: per-service state machine that fails fast while a
//     service is down
//   - RetryManager: capped exponential backoff that skips non-retryable
//     errors
//   - RequestQueue: priority dispatch under a small concurrency budget
//   - RateLimiter: sliding window limits keyed by subject and operation
//
// The pieces are independent and compose in layers:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultBreakerConfig("api"))
//	rm := resilience.NewRetryManager(resilience.DefaultRetryConfig("api"))
//	q := resilience.NewRequestQueue(resilience.DefaultQueueConfig("api"))
//
//	result, err := resilience.ExecuteWithResult(q, ctx, priority, func() (Report, error) {
//	    if !cb.CanAttempt() {
//	        return Report{}, resilience.ErrCircuitOpen
//	    }
//	    return resilience.WithRetry(ctx, rm, "api", "fetch_report", fetchReport)
//	})
package resilience
