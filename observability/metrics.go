package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the instruments of the resilience layer. Create it once
// after InitMeter; with no meter provider installed the instruments are
// no-ops, so recording is always safe.
type Metrics struct {
	operations        metric.Int64Counter
	operationDuration metric.Float64Histogram
	retries           metric.Int64Counter
	breakerChanges    metric.Int64Counter
	rateLimitDenials  metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	queueDepth        metric.Int64UpDownCounter
	recoveries        metric.Int64Counter
}

// NewMetrics creates the instrument bundle on the named meter.
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}

	var err error
	if m.operations, err = meter.Int64Counter("backstop.operations",
		metric.WithDescription("Operations executed, by service, operation, and outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating operations counter: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("backstop.operation.duration",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	if m.retries, err = meter.Int64Counter("backstop.retries",
		metric.WithDescription("Retry attempts beyond the first, by service and operation"),
	); err != nil {
		return nil, fmt.Errorf("creating retries counter: %w", err)
	}
	if m.breakerChanges, err = meter.Int64Counter("backstop.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions, by service and target state"),
	); err != nil {
		return nil, fmt.Errorf("creating breaker counter: %w", err)
	}
	if m.rateLimitDenials, err = meter.Int64Counter("backstop.ratelimit.denials",
		metric.WithDescription("Requests denied by the rate limiter, by bucket key"),
	); err != nil {
		return nil, fmt.Errorf("creating rate limit counter: %w", err)
	}
	if m.cacheHits, err = meter.Int64Counter("backstop.cache.hits",
		metric.WithDescription("Cache reads served from a fresh entry"),
	); err != nil {
		return nil, fmt.Errorf("creating cache hit counter: %w", err)
	}
	if m.cacheMisses, err = meter.Int64Counter("backstop.cache.misses",
		metric.WithDescription("Cache reads that fell through to a fetch"),
	); err != nil {
		return nil, fmt.Errorf("creating cache miss counter: %w", err)
	}
	if m.queueDepth, err = meter.Int64UpDownCounter("backstop.queue.depth",
		metric.WithDescription("Requests waiting for a concurrency slot"),
	); err != nil {
		return nil, fmt.Errorf("creating queue depth counter: %w", err)
	}
	if m.recoveries, err = meter.Int64Counter("backstop.recoveries",
		metric.WithDescription("Recovery outcomes, by strategy and result"),
	); err != nil {
		return nil, fmt.Errorf("creating recoveries counter: %w", err)
	}

	return m, nil
}

// RecordOperation counts one executed operation and its duration.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.operations.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, float64(d.Milliseconds()), attrs)
}

// RecordRetry counts one retry attempt.
func (m *Metrics) RecordRetry(ctx context.Context, service, operation string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordBreakerTransition counts one circuit state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, service, from, to string) {
	if m == nil {
		return
	}
	m.breakerChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordRateLimitDenial counts one denied request.
func (m *Metrics) RecordRateLimitDenial(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.rateLimitDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// RecordCacheHit counts one cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// RecordCacheMiss counts one cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// QueueEnqueued moves the queue depth gauge up.
func (m *Metrics) QueueEnqueued(ctx context.Context, queue string) {
	if m == nil {
		return
	}
	m.queueDepth.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
}

// QueueDequeued moves the queue depth gauge back down.
func (m *Metrics) QueueDequeued(ctx context.Context, queue string) {
	if m == nil {
		return
	}
	m.queueDepth.Add(ctx, -1, metric.WithAttributes(attribute.String("queue", queue)))
}

// RecordRecovery counts one recovery outcome.
func (m *Metrics) RecordRecovery(ctx context.Context, strategy string, recovered bool) {
	if m == nil {
		return
	}
	m.recoveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("recovered", recovered),
	))
}
