// Package observability provides OpenTelemetry tracing and metrics for
// the resilience layer, plus an aggregated health report.
//
// Providers are usually managed by the lifecycle Component, driven by
// the observability config section. For standalone use:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-app"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "users.list")
//	defer span.End()
//
// Metrics instruments live in Metrics and record operations, retries,
// breaker transitions, rate limit denials, cache traffic, queue depth,
// and recovery outcomes:
//
//	m, err := observability.NewMetrics("my-app")
//	m.RecordOperation(ctx, "users", "list", elapsed, err)
//
// Health:
//
//	report := observability.NewServiceHealth("my-app", "1.0.0")
//	report.AddComponent(observability.Health{Name: "events", Status: observability.HealthStatusUp})
package observability
