package backstop

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/backstop/logger"
	"github.com/kbukum/backstop/observability"
)

// Handler executes one shaped request.
type Handler func(ctx context.Context, req Request, op Operation[any]) (any, error)

// Middleware wraps a Handler with cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain composes middlewares into one. The first middleware is outermost:
// Chain(a, b, c)(h) is equivalent to a(b(c(h))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// WithLogging logs every call with its outcome and duration.
func WithLogging(log *logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request, op Operation[any]) (any, error) {
			start := time.Now()
			result, err := next(ctx, req, op)
			fields := logger.Fields(
				logger.FieldService, req.Service,
				logger.FieldOperation, req.Operation,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			if err != nil {
				fields[logger.FieldError] = err.Error()
				log.Warn("request failed", fields)
			} else {
				log.Debug("request completed", fields)
			}
			return result, err
		}
	}
}

// WithMetrics counts every call and records its duration.
func WithMetrics(m *observability.Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request, op Operation[any]) (any, error) {
			start := time.Now()
			result, err := next(ctx, req, op)
			m.RecordOperation(ctx, req.Service, req.Operation, time.Since(start), err)
			return result, err
		}
	}
}

// WithTracing opens a span around every call.
func WithTracing(tracerName string) Middleware {
	tracer := otel.Tracer(tracerName)
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request, op Operation[any]) (any, error) {
			ctx, span := tracer.Start(ctx, req.Service+"."+req.Operation,
				trace.WithAttributes(
					attribute.String(observability.AttrService, req.Service),
					attribute.String(observability.AttrOperation, req.Operation),
					attribute.Int(observability.AttrPriority, req.Priority),
				))
			defer span.End()

			result, err := next(ctx, req, op)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}
