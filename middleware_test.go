package backstop

import (
	"context"
	"testing"

	apperrors "github.com/kbukum/backstop/errors"
	"github.com/kbukum/backstop/logger"
	"github.com/kbukum/backstop/observability"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, req Request, op Operation[any]) (any, error) {
				order = append(order, name+":before")
				result, err := next(ctx, req, op)
				order = append(order, name+":after")
				return result, err
			}
		}
	}

	h := Chain(tag("outer"), tag("inner"))(func(ctx context.Context, req Request, op Operation[any]) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})

	if _, err := h(context.Background(), Request{Service: "users"}, nil); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	want := []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestChainEmptyIsIdentity(t *testing.T) {
	called := false
	h := Chain()(func(ctx context.Context, req Request, op Operation[any]) (any, error) {
		called = true
		return "ok", nil
	})

	result, err := h(context.Background(), Request{}, nil)
	if err != nil || result != "ok" || !called {
		t.Errorf("expected pass-through, got result=%v err=%v called=%v", result, err, called)
	}
}

func TestMiddlewarePassesResultAndError(t *testing.T) {
	m, err := observability.NewMetrics("test")
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	h := Chain(
		WithLogging(logger.WithComponent("test")),
		WithMetrics(m),
		WithTracing("test"),
	)(func(ctx context.Context, req Request, op Operation[any]) (any, error) {
		return "ok", nil
	})

	result, err := h(context.Background(), Request{Service: "users", Operation: "list"}, nil)
	if err != nil || result != "ok" {
		t.Errorf("expected pass-through, got result=%v err=%v", result, err)
	}

	wantErr := apperrors.Timeout("list")
	h = Chain(WithLogging(logger.WithComponent("test")), WithMetrics(m))(
		func(ctx context.Context, req Request, op Operation[any]) (any, error) {
			return nil, wantErr
		})
	if _, err := h(context.Background(), Request{Service: "users", Operation: "list"}, nil); err != wantErr {
		t.Errorf("expected the handler's error, got %v", err)
	}
}
