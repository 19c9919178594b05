package backstop

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/backstop/cache"
	"github.com/kbukum/backstop/config"
	apperrors "github.com/kbukum/backstop/errors"
	"github.com/kbukum/backstop/recovery"
	"github.com/kbukum/backstop/resilience"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Retry.MaxRetries = 1
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.Cooldown = time.Minute
	return cfg
}

func appCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestNewWithDefaults(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	if c.Monitor() == nil || c.Cache() == nil || c.Connectivity() == nil ||
		c.Events() == nil || c.Recovery() == nil {
		t.Error("expected all subsystems to be wired")
	}
	if c.Credentials() != nil {
		t.Error("expected no credential store without a refresher")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.BaseDelay = time.Minute
	cfg.Retry.MaxDelay = time.Second
	if _, err := New(cfg); err == nil {
		t.Error("expected error for max_delay below base_delay")
	}
}

func TestDoSuccess(t *testing.T) {
	c, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := c.Do(context.Background(), Request{Service: "users", Operation: "list"},
		func(ctx context.Context) (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected \"ok\", got %v", result)
	}

	services := c.Monitor().Services()
	if len(services) != 1 || services[0] != "users" {
		t.Errorf("expected monitor to track users, got %v", services)
	}
}

func TestDoRequiresService(t *testing.T) {
	c, _ := New(testConfig())

	_, err := c.Do(context.Background(), Request{},
		func(ctx context.Context) (any, error) { return nil, nil })
	if code := appCode(t, err); code != apperrors.ErrCodeMissingField {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeMissingField, code)
	}
}

func TestDoRejectsNegativePriority(t *testing.T) {
	c, _ := New(testConfig())

	_, err := c.Do(context.Background(), Request{Service: "users", Priority: -1},
		func(ctx context.Context) (any, error) { return nil, nil })
	if code := appCode(t, err); code != apperrors.ErrCodeInvalidInput {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeInvalidInput, code)
	}
}

func TestDoRecoversFromPanic(t *testing.T) {
	c, _ := New(testConfig())

	_, err := c.Do(context.Background(), Request{Service: "users"},
		func(ctx context.Context) (any, error) { panic("boom") })
	if code := appCode(t, err); code != apperrors.ErrCodeInternal {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeInternal, code)
	}
}

func TestDoSurfacesUnrecoverableError(t *testing.T) {
	c, _ := New(testConfig())

	_, err := c.Do(context.Background(), Request{Service: "users", Operation: "delete"},
		func(ctx context.Context) (any, error) { return nil, apperrors.Forbidden("nope") })

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected *AppError, got %T", err)
	}
	if appErr.Code != apperrors.ErrCodeForbidden {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeForbidden, appErr.Code)
	}
	if appErr.Details["user_error"] == nil {
		t.Error("expected a user_error detail on the surfaced error")
	}
}

func TestDoFailsFastWhenBreakerOpen(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 2
	c, _ := New(cfg)

	for i := 0; i < 2; i++ {
		c.Do(context.Background(), Request{Service: "payments", Operation: "charge"},
			func(ctx context.Context) (any, error) { return nil, apperrors.Forbidden("denied") })
	}

	called := false
	_, err := c.Do(context.Background(), Request{Service: "payments", Operation: "charge"},
		func(ctx context.Context) (any, error) {
			called = true
			return "charged", nil
		})
	if called {
		t.Error("operation ran despite an open breaker")
	}
	if code := appCode(t, err); code != apperrors.ErrCodeCircuitOpen {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeCircuitOpen, code)
	}
}

func TestDoDoesNotRecoverCancellation(t *testing.T) {
	c, _ := New(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Do(ctx, Request{Service: "users", Operation: "list"},
		func(ctx context.Context) (any, error) {
			cancel()
			return nil, context.Canceled
		})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDoServesStaleOnNetworkFailure(t *testing.T) {
	c, _ := New(testConfig())
	c.Cache().Set("users:list", []string{"alice", "bob"}, time.Minute)

	result, err := c.Do(context.Background(), Request{
		Service:       "users",
		Operation:     "list",
		CacheKey:      "users:list",
		CacheStrategy: cache.NetworkFirst,
	}, func(ctx context.Context) (any, error) {
		return nil, apperrors.ConnectionFailed("users")
	})
	if err != nil {
		t.Fatalf("expected cached fallback, got error: %v", err)
	}
	names, ok := result.([]string)
	if !ok || len(names) != 2 {
		t.Errorf("expected the cached value, got %v", result)
	}
}

func TestDoRateLimits(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Default = resilience.LimitRule{MaxRequests: 2, Window: time.Minute}
	cfg.RateLimit.Rules = map[string]resilience.LimitRule{}
	c, _ := New(cfg)

	op := func(ctx context.Context) (any, error) { return "ok", nil }
	req := Request{Service: "users", Operation: "list", Subject: "alice"}

	for i := 0; i < 2; i++ {
		if _, err := c.Do(context.Background(), req, op); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}

	_, err := c.Do(context.Background(), req, op)
	if code := appCode(t, err); code != apperrors.ErrCodeRateLimited {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeRateLimited, code)
	}
}

func TestDoFailsFastOffline(t *testing.T) {
	c, _ := New(testConfig())
	c.Connectivity().EnterOffline("maintenance")

	called := false
	_, err := c.Do(context.Background(), Request{Service: "users", Operation: "list"},
		func(ctx context.Context) (any, error) {
			called = true
			return nil, nil
		})
	if called {
		t.Error("operation ran in offline mode")
	}
	if code := appCode(t, err); code != apperrors.ErrCodeOffline {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeOffline, code)
	}
}

func TestDoDegradesAllowedOperation(t *testing.T) {
	c, _ := New(testConfig(), WithDegradedOp("feed", func() any { return []string{} }))

	result, err := c.Do(context.Background(), Request{Service: "social", Operation: "feed"},
		func(ctx context.Context) (any, error) {
			return nil, apperrors.Network(stderrors.New("connection reset"))
		})
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}
	if names, ok := result.([]string); !ok || len(names) != 0 {
		t.Errorf("expected the empty degraded value, got %v", result)
	}
}

func TestDoServesOfflineCapability(t *testing.T) {
	c, _ := New(testConfig(), WithCapability("files", recovery.Capability{
		Operations: []string{"list"},
		Handler: func(ctx context.Context) (any, error) {
			return []string{"cached.txt"}, nil
		},
	}))

	result, err := c.Do(context.Background(), Request{Service: "files", Operation: "list"},
		func(ctx context.Context) (any, error) {
			return nil, apperrors.ConnectionFailed("files")
		})
	if err != nil {
		t.Fatalf("expected offline capability result, got error: %v", err)
	}
	if names, ok := result.([]string); !ok || len(names) != 1 {
		t.Errorf("expected the handler's value, got %v", result)
	}
	if !c.Connectivity().Offline() {
		t.Error("expected offline mode after serving an offline capability")
	}
}

func TestExecuteTyped(t *testing.T) {
	c, _ := New(testConfig())

	n, err := Execute(context.Background(), c, Request{Service: "users", Operation: "count"},
		func(ctx context.Context) (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42, got %d", n)
	}
}

func TestExecuteTypeMismatchOnRecoveredValue(t *testing.T) {
	c, _ := New(testConfig(), WithDegradedOp("count", func() any { return "not-an-int" }))

	_, err := Execute(context.Background(), c, Request{Service: "users", Operation: "count"},
		func(ctx context.Context) (int, error) {
			return 0, apperrors.ConnectionFailed("users")
		})
	if code := appCode(t, err); code != apperrors.ErrCodeInternal {
		t.Errorf("expected %s, got %s", apperrors.ErrCodeInternal, code)
	}
}

func TestStartStop(t *testing.T) {
	c, _ := New(testConfig())

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	for _, h := range c.Health(ctx) {
		if h.Name == "" {
			t.Error("expected every component health to carry a name")
		}
	}
}
