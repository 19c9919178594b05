package backstop

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/backstop/cache"
	"github.com/kbukum/backstop/component"
	"github.com/kbukum/backstop/config"
	"github.com/kbukum/backstop/creds"
	apperrors "github.com/kbukum/backstop/errors"
	"github.com/kbukum/backstop/events"
	"github.com/kbukum/backstop/health"
	"github.com/kbukum/backstop/janitor"
	"github.com/kbukum/backstop/logger"
	"github.com/kbukum/backstop/observability"
	"github.com/kbukum/backstop/recovery"
	"github.com/kbukum/backstop/resilience"
	"github.com/kbukum/backstop/version"
)

// Client is the resilience layer's entry point: one logical instance per
// process, explicitly constructed and dependency-injected into callers.
// It owns the breaker-backed service monitor, rate limiter, request
// queue, retry manager, cache, recovery orchestrator, connectivity
// monitor, event hub, and janitor.
type Client struct {
	cfg *config.Config
	log *logger.Logger

	hubComp  *events.Component
	monitor  *health.Monitor
	limiter  *resilience.RateLimiter
	queue    *resilience.RequestQueue
	retry    *resilience.RetryManager
	cache    *cache.Cache
	conn     *health.Connectivity
	creds    *creds.Store
	caps     *recovery.CapabilityTable
	degraded *recovery.GracefulDegradation
	orch     *recovery.Orchestrator
	janitor  *janitor.Janitor
	metrics  *observability.Metrics
	registry *component.Registry

	serviceStrategies map[string]cache.Strategy
	handler           Handler
}

// New builds a Client from the configuration. A nil cfg uses defaults.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backstop: invalid configuration: %w", err)
	}

	o := newOptions(opts)

	log := o.log
	if log == nil {
		log = logger.WithComponent("backstop")
	}

	metrics, err := observability.NewMetrics("github.com/kbukum/backstop")
	if err != nil {
		return nil, fmt.Errorf("backstop: creating metrics: %w", err)
	}

	c := &Client{
		cfg:               cfg,
		log:               log,
		metrics:           metrics,
		serviceStrategies: o.serviceStrategies,
	}

	c.hubComp = events.NewComponent()
	hub := c.hubComp.Hub()

	monitorCfg := health.DefaultMonitorConfig()
	monitorCfg.Breaker = resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
		},
	}
	monitorCfg.Publisher = hub
	c.monitor = health.NewMonitor(monitorCfg)

	c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:    "backstop",
		Rules:   cfg.RateLimit.Rules,
		Default: cfg.RateLimit.Default,
		OnLimit: func(key string) {
			metrics.RecordRateLimitDenial(context.Background(), key)
		},
	})

	c.queue = resilience.NewRequestQueue(resilience.QueueConfig{
		Name:          "requests",
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		OnEnqueue: func(name, id string, priority int) {
			metrics.QueueEnqueued(context.Background(), name)
		},
		OnDequeue: func(name, id string, priority int) {
			metrics.QueueDequeued(context.Background(), name)
		},
	})

	c.retry = resilience.NewRetryManager(resilience.RetryConfig{
		Name:       "backstop",
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
		OnAttempt: func(service, operation string, attempt int, d time.Duration, err error) {
			if err != nil {
				c.monitor.RecordFailure(service, err, d)
			} else {
				c.monitor.RecordSuccess(service, d)
			}
			if attempt > 1 {
				metrics.RecordRetry(context.Background(), service, operation)
			}
		},
	})

	c.cache = cache.New(cache.Config{
		Name:       "backstop",
		MaxEntries: cfg.Cache.MaxEntries,
		DefaultTTL: cfg.Cache.DefaultTTL,
	})

	c.conn = health.NewConnectivity(health.ConnectivityConfig{
		Interval:       cfg.Connectivity.Interval,
		ProbeTimeout:   cfg.Connectivity.ProbeTimeout,
		ConfirmSamples: cfg.Connectivity.ConfirmSamples,
		Probe:          o.probe,
		Publisher:      hub,
	})

	if o.refresher != nil {
		c.creds = creds.NewStore(o.refresher)
	}

	c.caps = recovery.NewCapabilityTable()
	for service, cap := range o.capabilities {
		c.caps.Register(service, cap)
	}

	c.degraded = recovery.NewGracefulDegradation()
	for operation, producer := range o.degradedOps {
		c.degraded.Register(operation, producer)
	}

	c.orch = recovery.New(recovery.Config{
		HistorySize:      cfg.Recovery.HistorySize,
		HistoryRetention: cfg.Recovery.HistoryRetention,
		NotifyThreshold:  cfg.Recovery.NotifyThreshold,
		NotifyWindow:     cfg.Recovery.NotifyWindow,
		Notifier:         o.notifier,
		Publisher:        hub,
		Monitor:          c.monitor,
	})
	c.orch.Register(recovery.NewNetworkRetry(c.retry))
	if c.creds != nil {
		c.orch.Register(recovery.NewAuthRefresh(c.creds, cfg.Recovery.AuthService))
	}
	c.orch.Register(recovery.NewCacheFallback(c.cache))
	c.orch.Register(recovery.NewOfflineMode(c.caps, c.conn))
	c.orch.Register(c.degraded)
	for _, s := range o.strategies {
		c.orch.Register(s)
	}

	c.janitor = janitor.New()
	if err := c.janitor.Add("rate-limiter-sweep",
		"@every "+cfg.RateLimit.SweepInterval.String(),
		c.limiter.Sweep); err != nil {
		return nil, err
	}
	if err := c.janitor.Add("cache-sweep",
		"@every "+cfg.Cache.SweepInterval.String(),
		c.cache.Sweep); err != nil {
		return nil, err
	}

	obsComp := observability.NewComponent(observability.Settings{
		ServiceName:    cfg.Name,
		ServiceVersion: version.Short(),
		Endpoint:       cfg.Observability.Endpoint,
		Insecure:       cfg.Observability.Insecure,
		Interval:       cfg.Observability.Interval,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
		TracingEnabled: cfg.Observability.TracingEnabled,
	})

	c.registry = component.NewRegistry()
	for _, comp := range []component.Component{obsComp, c.hubComp, c.conn, c.janitor} {
		if err := c.registry.Register(comp); err != nil {
			return nil, fmt.Errorf("backstop: registering %s: %w", comp.Name(), err)
		}
	}

	middlewares := []Middleware{WithLogging(log)}
	if cfg.Observability.TracingEnabled {
		middlewares = append(middlewares, WithTracing("github.com/kbukum/backstop"))
	}
	middlewares = append(middlewares, WithMetrics(metrics))
	middlewares = append(middlewares, o.middlewares...)
	c.handler = Chain(middlewares...)(c.dispatch)

	log.Info("backstop client ready", logger.Fields(
		"version", version.Short(),
		"max_concurrent", cfg.Queue.MaxConcurrent,
		"cache_entries", cfg.Cache.MaxEntries,
	))
	return c, nil
}

// Start launches the background components: event hub, connectivity
// prober, janitor.
func (c *Client) Start(ctx context.Context) error {
	return c.registry.StartAll(ctx)
}

// Stop shuts the background components down in reverse order.
func (c *Client) Stop(ctx context.Context) error {
	return c.registry.StopAll(ctx)
}

// Health reports the health of every background component.
func (c *Client) Health(ctx context.Context) []component.Health {
	return c.registry.HealthAll(ctx)
}

// Report aggregates component and per-service health into one document,
// suitable for a health endpoint or a diagnostics dump.
func (c *Client) Report(ctx context.Context) *observability.ServiceHealth {
	report := observability.NewServiceHealth(c.cfg.Name, version.Short())

	for _, h := range c.registry.HealthAll(ctx) {
		report.AddComponent(observability.Health{
			Name:    h.Name,
			Status:  componentStatus(h.Status),
			Message: h.Message,
		})
	}

	for _, service := range c.monitor.Services() {
		status := c.monitor.Status(service)
		report.AddComponent(observability.Health{
			Name:   "service:" + service,
			Status: serviceState(status.State),
			Details: map[string]string{
				"errors":       fmt.Sprint(status.ErrorCount),
				"success_rate": fmt.Sprintf("%.2f", status.Performance.SuccessRate),
			},
		})
	}

	return report
}

func componentStatus(s component.HealthStatus) observability.HealthStatus {
	switch s {
	case component.StatusDegraded:
		return observability.HealthStatusDegraded
	case component.StatusUnhealthy:
		return observability.HealthStatusDown
	default:
		return observability.HealthStatusUp
	}
}

func serviceState(s health.ServiceState) observability.HealthStatus {
	switch s {
	case health.StateError:
		return observability.HealthStatusDown
	case health.StateDegraded:
		return observability.HealthStatusDegraded
	default:
		return observability.HealthStatusUp
	}
}

// Monitor exposes per-service health state.
func (c *Client) Monitor() *health.Monitor { return c.monitor }

// Cache exposes the shared cache, e.g. for invalidation after writes.
func (c *Client) Cache() *cache.Cache { return c.cache }

// Connectivity exposes the connectivity monitor and offline-mode flag.
func (c *Client) Connectivity() *health.Connectivity { return c.conn }

// Events exposes the event hub for subscriptions.
func (c *Client) Events() *events.Hub { return c.hubComp.Hub() }

// Recovery exposes the orchestrator, e.g. to register strategies later.
func (c *Client) Recovery() *recovery.Orchestrator { return c.orch }

// Credentials exposes the credential store; nil without a refresher.
func (c *Client) Credentials() *creds.Store { return c.creds }

// Do runs an operation for a service under the client's policies and
// returns what happened: the operation's result, a recovered or degraded
// substitute, or a structured error. It never panics.
func (c *Client) Do(ctx context.Context, req Request, op Operation[any]) (result any, err error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("operation panicked", logger.Fields(
				logger.FieldService, req.Service,
				logger.FieldOperation, req.Operation,
				"panic", fmt.Sprint(r),
			))
			result = nil
			err = apperrors.Internal(fmt.Errorf("operation panicked: %v", r))
		}
	}()

	return c.handler(ctx, req.normalize(), op)
}

// Execute runs a typed operation through the client.
func Execute[T any](ctx context.Context, c *Client, req Request, op Operation[T]) (T, error) {
	var zero T

	v, err := c.Do(ctx, req, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, apperrors.Internal(fmt.Errorf("result is %T, not %T", v, zero))
	}
	return t, nil
}

// dispatch is the innermost handler: cache strategy around the shaped
// network call, recovery on failure.
func (c *Client) dispatch(ctx context.Context, req Request, op Operation[any]) (any, error) {
	strategy := c.strategyFor(req)

	if req.CacheKey == "" || strategy == cache.NetworkOnly {
		return c.callAndRecover(ctx, req, op)
	}

	if strategy == cache.CacheFirst || strategy == cache.StaleWhileRevalidate {
		if c.cache.Has(req.CacheKey) {
			c.metrics.RecordCacheHit(ctx, req.CacheKey)
		} else {
			c.metrics.RecordCacheMiss(ctx, req.CacheKey)
		}
	}

	return cache.Resolve[any](ctx, c.cache, req.CacheKey, strategy, req.CacheTTL,
		func(fetchCtx context.Context) (any, error) {
			return c.callAndRecover(fetchCtx, req, op)
		})
}

// strategyFor resolves the cache strategy: an explicit per-request choice
// wins, then the service default, then cache-first.
func (c *Client) strategyFor(req Request) cache.Strategy {
	if req.CacheStrategy != cache.CacheFirst {
		return req.CacheStrategy
	}
	if s, ok := c.serviceStrategies[req.Service]; ok {
		return s
	}
	return cache.CacheFirst
}

// callAndRecover runs the shaped call and, on failure, hands the error to
// the recovery orchestrator. Context cancellation is returned as-is;
// recovering a call the caller abandoned helps nobody.
func (c *Client) callAndRecover(ctx context.Context, req Request, op Operation[any]) (any, error) {
	result, attempted, err := c.call(ctx, req, op)
	if err == nil {
		return result, nil
	}
	if stderrors.Is(err, context.Canceled) || (stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil) {
		return nil, err
	}

	ec := recovery.NewContext(req.Service, req.Operation, err)
	ec.CacheKey = req.CacheKey
	ec.Op = op
	ec.Reported = true // the retry loop already told the monitor, or no call was made
	if attempted {
		ec.MarkRetried()
	}
	for k, v := range req.Metadata {
		ec.WithMeta(k, v)
	}

	outcome := c.orch.Handle(ctx, ec)
	c.metrics.RecordRecovery(ctx, outcome.StrategyID, outcome.Recovered)

	if outcome.Recovered {
		return outcome.Result, nil
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.ExternalServiceError(req.Service, err)
	}
	if outcome.UserError != nil {
		appErr = appErr.WithDetail("user_error", outcome.UserError)
	}
	return nil, appErr
}

// call applies the policy gates in order: offline mode, circuit breaker,
// rate limiter, then the queued and retried operation itself.
func (c *Client) call(ctx context.Context, req Request, op Operation[any]) (any, bool, error) {
	if c.conn.Offline() {
		return nil, false, apperrors.Offline(req.Operation)
	}

	if !c.monitor.CanAttempt(req.Service) {
		snap := c.monitor.BreakerState(req.Service)
		return nil, false, apperrors.CircuitOpen(req.Service, time.Until(snap.NextAttemptTime))
	}

	var subKeys []string
	if req.SubKey != "" {
		subKeys = append(subKeys, req.SubKey)
	}
	if decision, err := c.limiter.Consume(req.Subject, req.Operation, subKeys...); err != nil {
		return nil, false, apperrors.RateLimited(decision.Limit, decision.RetryAfter)
	}

	result, err := resilience.ExecuteWithResult(c.queue, ctx, req.Priority, func() (any, error) {
		return resilience.WithRetry(ctx, c.retry, req.Service, req.Operation, op)
	})
	return result, true, err
}
