package backstop

import (
	"github.com/kbukum/backstop/cache"
	"github.com/kbukum/backstop/creds"
	"github.com/kbukum/backstop/health"
	"github.com/kbukum/backstop/logger"
	"github.com/kbukum/backstop/recovery"
)

// Option customizes a Client at construction time.
type Option func(*options)

type options struct {
	log               *logger.Logger
	notifier          recovery.Notifier
	refresher         creds.Refresher
	probe             health.Probe
	middlewares       []Middleware
	strategies        []recovery.Strategy
	capabilities      map[string]recovery.Capability
	degradedOps       map[string]func() any
	serviceStrategies map[string]cache.Strategy
}

func newOptions(opts []Option) *options {
	o := &options{
		capabilities:      make(map[string]recovery.Capability),
		degradedOps:       make(map[string]func() any),
		serviceStrategies: make(map[string]cache.Strategy),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the client logger. Defaults to a component logger named
// "backstop".
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithNotifier sets the sink for user-facing error notifications.
func WithNotifier(n recovery.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithRefresher wires credential refresh, enabling the auth-refresh
// recovery strategy.
func WithRefresher(r creds.Refresher) Option {
	return func(o *options) { o.refresher = r }
}

// WithProbe wires the backend reachability probe driving the connectivity
// monitor.
func WithProbe(p health.Probe) Option {
	return func(o *options) { o.probe = p }
}

// WithMiddleware appends middlewares outside the built-in logging,
// metrics, and tracing layers.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithStrategy registers an additional recovery strategy. The registry
// orders strategies by priority, so built-in and custom strategies
// interleave freely.
func WithStrategy(s recovery.Strategy) Option {
	return func(o *options) { o.strategies = append(o.strategies, s) }
}

// WithCapability declares a service's offline-capable operations and the
// local handler that serves them.
func WithCapability(service string, cap recovery.Capability) Option {
	return func(o *options) { o.capabilities[service] = cap }
}

// WithDegradedOp allows an operation to degrade gracefully, serving
// producer's value when every other recovery fails. A nil producer serves
// nil.
func WithDegradedOp(operation string, producer func() any) Option {
	return func(o *options) { o.degradedOps[operation] = producer }
}

// WithServiceStrategy sets the default cache strategy for a service's
// requests, applied when a request does not pick one explicitly.
func WithServiceStrategy(service string, s cache.Strategy) Option {
	return func(o *options) { o.serviceStrategies[service] = s }
}
