package recovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/backstop/cache"
	"github.com/kbukum/backstop/creds"
	"github.com/kbukum/backstop/errors"
	"github.com/kbukum/backstop/health"
	"github.com/kbukum/backstop/resilience"
)

// Default strategy priorities, ascending execution order.
const (
	PriorityNetworkRetry        = 10
	PriorityAuthRefresh         = 20
	PriorityCacheFallback       = 30
	PriorityOfflineMode         = 40
	PriorityGracefulDegradation = 50
)

// networkRetry re-runs the operation under the retry manager for
// transient failures. It stands down when the failure already went
// through a retry loop upstream.
type networkRetry struct {
	manager *resilience.RetryManager
}

// NewNetworkRetry creates the network-retry strategy.
func NewNetworkRetry(manager *resilience.RetryManager) Strategy {
	return &networkRetry{manager: manager}
}

func (s *networkRetry) ID() string     { return "network-retry" }
func (s *networkRetry) Priority() int  { return PriorityNetworkRetry }
func (s *networkRetry) Fallback() bool { return false }

func (s *networkRetry) CanRecover(_ context.Context, ec *Context) bool {
	if ec.Op == nil || s.manager == nil || ec.Retried() {
		return false
	}
	switch ec.Category() {
	case errors.CategoryNetwork, errors.CategoryUnknown:
		return true
	default:
		return false
	}
}

func (s *networkRetry) Recover(ctx context.Context, ec *Context) (any, error) {
	return resilience.WithRetry(ctx, s.manager, ec.Service, ec.Operation, ec.Op)
}

// authRefresh refreshes the credential once and re-runs the operation.
// It never applies to the auth service itself: refreshing against a
// broken auth backend cannot help.
type authRefresh struct {
	store       *creds.Store
	authService string
}

// NewAuthRefresh creates the auth-refresh strategy. authService names the
// service whose failures must not trigger a refresh.
func NewAuthRefresh(store *creds.Store, authService string) Strategy {
	if authService == "" {
		authService = "auth"
	}
	return &authRefresh{store: store, authService: authService}
}

func (s *authRefresh) ID() string     { return "auth-refresh" }
func (s *authRefresh) Priority() int  { return PriorityAuthRefresh }
func (s *authRefresh) Fallback() bool { return false }

func (s *authRefresh) CanRecover(_ context.Context, ec *Context) bool {
	return s.store != nil &&
		ec.Op != nil &&
		ec.Service != s.authService &&
		ec.Category() == errors.CategoryAuthentication
}

func (s *authRefresh) Recover(ctx context.Context, ec *Context) (any, error) {
	if _, err := s.store.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refreshing credentials: %w", err)
	}
	return ec.Op(ctx)
}

// cacheFallback serves the last good result from the cache.
type cacheFallback struct {
	cache *cache.Cache
}

// NewCacheFallback creates the cache-fallback strategy.
func NewCacheFallback(c *cache.Cache) Strategy {
	return &cacheFallback{cache: c}
}

func (s *cacheFallback) ID() string     { return "cache-fallback" }
func (s *cacheFallback) Priority() int  { return PriorityCacheFallback }
func (s *cacheFallback) Fallback() bool { return true }

func (s *cacheFallback) CanRecover(_ context.Context, ec *Context) bool {
	return s.cache != nil && ec.CacheKey != "" && s.cache.Has(ec.CacheKey)
}

func (s *cacheFallback) Recover(_ context.Context, ec *Context) (any, error) {
	v, ok := s.cache.Get(ec.CacheKey)
	if !ok {
		return nil, fmt.Errorf("cache entry %q expired during recovery", ec.CacheKey)
	}
	return v, nil
}

// offlineMode runs the service's declared offline handler and engages
// process-wide offline mode on success.
type offlineMode struct {
	table        *CapabilityTable
	connectivity *health.Connectivity
}

// NewOfflineMode creates the offline-mode strategy.
func NewOfflineMode(table *CapabilityTable, connectivity *health.Connectivity) Strategy {
	return &offlineMode{table: table, connectivity: connectivity}
}

func (s *offlineMode) ID() string     { return "offline-mode" }
func (s *offlineMode) Priority() int  { return PriorityOfflineMode }
func (s *offlineMode) Fallback() bool { return true }

func (s *offlineMode) CanRecover(_ context.Context, ec *Context) bool {
	if s.table == nil {
		return false
	}
	_, ok := s.table.Lookup(ec.Service, ec.Operation)
	return ok
}

func (s *offlineMode) Recover(ctx context.Context, ec *Context) (any, error) {
	cap, ok := s.table.Lookup(ec.Service, ec.Operation)
	if !ok {
		return nil, fmt.Errorf("no offline capability for %s.%s", ec.Service, ec.Operation)
	}

	result, err := cap.Handler(ctx)
	if err != nil {
		return nil, err
	}
	if s.connectivity != nil {
		s.connectivity.EnterOffline(fmt.Sprintf("%s.%s served offline", ec.Service, ec.Operation))
	}
	return result, nil
}

// GracefulDegradation returns an explicitly empty or limited result for
// non-critical read operations instead of failing outright. Only
// operations registered on the allow-list qualify.
type GracefulDegradation struct {
	mu        sync.RWMutex
	producers map[string]func() any
}

// NewGracefulDegradation creates the graceful-degradation strategy with
// an empty allow-list.
func NewGracefulDegradation() *GracefulDegradation {
	return &GracefulDegradation{producers: make(map[string]func() any)}
}

// Register allows an operation to degrade, serving producer's value when
// every earlier strategy failed. A nil producer serves nil.
func (s *GracefulDegradation) Register(operation string, producer func() any) {
	if producer == nil {
		producer = func() any { return nil }
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.producers[operation] = producer
}

func (s *GracefulDegradation) ID() string     { return "graceful-degradation" }
func (s *GracefulDegradation) Priority() int  { return PriorityGracefulDegradation }
func (s *GracefulDegradation) Fallback() bool { return true }

func (s *GracefulDegradation) CanRecover(_ context.Context, ec *Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.producers[ec.Operation]
	return ok
}

func (s *GracefulDegradation) Recover(_ context.Context, ec *Context) (any, error) {
	s.mu.RLock()
	producer, ok := s.producers[ec.Operation]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("operation %q is not allowed to degrade", ec.Operation)
	}
	return producer(), nil
}
