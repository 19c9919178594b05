package health

import (
	"sort"
	"sync"
	"time"

	"github.com/kbukum/backstop/events"
	"github.com/kbukum/backstop/logger"
	"github.com/kbukum/backstop/resilience"
)

// MonitorConfig configures the service monitor.
type MonitorConfig struct {
	// Breaker is the per-service breaker template. Its Name is replaced
	// with the service name; its OnStateChange is chained after the
	// monitor's own bookkeeping.
	Breaker resilience.BreakerConfig
	// WindowSize is how many recent calls the performance window holds.
	WindowSize int
	// MinSamples is the window population below which degradation is
	// never declared.
	MinSamples int
	// SuccessRateFloor declares degradation when the windowed success
	// rate drops below it.
	SuccessRateFloor float64
	// LatencyCeiling declares degradation when the windowed average
	// latency exceeds it.
	LatencyCeiling time.Duration
	// Publisher receives circuit and performance events. Optional.
	Publisher events.Publisher
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Breaker:          resilience.DefaultBreakerConfig(""),
		WindowSize:       50,
		MinSamples:       10,
		SuccessRateFloor: 0.90,
		LatencyCeiling:   5 * time.Second,
	}
}

// serviceEntry is the monitor's per-service state: breaker, rolling
// performance window, and status counters.
type serviceEntry struct {
	breaker           *resilience.CircuitBreaker
	window            *perfWindow
	errorCount        int
	consecutiveErrors int
	lastCheck         time.Time
	degraded          bool
}

// Monitor tracks health per service: a circuit breaker deciding whether
// calls may be attempted, and a rolling performance window deciding whether
// the service counts as degraded. Per-service state is created lazily on
// first reference and lives for the process lifetime.
//
// The recorders never return errors; callers ask CanAttempt and decide what
// to do with a false answer.
type Monitor struct {
	config MonitorConfig
	log    *logger.Logger

	mu       sync.Mutex
	services map[string]*serviceEntry

	now func() time.Time // test hook
}

// NewMonitor creates a service monitor.
func NewMonitor(config MonitorConfig) *Monitor {
	if config.WindowSize <= 0 {
		config.WindowSize = 50
	}
	if config.MinSamples <= 0 {
		config.MinSamples = 10
	}
	if config.SuccessRateFloor <= 0 || config.SuccessRateFloor > 1 {
		config.SuccessRateFloor = 0.90
	}
	if config.LatencyCeiling <= 0 {
		config.LatencyCeiling = 5 * time.Second
	}

	return &Monitor{
		config:   config,
		log:      logger.WithComponent("health.monitor"),
		services: make(map[string]*serviceEntry),
		now:      time.Now,
	}
}

// RecordSuccess records a successful call against a service.
func (m *Monitor) RecordSuccess(service string, latency time.Duration) {
	m.mu.Lock()
	entry := m.entryLocked(service)
	entry.consecutiveErrors = 0
	entry.lastCheck = m.now()
	entry.window.record(true, latency)
	m.checkDegradationLocked(service, entry)
	breaker := entry.breaker
	m.mu.Unlock()

	breaker.RecordSuccess()
}

// RecordFailure records a failed call against a service. The reason feeds
// logs and events only; classification happens in the recovery layer.
func (m *Monitor) RecordFailure(service string, reason error, latency time.Duration) {
	m.mu.Lock()
	entry := m.entryLocked(service)
	entry.errorCount++
	entry.consecutiveErrors++
	entry.lastCheck = m.now()
	entry.window.record(false, latency)
	m.checkDegradationLocked(service, entry)
	breaker := entry.breaker
	m.mu.Unlock()

	fields := logger.Fields(logger.FieldService, service)
	if reason != nil {
		fields[logger.FieldError] = reason.Error()
	}
	m.log.Debug("failure recorded", fields)

	breaker.RecordFailure()
}

// CanAttempt reports whether calls to a service may proceed right now.
func (m *Monitor) CanAttempt(service string) bool {
	return m.breaker(service).CanAttempt()
}

// BreakerState returns the breaker snapshot for a service.
func (m *Monitor) BreakerState(service string) resilience.BreakerSnapshot {
	return m.breaker(service).Snapshot()
}

// Status returns a copy of the current status of a service.
func (m *Monitor) Status(service string) ServiceStatus {
	m.mu.Lock()
	entry := m.entryLocked(service)
	status := ServiceStatus{
		Service:           service,
		ErrorCount:        entry.errorCount,
		ConsecutiveErrors: entry.consecutiveErrors,
		LastHealthCheck:   entry.lastCheck,
		Performance:       entry.window.snapshot(),
	}
	status.Performance.Degraded = entry.degraded
	breaker := entry.breaker
	m.mu.Unlock()

	switch breaker.State() {
	case resilience.StateOpen:
		status.State = StateError
	case resilience.StateHalfOpen:
		status.State = StateDegraded
	default:
		if status.Performance.Degraded {
			status.State = StateDegraded
		} else {
			status.State = StateConnected
		}
	}
	return status
}

// Services returns the names of every service seen so far, sorted.
func (m *Monitor) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all recorded state for a service, including its breaker.
// Intended for tests and operator intervention only.
func (m *Monitor) Reset(service string) {
	m.mu.Lock()
	entry, ok := m.services[service]
	if ok {
		delete(m.services, service)
	}
	m.mu.Unlock()

	if ok {
		entry.breaker.Reset()
	}
}

// breaker returns the breaker for a service, creating the entry if needed.
func (m *Monitor) breaker(service string) *resilience.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entryLocked(service).breaker
}

// entryLocked returns the per-service state, creating it on first
// reference. Callers must hold the mutex.
func (m *Monitor) entryLocked(service string) *serviceEntry {
	if entry, ok := m.services[service]; ok {
		return entry
	}

	cfg := m.config.Breaker
	cfg.Name = service
	chained := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		m.publishTransition(name, from, to)
		if chained != nil {
			chained(name, from, to)
		}
	}

	entry := &serviceEntry{
		breaker: resilience.NewCircuitBreaker(cfg),
		window:  newPerfWindow(m.config.WindowSize),
	}
	m.services[service] = entry
	return entry
}

// checkDegradationLocked re-evaluates the performance window against the
// thresholds and publishes on the edge into degradation. Callers must hold
// the mutex.
func (m *Monitor) checkDegradationLocked(service string, entry *serviceEntry) {
	snap := entry.window.snapshot()
	degraded := snap.SampleCount >= m.config.MinSamples &&
		(snap.SuccessRate < m.config.SuccessRateFloor || snap.AvgLatency > m.config.LatencyCeiling)

	if degraded == entry.degraded {
		return
	}
	entry.degraded = degraded

	if degraded {
		m.log.Warn("service performance degraded", logger.Fields(
			logger.FieldService, service,
			"success_rate", snap.SuccessRate,
			"avg_latency_ms", snap.AvgLatency.Milliseconds(),
		))
		if m.config.Publisher != nil {
			m.config.Publisher.Publish(events.Event{
				Type:    events.TypePerformanceDegraded,
				Service: service,
				Fields: map[string]any{
					"success_rate":   snap.SuccessRate,
					"avg_latency_ms": snap.AvgLatency.Milliseconds(),
					"samples":        snap.SampleCount,
				},
			})
		}
	}
}

// publishTransition turns breaker state changes into events.
func (m *Monitor) publishTransition(service string, from, to resilience.State) {
	m.log.Info("circuit state changed", logger.Fields(
		logger.FieldService, service,
		"from", from.String(),
		"to", to.String(),
	))

	if m.config.Publisher == nil {
		return
	}

	var eventType string
	switch to {
	case resilience.StateOpen:
		eventType = events.TypeCircuitOpened
	case resilience.StateHalfOpen:
		eventType = events.TypeCircuitHalfOpen
	case resilience.StateClosed:
		eventType = events.TypeCircuitClosed
	default:
		return
	}

	m.config.Publisher.Publish(events.Event{
		Type:    eventType,
		Service: service,
		Fields:  map[string]any{"from": from.String(), "to": to.String()},
	})
}
