package health

import "time"

// ServiceState classifies a monitored service.
type ServiceState int

const (
	// StateConnected means calls are flowing normally.
	StateConnected ServiceState = iota
	// StateDegraded means calls still go through but the rolling window
	// crossed the success-rate floor or latency ceiling, or the circuit
	// is probing in half-open.
	StateDegraded
	// StateError means the circuit is open and calls fail fast.
	StateError
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PerfSnapshot summarizes the rolling performance window of a service.
type PerfSnapshot struct {
	// SuccessRate is the fraction of windowed calls that succeeded.
	SuccessRate float64
	// AvgLatency is the mean duration across all windowed calls,
	// failures included.
	AvgLatency time.Duration
	// P95Latency is the 95th percentile duration.
	P95Latency time.Duration
	// SampleCount is how many calls the window currently holds.
	SampleCount int
	// Degraded reports whether the window crossed the configured
	// success-rate floor or latency ceiling with enough samples.
	Degraded bool
}

// ServiceStatus is a point-in-time view of one monitored service.
type ServiceStatus struct {
	Service           string
	State             ServiceState
	ErrorCount        int
	ConsecutiveErrors int
	LastHealthCheck   time.Time
	Performance       PerfSnapshot
}
