package events

import "time"

// Event types published by the resilience layer.
// Subscribers match on these with glob patterns, e.g. "circuit.*".
const (
	// TypeCircuitOpened is published when a circuit breaker trips open.
	TypeCircuitOpened = "circuit.opened"

	// TypeCircuitHalfOpen is published when an open breaker's cooldown
	// elapses and it begins probing.
	TypeCircuitHalfOpen = "circuit.half_open"

	// TypeCircuitClosed is published when a breaker recovers.
	TypeCircuitClosed = "circuit.closed"

	// TypePerformanceDegraded is published when a service's rolling
	// success rate or latency crosses its configured floor/ceiling.
	TypePerformanceDegraded = "performance.degraded"

	// TypeConnectivityChanged is published when the process-wide
	// online/offline flag flips.
	TypeConnectivityChanged = "connectivity.changed"

	// TypeRecoveryApplied is published when a recovery strategy
	// produces an outcome for a failed operation.
	TypeRecoveryApplied = "recovery.applied"

	// TypeNotificationRaised is published when repeated failures cross
	// the notification threshold and a user-facing message is emitted.
	TypeNotificationRaised = "notification.raised"
)

// Event is a single observation emitted by the resilience layer.
type Event struct {
	// Type identifies what happened (one of the Type* constants).
	Type string `json:"type"`

	// Service names the upstream service the event concerns, when there
	// is one. Connectivity events leave it empty.
	Service string `json:"service,omitempty"`

	// At is when the event occurred. Publish stamps it if left zero.
	At time.Time `json:"at"`

	// Fields carries event-specific detail (states, counts, reasons).
	Fields map[string]any `json:"fields,omitempty"`
}
