package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents a lifecycle-managed background component, such as
// the event hub, the connectivity prober, or the sweep scheduler.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information for diagnostics output.
// Components that implement Describable return this to self-report
// what they are and how they're configured.
type Description struct {
	// Name is the human-readable display name (e.g., "Event Hub",
	// "Connectivity Monitor"). If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "events", "health", "scheduler".
	Type string
	// Details is a human-readable one-liner.
	// Examples: "interval=30s confirm=2", "tasks=2"
	Details string
}

// Describable is optionally implemented by Components to provide a
// one-line self-description for startup logs and diagnostics.
type Describable interface {
	Describe() Description
}
