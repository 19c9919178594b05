// Package component defines the lifecycle contract for the background
// pieces of the resilience layer.
//
// Components are things that run alongside request traffic: the event
// hub, the connectivity prober, the sweep scheduler, the telemetry
// exporters. They are registered once, started together, stopped in
// reverse order, and report health on demand.
//
// # Interfaces
//
//   - Component: Core lifecycle interface (Start/Stop/Health)
//   - Describable: Optional one-line self-description for diagnostics
package component
