// Package recovery turns failed operations into the best available
// outcome. The Orchestrator records each failure, updates the service
// monitor, and walks an ordered registry of strategies: retry, credential
// refresh, cache fallback, offline execution, and graceful degradation.
// When every strategy is exhausted it produces a user-facing error
// description and, after repeated failures of the same service, raises a
// debounced notification.
package recovery
