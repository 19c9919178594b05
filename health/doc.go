// Package health tracks the wellbeing of remote services and of the
// network itself.
//
// Monitor owns one circuit breaker and one rolling performance window per
// service, fed by the success/failure reports of every call. Connectivity
// watches online/offline transitions with a periodic reachability probe
// and owns the process-wide offline-mode flag.
package health
