package resilience

import (
	"errors"
	"sync"
	"time"
)

// Common circuit breaker errors.
var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows all requests through.
	StateClosed State = iota
	// StateOpen rejects all requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows a trial request through.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Name identifies the guarded service for callbacks and logging.
	Name string
	// FailureThreshold is the failure count at which the circuit opens.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before allowing a trial.
	Cooldown time.Duration
	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultBreakerConfig returns sensible defaults for a service.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
	}
}

// BreakerSnapshot is a point-in-time view of a circuit breaker.
type BreakerSnapshot struct {
	Service         string
	State           State
	FailureCount    int
	LastFailureTime time.Time
	NextAttemptTime time.Time
}

// CircuitBreaker tracks failures for a single service and fails fast while
// the service is considered down. It follows the classic closed -> open ->
// half-open -> closed cycle and never returns errors from its recorders:
// callers ask CanAttempt and decide what to do with a false answer.
//
// In the closed state a success decrements the failure count by one instead
// of resetting it, so a service that fails every other call still drifts
// toward the threshold.
type CircuitBreaker struct {
	config BreakerConfig

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	probeTimer      *time.Timer

	now func() time.Time // test hook
}

// NewCircuitBreaker creates a circuit breaker for one service.
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 60 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// RecordSuccess records a successful call.
// Closed: the failure count decays by one, floored at zero. Half-open: the
// trial succeeded and the circuit closes with a clean count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		if cb.failureCount > 0 {
			cb.failureCount--
		}
	case StateHalfOpen:
		cb.failureCount = 0
		cb.transition(StateClosed)
	}
}

// RecordFailure records a failed call.
// Closed: the failure count grows and the circuit opens at the threshold.
// Half-open: the trial failed and the circuit reopens with a fresh cooldown.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()

	switch cb.currentState() {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.trip()
		}
	case StateHalfOpen:
		cb.failureCount++
		cb.trip()
	}
}

// CanAttempt reports whether a request may proceed right now. Once the
// cooldown of an open circuit has elapsed the circuit moves to half-open
// and the request is allowed as the trial.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != StateOpen
}

// State returns the current state, applying the cooldown transition if due.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Snapshot returns the current breaker state for health reporting.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerSnapshot{
		Service:         cb.config.Name,
		State:           cb.currentState(),
		FailureCount:    cb.failureCount,
		LastFailureTime: cb.lastFailureTime,
		NextAttemptTime: cb.nextAttemptTime,
	}
}

// Reset returns the breaker to closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.lastFailureTime = time.Time{}
	cb.nextAttemptTime = time.Time{}
	if cb.probeTimer != nil {
		cb.probeTimer.Stop()
		cb.probeTimer = nil
	}
	cb.transition(StateClosed)
}

// Execute runs fn if the circuit allows it and records the outcome.
// Returns ErrCircuitOpen without calling fn when the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.CanAttempt() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// trip opens the circuit, stamps the next attempt time, and schedules the
// half-open probe. Callers must hold the mutex.
func (cb *CircuitBreaker) trip() {
	cb.nextAttemptTime = cb.now().Add(cb.config.Cooldown)
	cb.transition(StateOpen)

	if cb.probeTimer != nil {
		cb.probeTimer.Stop()
	}
	cb.probeTimer = time.AfterFunc(cb.config.Cooldown, cb.probe)
}

// probe flips an expired open circuit to half-open from the timer. The lazy
// check in currentState applies the same rule, so timer and polling agree.
func (cb *CircuitBreaker) probe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && !cb.now().Before(cb.nextAttemptTime) {
		cb.transition(StateHalfOpen)
	}
}

// currentState applies the lazy open -> half-open transition when the
// cooldown has elapsed. Callers must hold the mutex.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && !cb.now().Before(cb.nextAttemptTime) {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

// transition moves to a new state and fires the callback. Callers must hold
// the mutex.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
