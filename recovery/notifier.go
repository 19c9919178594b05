package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/backstop/errors"
)

// Notifier is the external sink for user-facing error notifications. The
// presentation layer implements it; this package never renders UI.
type Notifier interface {
	Notify(ctx context.Context, service string, ue *errors.UserError)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, service string, ue *errors.UserError)

// Notify calls the function.
func (f NotifierFunc) Notify(ctx context.Context, service string, ue *errors.UserError) {
	f(ctx, service, ue)
}

// notifyGate decides when repeated failures of a service warrant a
// user-visible notification: at least threshold failures inside the
// window, and at most one notification per window thereafter.
type notifyGate struct {
	threshold int
	window    time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
	notified map[string]time.Time
}

func newNotifyGate(threshold int, window time.Duration) *notifyGate {
	if threshold <= 0 {
		threshold = 3
	}
	if window <= 0 {
		window = time.Minute
	}
	return &notifyGate{
		threshold: threshold,
		window:    window,
		failures:  make(map[string][]time.Time),
		notified:  make(map[string]time.Time),
	}
}

// observe records a failure of a service at now and reports whether a
// notification should fire.
func (g *notifyGate) observe(service string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.window)
	kept := g.failures[service][:0]
	for _, ts := range g.failures[service] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	g.failures[service] = kept

	if len(kept) < g.threshold {
		return false
	}
	if last, ok := g.notified[service]; ok && now.Sub(last) < g.window {
		return false
	}
	g.notified[service] = now
	return true
}
