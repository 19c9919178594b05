package recovery

import (
	"context"
	"sort"
	"sync"
)

// Strategy is one way out of a failure. Lower priorities are tried first.
type Strategy interface {
	// ID names the strategy for logs and events.
	ID() string
	// Priority orders strategies; lower runs first.
	Priority() int
	// Fallback reports whether a success from this strategy serves
	// substitute data instead of the real response.
	Fallback() bool
	// CanRecover reports whether the strategy applies to this failure.
	CanRecover(ctx context.Context, ec *Context) bool
	// Recover attempts the recovery and returns its result.
	Recover(ctx context.Context, ec *Context) (any, error)
}

// registry holds strategies sorted ascending by priority. Registration
// order breaks ties.
type registry struct {
	mu         sync.RWMutex
	strategies []Strategy
}

// add inserts a strategy and re-sorts.
func (r *registry) add(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strategies = append(r.strategies, s)
	sort.SliceStable(r.strategies, func(i, j int) bool {
		return r.strategies[i].Priority() < r.strategies[j].Priority()
	})
}

// ordered returns a snapshot of the strategies in execution order.
func (r *registry) ordered() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}
