package recovery

import (
	"context"
	"sync"
)

// Capability declares what a service can still do without the network:
// which operations are offline-capable and the local handler that serves
// them. How the local data behind the handler is stored is the caller's
// business.
type Capability struct {
	// Operations are the offline-capable operation names.
	Operations []string
	// Handler serves an offline-capable operation from local data.
	Handler func(ctx context.Context) (any, error)
}

// CapabilityTable maps services to their offline capabilities. Resolved
// once at startup so recovery never branches on service names at call
// time.
type CapabilityTable struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

// NewCapabilityTable creates an empty table.
func NewCapabilityTable() *CapabilityTable {
	return &CapabilityTable{caps: make(map[string]Capability)}
}

// Register declares the offline capability of a service, replacing any
// previous declaration.
func (t *CapabilityTable) Register(service string, cap Capability) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.caps[service] = cap
}

// Lookup returns the capability of a service if the given operation is in
// its offline-capable set.
func (t *CapabilityTable) Lookup(service, operation string) (Capability, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cap, ok := t.caps[service]
	if !ok || cap.Handler == nil {
		return Capability{}, false
	}
	for _, op := range cap.Operations {
		if op == operation {
			return cap, true
		}
	}
	return Capability{}, false
}
