package logger

import (
	"sync"
)

// registry holds per-component logger overrides. WithComponent consults
// it first, so registering a logger under a component name (for example
// one with a lower level) reroutes that component's output without
// touching the global logger.
var registry = &componentRegistry{
	overrides: make(map[string]*Logger),
}

type componentRegistry struct {
	mu        sync.RWMutex
	overrides map[string]*Logger
}

// Register installs an override logger for a component name.
func Register(component string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.overrides[component] = l
}

// Unregister removes a component override; the component falls back to
// the global logger.
func Unregister(component string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.overrides, component)
}

func lookupOverride(component string) (*Logger, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	l, ok := registry.overrides[component]
	return l, ok
}
