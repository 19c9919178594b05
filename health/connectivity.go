package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/backstop/component"
	"github.com/kbukum/backstop/events"
	"github.com/kbukum/backstop/logger"
)

// Probe is a cheap reachability check against the backend. A nil error
// means reachable.
type Probe func(ctx context.Context) error

// ConnectivityConfig configures the connectivity monitor.
type ConnectivityConfig struct {
	// Interval is how often the probe runs.
	Interval time.Duration
	// ProbeTimeout bounds each probe call.
	ProbeTimeout time.Duration
	// ConfirmSamples is how many consecutive observations of a new state
	// are required before the flip. Debounces flapping links.
	ConfirmSamples int
	// Probe is the reachability check. Without one, only external
	// SetOnline signals drive the state.
	Probe Probe
	// Publisher receives connectivity.changed events. Optional.
	Publisher events.Publisher
}

// DefaultConnectivityConfig returns sensible defaults.
func DefaultConnectivityConfig() ConnectivityConfig {
	return ConnectivityConfig{
		Interval:       30 * time.Second,
		ProbeTimeout:   5 * time.Second,
		ConfirmSamples: 2,
	}
}

// Connectivity watches whether the backend is reachable and owns the
// process-wide offline-mode flag. OS-level signals arrive through
// SetOnline, the periodic probe catches false positives, and both feed
// the same debounce: a state change is only accepted once it has been
// observed ConfirmSamples times in a row.
//
// The recovery layer flips offline mode directly through EnterOffline and
// ExitOffline when an offline-capable code path takes over.
type Connectivity struct {
	config ConnectivityConfig
	log    *logger.Logger

	mu           sync.Mutex
	online       bool
	offlineMode  bool
	pendingState bool
	pendingCount int

	stop chan struct{}
	wg   sync.WaitGroup
}

// ensure Connectivity is lifecycle-managed.
var _ component.Component = (*Connectivity)(nil)

// NewConnectivity creates a connectivity monitor. The process starts
// online.
func NewConnectivity(config ConnectivityConfig) *Connectivity {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.ConfirmSamples <= 0 {
		config.ConfirmSamples = 2
	}

	return &Connectivity{
		config: config,
		log:    logger.WithComponent("health.connectivity"),
		online: true,
	}
}

// IsOnline reports whether the backend is currently considered reachable.
func (c *Connectivity) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Offline reports the process-wide offline-mode flag. It is set when the
// connection is lost or when the recovery layer switches to offline
// execution.
func (c *Connectivity) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offlineMode
}

// SetOnline feeds an external connectivity signal into the debounce. The
// state flips only after ConfirmSamples consecutive observations.
func (c *Connectivity) SetOnline(online bool) {
	c.observe(online)
}

// EnterOffline turns offline mode on immediately, bypassing the debounce.
// Used by the offline-mode recovery strategy once a local code path has
// taken over.
func (c *Connectivity) EnterOffline(reason string) {
	c.mu.Lock()
	already := c.offlineMode
	c.offlineMode = true
	c.mu.Unlock()

	if already {
		return
	}
	c.log.Warn("offline mode engaged", logger.Fields("reason", reason))
	c.publish(false, reason)
}

// ExitOffline turns offline mode off. The next confirmed offline
// observation can turn it back on.
func (c *Connectivity) ExitOffline() {
	c.mu.Lock()
	already := !c.offlineMode
	c.offlineMode = false
	c.mu.Unlock()

	if already {
		return
	}
	c.log.Info("offline mode cleared")
	c.publish(true, "offline mode cleared")
}

// Name returns the component name.
func (c *Connectivity) Name() string { return "connectivity" }

// Start launches the periodic prober. Without a configured probe it is a
// no-op and only external signals drive the state.
func (c *Connectivity) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return nil
	}
	c.stop = make(chan struct{})

	if c.config.Probe == nil {
		return nil
	}

	c.wg.Add(1)
	go c.run(c.stop)
	return nil
}

// Stop halts the prober.
func (c *Connectivity) Stop(_ context.Context) error {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	c.wg.Wait()
	return nil
}

// Health reports the current connectivity as component health.
func (c *Connectivity) Health(_ context.Context) component.Health {
	c.mu.Lock()
	online, offlineMode := c.online, c.offlineMode
	c.mu.Unlock()

	status := component.StatusHealthy
	msg := "online"
	switch {
	case !online:
		status = component.StatusUnhealthy
		msg = "offline"
	case offlineMode:
		status = component.StatusDegraded
		msg = "online, offline mode engaged"
	}
	return component.Health{Name: c.Name(), Status: status, Message: msg}
}

// Describe returns summary info for the startup display.
func (c *Connectivity) Describe() component.Description {
	return component.Description{
		Name:    "Connectivity Monitor",
		Type:    "health",
		Details: fmt.Sprintf("interval=%s confirm=%d", c.config.Interval, c.config.ConfirmSamples),
	}
}

// run probes on the configured interval until stopped.
func (c *Connectivity) run(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.probeOnce()
		}
	}
}

// probeOnce runs one reachability check and feeds the result into the
// debounce.
func (c *Connectivity) probeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ProbeTimeout)
	defer cancel()

	err := c.config.Probe(ctx)
	c.observe(err == nil)
}

// observe applies the debounce: an observation matching the current state
// resets the pending counter, a differing one must repeat ConfirmSamples
// times before the state flips.
func (c *Connectivity) observe(online bool) {
	c.mu.Lock()

	if online == c.online {
		c.pendingCount = 0
		c.mu.Unlock()
		return
	}

	if c.pendingCount == 0 || c.pendingState != online {
		c.pendingState = online
		c.pendingCount = 0
	}
	c.pendingCount++
	if c.pendingCount < c.config.ConfirmSamples {
		c.mu.Unlock()
		return
	}

	c.online = online
	c.offlineMode = !online
	c.pendingCount = 0
	c.mu.Unlock()

	if online {
		c.log.Info("connectivity restored")
	} else {
		c.log.Warn("connectivity lost")
	}
	c.publish(online, "probe")
}

// publish emits a connectivity.changed event when a publisher is wired.
func (c *Connectivity) publish(online bool, reason string) {
	if c.config.Publisher == nil {
		return
	}
	c.config.Publisher.Publish(events.Event{
		Type:   events.TypeConnectivityChanged,
		Fields: map[string]any{"online": online, "reason": reason},
	})
}
