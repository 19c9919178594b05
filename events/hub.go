package events

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/backstop/logger"
)

// subscriberBuffer is the per-subscription channel depth. A subscriber
// that falls further behind than this loses events rather than stalling
// the dispatch loop.
const subscriberBuffer = 64

// Publisher is the sending side of the hub. Components that emit events
// depend on this interface so tests can capture events without a hub.
type Publisher interface {
	Publish(ev Event)
}

// Subscription receives events whose type matches its glob pattern.
type Subscription struct {
	id      uint64
	pattern string
	events  chan Event
	hub     *Hub
}

// Events returns the channel on which matching events are delivered.
// The channel is closed when the subscription is canceled or the hub
// shuts down.
func (s *Subscription) Events() <-chan Event { return s.events }

// Pattern returns the glob pattern this subscription matches on.
func (s *Subscription) Pattern() string { return s.pattern }

// Cancel removes the subscription from the hub and closes its channel.
// Safe to call multiple times.
func (s *Subscription) Cancel() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.done:
	}
}

// send delivers an event without blocking. Returns false when the
// subscriber's buffer is full and the event was dropped.
func (s *Subscription) send(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		logger.Warn("[EVENT_HUB] Subscriber buffer full, dropping event", map[string]interface{}{
			"pattern": s.pattern,
			"type":    ev.Type,
		})
		return false
	}
}

// Hub routes events from publishers to pattern-matched subscribers.
// All delivery happens on the hub's own goroutine, so publishers never
// block on slow consumers.
type Hub struct {
	subs       map[uint64]*Subscription // subscription ID -> Subscription
	register   chan *Subscription       // Channel for adding subscriptions
	unregister chan *Subscription       // Channel for removing subscriptions
	publish    chan Event               // Channel for incoming events
	done       chan struct{}            // Signals the hub to stop
	stopped    bool                     // Whether the hub has been stopped
	nextID     uint64                   // Subscription ID counter
	mu         sync.RWMutex             // Protects subs map for reads during matching
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subs:       make(map[uint64]*Subscription),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		publish:    make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main dispatch loop.
// It blocks until Stop is called. This should be run in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subs[sub.id] = sub
			h.mu.Unlock()
			logger.Debug("[EVENT_HUB] Subscriber added", map[string]interface{}{
				"pattern":           sub.pattern,
				"total_subscribers": h.SubscriberCount(),
			})

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[sub.id]; ok {
				delete(h.subs, sub.id)
				close(sub.events)
			}
			h.mu.Unlock()
			logger.Debug("[EVENT_HUB] Subscriber removed", map[string]interface{}{
				"pattern":           sub.pattern,
				"total_subscribers": h.SubscriberCount(),
			})

		case ev := <-h.publish:
			h.dispatch(ev)
		}
	}
}

// Stop signals the hub to shut down. It closes all subscriber channels
// and causes Run to return. Safe to call multiple times.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

// Subscribe registers interest in events whose type matches pattern.
// Pattern uses glob-style matching (e.g. "circuit.*" or
// "connectivity.changed"). The hub must be running; subscribing to a
// stopped hub returns a subscription whose channel is already closed.
func (h *Hub) Subscribe(pattern string) *Subscription {
	sub := &Subscription{
		id:      atomic.AddUint64(&h.nextID, 1),
		pattern: pattern,
		events:  make(chan Event, subscriberBuffer),
		hub:     h,
	}
	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.events)
	}
	return sub
}

// Publish hands an event to the hub for delivery. It stamps Event.At
// when the caller left it zero. Events published to a stopped hub are
// dropped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case h.publish <- ev:
	case <-h.done:
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// dispatch sends an event to every matching subscriber.
// This is called from the hub's main goroutine.
func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		matched, err := filepath.Match(sub.pattern, ev.Type)
		if err != nil {
			logger.Error("[EVENT_HUB] Pattern match error", map[string]interface{}{
				"pattern": sub.pattern,
				"error":   err.Error(),
			})
			continue
		}
		if matched {
			sub.send(ev)
		}
	}
}

// closeAll disconnects all subscribers during shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		close(sub.events)
		delete(h.subs, id)
	}
	logger.Debug("[EVENT_HUB] All subscribers closed during shutdown")
}

// Ensure Hub implements Publisher.
var _ Publisher = (*Hub)(nil)
