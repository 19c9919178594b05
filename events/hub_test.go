package events

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHub_NewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}
}

func TestHub_SubscribeReceivesMatchingEvent(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("circuit.opened")
	time.Sleep(10 * time.Millisecond) // Wait for registration

	hub.Publish(Event{Type: TypeCircuitOpened, Service: "payments"})
	time.Sleep(10 * time.Millisecond)

	select {
	case ev := <-sub.Events():
		if ev.Type != TypeCircuitOpened {
			t.Errorf("expected type %q, got %q", TypeCircuitOpened, ev.Type)
		}
		if ev.Service != "payments" {
			t.Errorf("expected service 'payments', got %q", ev.Service)
		}
	default:
		t.Error("expected event to be delivered")
	}
}

func TestHub_WildcardPattern(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("circuit.*")
	time.Sleep(10 * time.Millisecond)

	hub.Publish(Event{Type: TypeCircuitOpened, Service: "reports"})
	hub.Publish(Event{Type: TypeCircuitClosed, Service: "reports"})
	hub.Publish(Event{Type: TypeConnectivityChanged})
	time.Sleep(10 * time.Millisecond)

	var got []string
	for {
		select {
		case ev := <-sub.Events():
			got = append(got, ev.Type)
			continue
		default:
		}
		break
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events for circuit.*, got %d (%v)", len(got), got)
	}
	if got[0] != TypeCircuitOpened || got[1] != TypeCircuitClosed {
		t.Errorf("expected [circuit.opened circuit.closed], got %v", got)
	}
}

func TestHub_NonMatchingEventSkipped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("connectivity.changed")
	time.Sleep(10 * time.Millisecond)

	hub.Publish(Event{Type: TypeCircuitOpened, Service: "payments"})
	time.Sleep(10 * time.Millisecond)

	select {
	case ev := <-sub.Events():
		t.Errorf("expected no delivery, got %q", ev.Type)
	default:
		// Expected
	}
}

func TestHub_PublishStampsTimestamp(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("*")
	time.Sleep(10 * time.Millisecond)

	before := time.Now()
	hub.Publish(Event{Type: TypeRecoveryApplied, Service: "reports"})
	time.Sleep(10 * time.Millisecond)

	select {
	case ev := <-sub.Events():
		if ev.At.IsZero() {
			t.Error("expected At to be stamped")
		}
		if ev.At.Before(before) {
			t.Errorf("expected At >= publish time, got %v", ev.At)
		}
	default:
		t.Fatal("expected event to be delivered")
	}
}

func TestHub_PublishKeepsCallerTimestamp(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("*")
	time.Sleep(10 * time.Millisecond)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(Event{Type: TypeNotificationRaised, At: at})
	time.Sleep(10 * time.Millisecond)

	select {
	case ev := <-sub.Events():
		if !ev.At.Equal(at) {
			t.Errorf("expected At %v to be preserved, got %v", at, ev.At)
		}
	default:
		t.Fatal("expected event to be delivered")
	}
}

func TestHub_Cancel(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("circuit.*")
	time.Sleep(10 * time.Millisecond)

	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	sub.Cancel()
	time.Sleep(10 * time.Millisecond)

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", hub.SubscriberCount())
	}

	// Channel should be closed
	if _, open := <-sub.Events(); open {
		t.Error("expected channel to be closed after cancel")
	}

	// Double cancel should be safe
	sub.Cancel()
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("*")
	time.Sleep(10 * time.Millisecond)

	// Overflow the subscription buffer without draining it.
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(Event{Type: TypeCircuitOpened})
	}
	time.Sleep(50 * time.Millisecond)

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}

	if received != subscriberBuffer {
		t.Errorf("expected %d buffered events, got %d", subscriberBuffer, received)
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	circuits := hub.Subscribe("circuit.*")
	everything := hub.Subscribe("*")
	connectivity := hub.Subscribe("connectivity.changed")
	time.Sleep(10 * time.Millisecond)

	hub.Publish(Event{Type: TypeCircuitHalfOpen, Service: "payments"})
	time.Sleep(10 * time.Millisecond)

	select {
	case ev := <-circuits.Events():
		if ev.Type != TypeCircuitHalfOpen {
			t.Errorf("circuits: expected circuit.half_open, got %q", ev.Type)
		}
	default:
		t.Error("circuits subscriber should have received event")
	}

	select {
	case <-everything.Events():
	default:
		t.Error("wildcard subscriber should have received event")
	}

	select {
	case <-connectivity.Events():
		t.Error("connectivity subscriber should NOT have received circuit event")
	default:
		// Expected
	}
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sub := hub.Subscribe("*")
	time.Sleep(10 * time.Millisecond)

	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	// Subscriber channel should be closed
	if _, open := <-sub.Events(); open {
		t.Error("expected channel to be closed after hub stop")
	}

	// Double stop should be safe
	hub.Stop()

	// Publish after stop should not block
	hub.Publish(Event{Type: TypeCircuitOpened})
}

func TestHub_SubscribeAfterStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	sub := hub.Subscribe("*")
	if _, open := <-sub.Events(); open {
		t.Error("expected closed channel when subscribing to a stopped hub")
	}
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe("recovery.applied")
	time.Sleep(10 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish(Event{Type: TypeRecoveryApplied, Service: "reports"})
		}()
	}
	wg.Wait()
	time.Sleep(20 * time.Millisecond)

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}

	if received != 10 {
		t.Errorf("expected 10 events, got %d", received)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := NewComponent()

	if comp.Name() != "events" {
		t.Errorf("expected name 'events', got %q", comp.Name())
	}

	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	health := comp.Health(ctx)
	if health.Name != "events" {
		t.Errorf("expected health name 'events', got %q", health.Name)
	}
	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", health.Status)
	}
	if !strings.Contains(health.Message, "0 subscribers") {
		t.Errorf("expected '0 subscribers' in message, got %q", health.Message)
	}

	if comp.Hub() == nil {
		t.Error("expected non-nil Hub")
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent()

	desc := comp.Describe()
	if desc.Name != "Event Hub" {
		t.Errorf("expected name 'Event Hub', got %q", desc.Name)
	}
	if desc.Type != "events" {
		t.Errorf("expected type 'events', got %q", desc.Type)
	}
}

func TestEventTypeConstants(t *testing.T) {
	want := map[string]string{
		TypeCircuitOpened:       "circuit.opened",
		TypeCircuitHalfOpen:     "circuit.half_open",
		TypeCircuitClosed:       "circuit.closed",
		TypePerformanceDegraded: "performance.degraded",
		TypeConnectivityChanged: "connectivity.changed",
		TypeRecoveryApplied:     "recovery.applied",
		TypeNotificationRaised:  "notification.raised",
	}
	for got, expected := range want {
		if got != expected {
			t.Errorf("expected %q, got %q", expected, got)
		}
	}
}
