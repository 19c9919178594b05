// Package events provides the in-process event hub the resilience layer
// publishes its telemetry on: circuit transitions, performance
// degradation, connectivity flips, recovery outcomes, and user-facing
// notifications.
//
// Subscribers register a glob pattern matched against the event type.
// Delivery happens on the hub's own goroutine, and subscriber channels
// are buffered; a consumer that falls behind loses events rather than
// blocking publishers.
//
// # Usage
//
//	hub := events.NewHub()
//	go hub.Run()
//
//	sub := hub.Subscribe("circuit.*")
//	defer sub.Cancel()
//	for ev := range sub.Events() {
//		fmt.Println(ev.Type, ev.Service)
//	}
package events
