package janitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/backstop/component"
)

func TestJanitor_RunsScheduledSweep(t *testing.T) {
	j := New()
	var runs atomic.Int32

	if err := j.Add("counter", "@every 50ms", func() int {
		runs.Add(1)
		return 1
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = j.Stop(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("expected the sweep to run at least once")
	}
}

func TestJanitor_RejectsBadSpec(t *testing.T) {
	j := New()
	if err := j.Add("broken", "not a spec", func() int { return 0 }); err == nil {
		t.Error("expected an error for a malformed schedule")
	}
	if got := len(j.Tasks()); got != 0 {
		t.Errorf("expected no task recorded after a failed Add, got %d", got)
	}
}

func TestJanitor_TasksListed(t *testing.T) {
	j := New()
	_ = j.Add("limiter-sweep", "@every 5m", func() int { return 0 })
	_ = j.Add("cache-sweep", "@every 1m", func() int { return 0 })

	tasks := j.Tasks()
	if len(tasks) != 2 || tasks[0] != "limiter-sweep" || tasks[1] != "cache-sweep" {
		t.Errorf("expected both tasks listed in order, got %v", tasks)
	}
}

func TestJanitor_HealthReflectsState(t *testing.T) {
	j := New()
	_ = j.Add("sweep", "@every 1m", func() int { return 0 })

	if h := j.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded before start, got %s", h.Status)
	}

	_ = j.Start(context.Background())
	if h := j.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %s", h.Status)
	}

	_ = j.Stop(context.Background())
	if h := j.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded after stop, got %s", h.Status)
	}
}

func TestJanitor_StopWithoutStart(t *testing.T) {
	j := New()
	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("stop without start: %v", err)
	}
}

func TestJanitor_StartIdempotent(t *testing.T) {
	j := New()
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	_ = j.Stop(context.Background())
}
