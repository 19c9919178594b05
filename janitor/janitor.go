// Package janitor runs the periodic housekeeping sweeps: trimming empty
// rate-limit buckets, dropping expired cache entries, whatever else a
// component wants scheduled. Sweeps only take the short-lived internal
// locks of the tables they clean, so they never block request handling.
package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kbukum/backstop/component"
	"github.com/kbukum/backstop/logger"
)

// SweepFunc performs one sweep and reports how many items it removed.
type SweepFunc func() int

// task is one scheduled sweep.
type task struct {
	name string
	spec string
}

// Janitor schedules named sweep tasks on cron specs ("@every 5m" and
// friends). It is a lifecycle-managed component: tasks may be added any
// time before Start.
type Janitor struct {
	log *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	tasks   []task
	started bool
}

// ensure Janitor is lifecycle-managed.
var (
	_ component.Component   = (*Janitor)(nil)
	_ component.Describable = (*Janitor)(nil)
)

// New creates an empty janitor.
func New() *Janitor {
	return &Janitor{
		log:  logger.WithComponent("janitor"),
		cron: cron.New(),
	}
}

// Add schedules a sweep. The schedule uses the cron package's syntax,
// typically "@every 5m". The sweep's duration and removal count are
// logged at debug level.
func (j *Janitor) Add(name, spec string, sweep SweepFunc) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.cron.AddFunc(spec, func() {
		start := time.Now()
		removed := sweep()
		j.log.Debug("sweep complete", logger.Fields(
			"task", name,
			"removed", removed,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	})
	if err != nil {
		return fmt.Errorf("janitor: scheduling %q (%s): %w", name, spec, err)
	}

	j.tasks = append(j.tasks, task{name: name, spec: spec})
	return nil
}

// Tasks returns the names of the scheduled sweeps.
func (j *Janitor) Tasks() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	names := make([]string, len(j.tasks))
	for i, t := range j.tasks {
		names[i] = t.name
	}
	return names
}

// Name returns the component name.
func (j *Janitor) Name() string { return "janitor" }

// Start begins running the scheduled sweeps.
func (j *Janitor) Start(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil
	}
	j.cron.Start()
	j.started = true

	j.log.Debug("janitor started", logger.Fields("tasks", len(j.tasks)))
	return nil
}

// Stop halts the scheduler and waits for any running sweep to finish.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return nil
	}
	j.started = false
	stopCtx := j.cron.Stop()
	j.mu.Unlock()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the janitor's state.
func (j *Janitor) Health(_ context.Context) component.Health {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := component.StatusHealthy
	msg := fmt.Sprintf("%d tasks scheduled", len(j.tasks))
	if !j.started {
		status = component.StatusDegraded
		msg = "not running"
	}
	return component.Health{Name: j.Name(), Status: status, Message: msg}
}

// Describe returns summary info for the startup display.
func (j *Janitor) Describe() component.Description {
	j.mu.Lock()
	defer j.mu.Unlock()

	return component.Description{
		Name:    "Janitor",
		Type:    "scheduler",
		Details: fmt.Sprintf("tasks=%d", len(j.tasks)),
	}
}
