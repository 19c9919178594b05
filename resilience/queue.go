package resilience

import (
	"container/heap"
	"context"
	"sync"

	"github.com/google/uuid"
)

// QueueConfig configures a request queue.
type QueueConfig struct {
	// Name identifies this queue for metrics/logging.
	Name string
	// MaxConcurrent is the number of operations allowed to run at once.
	MaxConcurrent int
	// OnEnqueue is called when a request starts waiting for a slot.
	OnEnqueue func(name, id string, priority int)
	// OnDequeue is called when a waiting request is granted a slot or
	// abandons the wait. Pairs with OnEnqueue for depth tracking.
	OnDequeue func(name, id string, priority int)
	// OnStart is called when a request acquires a slot.
	OnStart func(name, id string, priority int)
	// OnDone is called when a request releases its slot.
	OnDone func(name, id string)
}

// DefaultQueueConfig returns sensible defaults.
func DefaultQueueConfig(name string) QueueConfig {
	return QueueConfig{
		Name:          name,
		MaxConcurrent: 5,
	}
}

// RequestQueue bounds the number of concurrently running operations and
// dispatches waiting ones by priority. Higher priorities run first; equal
// priorities run in arrival order. The queue never inspects operation
// errors; retry and circuit breaking live above this layer.
type RequestQueue struct {
	config QueueConfig

	mu      sync.Mutex
	active  int
	seq     uint64
	waiters waitq
}

// NewRequestQueue creates a request queue.
func NewRequestQueue(config QueueConfig) *RequestQueue {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 5
	}
	return &RequestQueue{config: config}
}

// Execute runs fn under the concurrency limit, waiting in the priority
// queue while all slots are busy. It returns ctx.Err() when the context is
// canceled before fn starts; fn's own error is passed through untouched.
func (q *RequestQueue) Execute(ctx context.Context, priority int, fn func() error) error {
	id := uuid.NewString()

	if err := q.acquire(ctx, id, priority); err != nil {
		return err
	}
	defer q.release(id)

	return fn()
}

// ExecuteWithResult runs a function that returns a value through the queue.
func ExecuteWithResult[T any](q *RequestQueue, ctx context.Context, priority int, fn func() (T, error)) (T, error) {
	var result T
	err := q.Execute(ctx, priority, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// Active returns the number of operations currently running.
func (q *RequestQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Pending returns the number of requests waiting for a slot.
func (q *RequestQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiters.Len()
}

// MaxConcurrent returns the concurrency limit.
func (q *RequestQueue) MaxConcurrent() int {
	return q.config.MaxConcurrent
}

// acquire claims a slot, queueing behind higher priorities when none is
// free. A request already granted a slot when its context is canceled gives
// the slot back so the next waiter runs.
func (q *RequestQueue) acquire(ctx context.Context, id string, priority int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.active < q.config.MaxConcurrent && q.waiters.Len() == 0 {
		q.active++
		q.mu.Unlock()

		if q.config.OnStart != nil {
			q.config.OnStart(q.config.Name, id, priority)
		}
		return nil
	}

	w := &waiter{
		id:       id,
		priority: priority,
		seq:      q.seq,
		grant:    make(chan struct{}),
	}
	q.seq++
	heap.Push(&q.waiters, w)
	q.mu.Unlock()

	if q.config.OnEnqueue != nil {
		q.config.OnEnqueue(q.config.Name, id, priority)
	}

	select {
	case <-w.grant:
		if q.config.OnDequeue != nil {
			q.config.OnDequeue(q.config.Name, id, priority)
		}
		if q.config.OnStart != nil {
			q.config.OnStart(q.config.Name, id, priority)
		}
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		if w.index == -1 {
			// Granted between cancellation and cleanup; hand the slot on.
			q.active--
			q.dispatchLocked()
			q.mu.Unlock()
		} else {
			heap.Remove(&q.waiters, w.index)
			q.mu.Unlock()
		}
		if q.config.OnDequeue != nil {
			q.config.OnDequeue(q.config.Name, id, priority)
		}
		return ctx.Err()
	}
}

// release frees a slot and wakes the best waiter, if any.
func (q *RequestQueue) release(id string) {
	q.mu.Lock()
	q.active--
	q.dispatchLocked()
	q.mu.Unlock()

	if q.config.OnDone != nil {
		q.config.OnDone(q.config.Name, id)
	}
}

// dispatchLocked grants slots to the highest priority waiters while
// capacity remains. Callers must hold the mutex.
func (q *RequestQueue) dispatchLocked() {
	for q.active < q.config.MaxConcurrent && q.waiters.Len() > 0 {
		w := heap.Pop(&q.waiters).(*waiter)
		q.active++
		close(w.grant)
	}
}

// waiter is one queued request.
type waiter struct {
	id       string
	priority int
	seq      uint64
	grant    chan struct{}
	index    int
}

// waitq orders waiters by priority, then arrival. It implements
// heap.Interface.
type waitq []*waiter

func (wq waitq) Len() int { return len(wq) }

func (wq waitq) Less(i, j int) bool {
	if wq[i].priority != wq[j].priority {
		return wq[i].priority > wq[j].priority
	}
	return wq[i].seq < wq[j].seq
}

func (wq waitq) Swap(i, j int) {
	wq[i], wq[j] = wq[j], wq[i]
	wq[i].index = i
	wq[j].index = j
}

func (wq *waitq) Push(x any) {
	w := x.(*waiter)
	w.index = len(*wq)
	*wq = append(*wq, w)
}

func (wq *waitq) Pop() any {
	old := *wq
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*wq = old[:n-1]
	return w
}
