package health

import (
	"sort"
	"time"
)

// sample is one recorded call outcome.
type sample struct {
	ok      bool
	latency time.Duration
}

// perfWindow is a fixed-size ring of the most recent call outcomes for one
// service. Not safe for concurrent use; the Monitor serializes access.
type perfWindow struct {
	samples []sample
	next    int
	full    bool
}

func newPerfWindow(size int) *perfWindow {
	return &perfWindow{samples: make([]sample, size)}
}

// record appends an outcome, displacing the oldest once the ring is full.
func (w *perfWindow) record(ok bool, latency time.Duration) {
	w.samples[w.next] = sample{ok: ok, latency: latency}
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// count returns how many outcomes the window currently holds.
func (w *perfWindow) count() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// snapshot computes the aggregate view of the window. Degraded is left for
// the Monitor to fill in against its thresholds.
func (w *perfWindow) snapshot() PerfSnapshot {
	n := w.count()
	if n == 0 {
		return PerfSnapshot{SuccessRate: 1}
	}

	var succeeded int
	var total time.Duration
	latencies := make([]time.Duration, 0, n)

	for i := 0; i < n; i++ {
		s := w.samples[i]
		if s.ok {
			succeeded++
		}
		total += s.latency
		latencies = append(latencies, s.latency)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return PerfSnapshot{
		SuccessRate: float64(succeeded) / float64(n),
		AvgLatency:  total / time.Duration(n),
		P95Latency:  latencies[(n*95)/100],
		SampleCount: n,
	}
}
