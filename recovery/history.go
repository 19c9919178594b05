package recovery

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Record is one remembered failure, kept for diagnostics.
type Record struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Operation string    `json:"operation"`
	Category  string    `json:"category"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

// History is a bounded, time-limited log of recent failures. Size and
// retention are both enforced: the oldest record falls out when the bound
// is hit, and records older than the retention window expire on their
// own.
type History struct {
	records *expirable.LRU[string, Record]
}

// NewHistory creates a failure history. Non-positive arguments fall back
// to 100 records and 30 minutes.
func NewHistory(maxRecords int, retention time.Duration) *History {
	if maxRecords <= 0 {
		maxRecords = 100
	}
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	return &History{
		records: expirable.NewLRU[string, Record](maxRecords, nil, retention),
	}
}

// Record remembers a failure.
func (h *History) Record(ec *Context) {
	rec := Record{
		ID:        ec.ID,
		Service:   ec.Service,
		Operation: ec.Operation,
		Category:  ec.Category().String(),
		At:        ec.Timestamp,
	}
	if ec.Err != nil {
		rec.Error = ec.Err.Error()
	}
	h.records.Add(ec.ID, rec)
}

// Recent returns up to n records, newest first.
func (h *History) Recent(n int) []Record {
	values := h.records.Values()
	if n <= 0 || n > len(values) {
		n = len(values)
	}

	out := make([]Record, 0, n)
	for i := len(values) - 1; i >= len(values)-n; i-- {
		out = append(out, values[i])
	}
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int { return h.records.Len() }
