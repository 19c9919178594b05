package recovery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/backstop/errors"
)

// Context describes one failed operation for the recovery pipeline.
type Context struct {
	// ID correlates this failure across logs, history, and events.
	ID string
	// Service names the backend capability that failed.
	Service string
	// Operation names the failed operation within the service.
	Operation string
	// CacheKey is the cache location of this operation's last good
	// result, when the caller maintains one. Empty disables the
	// cache-fallback strategy.
	CacheKey string
	// Err is the failure being recovered from.
	Err error
	// Timestamp is when the failure occurred.
	Timestamp time.Time
	// Reported marks failures the monitor has already been told about,
	// so Handle does not count them twice.
	Reported bool
	// Metadata carries free-form detail for strategies and diagnostics.
	Metadata map[string]any
	// Op re-runs the original operation, for strategies that retry it.
	// Nil disables those strategies.
	Op func(ctx context.Context) (any, error)
}

// NewContext builds a failure context stamped with an ID and the current
// time.
func NewContext(service, operation string, err error) *Context {
	return &Context{
		ID:        uuid.NewString(),
		Service:   service,
		Operation: operation,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithMeta sets a metadata key and returns the context for chaining.
func (c *Context) WithMeta(key string, value any) *Context {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// metaRetried marks a failure whose operation already went through the
// retry manager, so the network-retry strategy stands down.
const metaRetried = "retried"

// MarkRetried records that the operation's retry budget is spent.
func (c *Context) MarkRetried() *Context { return c.WithMeta(metaRetried, true) }

// Retried reports whether the retry budget was already spent upstream.
func (c *Context) Retried() bool {
	v, ok := c.Metadata[metaRetried].(bool)
	return ok && v
}

// Category classifies the failure per the error taxonomy.
func (c *Context) Category() errors.Category {
	return errors.Classify(c.Err)
}

// Outcome is what the orchestrator hands back to the caller.
type Outcome struct {
	// Recovered reports whether some strategy produced a result.
	Recovered bool
	// Result is the recovered value, nil when Recovered is false.
	Result any
	// FallbackUsed reports whether the result is cached, offline, or
	// degraded data rather than the real response.
	FallbackUsed bool
	// StrategyID names the strategy that recovered, empty otherwise.
	StrategyID string
	// UserError is the presentation-ready failure description, set only
	// when recovery failed.
	UserError *errors.UserError
}
