package recovery

import (
	"context"
	"time"

	"github.com/kbukum/backstop/errors"
	"github.com/kbukum/backstop/events"
	"github.com/kbukum/backstop/health"
	"github.com/kbukum/backstop/logger"
)

// Config configures the orchestrator.
type Config struct {
	// HistorySize bounds the failure history.
	HistorySize int
	// HistoryRetention expires history records by age.
	HistoryRetention time.Duration
	// NotifyThreshold is how many failures of one service within
	// NotifyWindow warrant a user-visible notification.
	NotifyThreshold int
	// NotifyWindow is the notification counting and debounce window.
	NotifyWindow time.Duration
	// Notifier receives user-facing notifications. Optional.
	Notifier Notifier
	// Publisher receives recovery events. Optional.
	Publisher events.Publisher
	// Monitor is told about failures it has not seen yet. Optional.
	Monitor *health.Monitor
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize:      100,
		HistoryRetention: 30 * time.Minute,
		NotifyThreshold:  3,
		NotifyWindow:     time.Minute,
	}
}

// Orchestrator walks recovery strategies in priority order until one
// produces a result or all are exhausted. It is the only layer deciding
// what reaches the caller: always a structured Outcome, never a bare
// panic or unclassified error.
type Orchestrator struct {
	config  Config
	log     *logger.Logger
	history *History
	gate    *notifyGate

	strategies registry

	now func() time.Time // test hook
}

// New creates an orchestrator with no strategies registered. Use
// Register, typically with the New* strategy constructors, to populate
// it.
func New(config Config) *Orchestrator {
	if config.NotifyThreshold <= 0 {
		config.NotifyThreshold = 3
	}
	if config.NotifyWindow <= 0 {
		config.NotifyWindow = time.Minute
	}

	return &Orchestrator{
		config:  config,
		log:     logger.WithComponent("recovery"),
		history: NewHistory(config.HistorySize, config.HistoryRetention),
		gate:    newNotifyGate(config.NotifyThreshold, config.NotifyWindow),
		now:     time.Now,
	}
}

// Register adds a strategy. The registry re-sorts by priority, so
// strategies may be registered in any order, at any time.
func (o *Orchestrator) Register(s Strategy) {
	o.strategies.add(s)
	o.log.Debug("strategy registered", logger.Fields(
		logger.FieldStrategy, s.ID(),
		logger.FieldPriority, s.Priority(),
	))
}

// History exposes the failure history for diagnostics.
func (o *Orchestrator) History() *History { return o.history }

// Handle records a failure and tries every applicable strategy in
// priority order. The first success wins. When all fail, the outcome
// carries a user-facing error description, and repeated failures of the
// same service raise a debounced notification.
func (o *Orchestrator) Handle(ctx context.Context, ec *Context) Outcome {
	o.history.Record(ec)

	if !ec.Reported && o.config.Monitor != nil {
		o.config.Monitor.RecordFailure(ec.Service, ec.Err, 0)
		ec.Reported = true
	}

	for _, s := range o.strategies.ordered() {
		if !s.CanRecover(ctx, ec) {
			continue
		}

		result, err := s.Recover(ctx, ec)
		if err != nil {
			o.log.Debug("strategy failed", logger.Fields(
				logger.FieldStrategy, s.ID(),
				logger.FieldService, ec.Service,
				logger.FieldError, err.Error(),
			))
			continue
		}

		o.log.Info("recovered", logger.Fields(
			logger.FieldStrategy, s.ID(),
			logger.FieldService, ec.Service,
			logger.FieldOperation, ec.Operation,
		))
		o.publish(events.TypeRecoveryApplied, ec, map[string]any{
			"strategy": s.ID(),
			"fallback": s.Fallback(),
		})

		return Outcome{
			Recovered:    true,
			Result:       result,
			FallbackUsed: s.Fallback(),
			StrategyID:   s.ID(),
		}
	}

	ue := errors.UserErrorFor(ec.Err, false)
	o.maybeNotify(ctx, ec, ue)

	o.log.Warn("recovery exhausted", logger.Fields(
		logger.FieldService, ec.Service,
		logger.FieldOperation, ec.Operation,
		logger.FieldError, errString(ec.Err),
	))

	return Outcome{Recovered: false, UserError: ue}
}

// maybeNotify raises a user notification once a service has failed often
// enough recently, debounced so one bad stretch does not spam the user.
func (o *Orchestrator) maybeNotify(ctx context.Context, ec *Context, ue *errors.UserError) {
	if !o.gate.observe(ec.Service, o.now()) {
		return
	}

	if o.config.Notifier != nil {
		o.config.Notifier.Notify(ctx, ec.Service, ue)
	}
	o.publish(events.TypeNotificationRaised, ec, map[string]any{
		"title":    ue.Title,
		"severity": string(ue.Severity),
	})
}

// publish emits a recovery event when a publisher is wired.
func (o *Orchestrator) publish(eventType string, ec *Context, fields map[string]any) {
	if o.config.Publisher == nil {
		return
	}
	fields["operation"] = ec.Operation
	fields["context_id"] = ec.ID
	o.config.Publisher.Publish(events.Event{
		Type:    eventType,
		Service: ec.Service,
		Fields:  fields,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
