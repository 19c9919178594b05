package errors

import (
	"fmt"
	"time"
)

// Severity indicates how prominently a user-facing error should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ActionKind identifies a suggested action the presentation layer can offer.
type ActionKind string

const (
	ActionRetry   ActionKind = "retry"
	ActionWait    ActionKind = "wait"
	ActionSignIn  ActionKind = "sign_in"
	ActionDismiss ActionKind = "dismiss"
)

// Action is a suggested action attached to a user-facing error.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
}

// UserError is the presentation-ready description of a failure. It is built
// by the recovery layer after all strategies are exhausted and handed to the
// notification sink; it is not itself an error value.
type UserError struct {
	Title        string   `json:"title"`
	Message      string   `json:"message"`
	Severity     Severity `json:"severity"`
	Actions      []Action `json:"actions,omitempty"`
	Retryable    bool     `json:"retryable"`
	FallbackUsed bool     `json:"fallback_used"`
}

// UserErrorFor builds a UserError from an arbitrary failure using rule-based
// classification. fallbackUsed records whether degraded or cached data was
// served in place of the real result.
func UserErrorFor(err error, fallbackUsed bool) *UserError {
	ue := &UserError{FallbackUsed: fallbackUsed}

	switch Classify(err) {
	case CategoryNetwork:
		ue.Title = "Connection problem"
		ue.Message = "We're having trouble reaching the service. Check your connection and try again."
		ue.Severity = SeverityWarning
		ue.Retryable = true
		ue.Actions = []Action{
			{Kind: ActionRetry, Label: "Try again"},
			{Kind: ActionDismiss, Label: "Dismiss"},
		}
	case CategoryAuthentication:
		ue.Title = "Session expired"
		ue.Message = "Your session is no longer valid. Please sign in again to continue."
		ue.Severity = SeverityError
		ue.Retryable = false
		ue.Actions = []Action{
			{Kind: ActionSignIn, Label: "Sign in"},
		}
	case CategoryValidation:
		ue.Title = "Invalid request"
		ue.Message = "Something about this request isn't right. Please review and try again."
		ue.Severity = SeverityError
		ue.Retryable = false
		ue.Actions = []Action{
			{Kind: ActionDismiss, Label: "Dismiss"},
		}
	case CategoryRateLimit:
		ue.Title = "Slow down"
		ue.Message = "You've made too many requests. Please wait a moment before trying again."
		ue.Severity = SeverityWarning
		ue.Retryable = true
		if wait := retryAfterOf(err); wait > 0 {
			ue.Message = fmt.Sprintf("You've made too many requests. Please wait %s before trying again.", formatWait(wait))
		}
		ue.Actions = []Action{
			{Kind: ActionWait, Label: "Wait and retry"},
		}
	case CategoryServiceUnavailable:
		ue.Title = "Service unavailable"
		ue.Message = "This service is temporarily unavailable. We'll keep trying in the background."
		ue.Severity = SeverityWarning
		ue.Retryable = true
		ue.Actions = []Action{
			{Kind: ActionRetry, Label: "Try again later"},
			{Kind: ActionDismiss, Label: "Dismiss"},
		}
	default:
		ue.Title = "Something went wrong"
		ue.Message = "An unexpected problem occurred. Please try again."
		ue.Severity = SeverityError
		ue.Retryable = true
		ue.Actions = []Action{
			{Kind: ActionRetry, Label: "Try again"},
			{Kind: ActionDismiss, Label: "Dismiss"},
		}
	}

	if fallbackUsed {
		ue.Severity = SeverityInfo
		ue.Message += " You're seeing saved data in the meantime."
	}

	return ue
}

func retryAfterOf(err error) time.Duration {
	if appErr, ok := AsAppError(err); ok {
		return appErr.RetryAfter
	}
	return 0
}

func formatWait(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Round(time.Second).Seconds())
		if secs <= 1 {
			return "a second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int(d.Round(time.Minute).Minutes())
	if mins <= 1 {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
