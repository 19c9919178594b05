package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
)

// Category is the coarse failure classification the recovery layer acts on.
type Category int

const (
	// CategoryUnknown covers errors that match no other category. They are
	// treated conservatively as retryable up to the configured limit.
	CategoryUnknown Category = iota
	// CategoryNetwork covers timeouts, connection failures, and generic
	// transport failures. Retryable; counts against the circuit breaker.
	CategoryNetwork
	// CategoryAuthentication covers expired or invalid credentials. Not
	// retried as-is; the auth-refresh strategy handles it once.
	CategoryAuthentication
	// CategoryValidation covers malformed requests. Never retried.
	CategoryValidation
	// CategoryRateLimit covers explicit rate-limit rejections carrying a
	// retry-after hint. The caller should wait, not retry immediately.
	CategoryRateLimit
	// CategoryServiceUnavailable covers circuit-open fail-fast rejections
	// where no call was attempted at all.
	CategoryServiceUnavailable
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryAuthentication:
		return "authentication"
	case CategoryValidation:
		return "validation"
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

var categoryByCode = map[ErrorCode]Category{
	ErrCodeServiceUnavailable: CategoryNetwork,
	ErrCodeConnectionFailed:   CategoryNetwork,
	ErrCodeTimeout:            CategoryNetwork,
	ErrCodeNetwork:            CategoryNetwork,
	ErrCodeExternalService:    CategoryNetwork,
	ErrCodeRateLimited:        CategoryRateLimit,
	ErrCodeCircuitOpen:        CategoryServiceUnavailable,
	ErrCodeOffline:            CategoryServiceUnavailable,
	ErrCodeInvalidInput:       CategoryValidation,
	ErrCodeMissingField:       CategoryValidation,
	ErrCodeUnauthorized:       CategoryAuthentication,
	ErrCodeForbidden:          CategoryAuthentication,
	ErrCodeTokenExpired:       CategoryAuthentication,
	ErrCodeInvalidToken:       CategoryAuthentication,
	ErrCodeInternal:           CategoryUnknown,
}

// Classify maps an arbitrary error onto a Category. AppError codes decide
// directly; everything else falls back to HTTP status, net error inspection,
// and message patterns, in that order.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if appErr, ok := AsAppError(err); ok {
		if cat, ok := categoryByCode[appErr.Code]; ok {
			return cat
		}
		if cat, ok := classifyHTTPStatus(appErr.HTTPStatus); ok {
			return cat
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return CategoryNetwork
	}

	return classifyMessage(err.Error())
}

func classifyHTTPStatus(status int) (Category, bool) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryAuthentication, true
	case status == http.StatusTooManyRequests:
		return CategoryRateLimit, true
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CategoryValidation, true
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return CategoryNetwork, true
	default:
		return CategoryUnknown, false
	}
}

var (
	authPatterns = []string{"jwt", "unauthorized", "forbidden", "token expired", "invalid token", "not authenticated", "401", "403"}
	netPatterns  = []string{"timeout", "timed out", "connection refused", "connection reset", "no such host", "network", "dial tcp", "broken pipe", "unreachable", "fetch failed"}
	valPatterns  = []string{"validation", "invalid input", "malformed", "bad request"}
	ratePatterns = []string{"rate limit", "too many requests", "429"}
)

func classifyMessage(msg string) Category {
	msg = strings.ToLower(msg)
	for _, p := range authPatterns {
		if strings.Contains(msg, p) {
			return CategoryAuthentication
		}
	}
	for _, p := range ratePatterns {
		if strings.Contains(msg, p) {
			return CategoryRateLimit
		}
	}
	for _, p := range netPatterns {
		if strings.Contains(msg, p) {
			return CategoryNetwork
		}
	}
	for _, p := range valPatterns {
		if strings.Contains(msg, p) {
			return CategoryValidation
		}
	}
	return CategoryUnknown
}

// IsRetryable reports whether a retry of the failed operation could plausibly
// succeed. Context cancellation is never retryable; classification decides
// the rest (network and unknown failures retry, the others do not).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	switch Classify(err) {
	case CategoryNetwork, CategoryUnknown:
		return true
	default:
		return false
	}
}
