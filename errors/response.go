package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure handed to the presentation layer,
// following RFC 7807.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to the presentation layer.
type ErrorBody struct {
	Code              ErrorCode              `json:"code"`
	Message           string                 `json:"message"`
	Retryable         bool                   `json:"retryable"`
	RetryAfterSeconds int64                  `json:"retry_after_seconds,omitempty"`
	Details           map[string]interface{} `json:"details,omitempty"`
	User              *UserError             `json:"user,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:              e.Code,
			Message:           e.Message,
			Retryable:         e.Retryable,
			RetryAfterSeconds: int64(e.RetryAfter.Seconds()),
			Details:           e.Details,
		},
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
