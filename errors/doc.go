// Package errors provides unified error handling for the resilience layer.
// It implements structured error types with error codes, failure
// classification for recovery decisions, and presentation-ready user errors.
package errors
