package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for MIESC core errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Registry error codes
const (
	REGISTRY_LOAD_FAILED      ErrorCode = "REGISTRY_LOAD_FAILED"
	REGISTRY_INVALID_AGENT    ErrorCode = "REGISTRY_INVALID_AGENT"
	REGISTRY_DUPLICATE_AGENT  ErrorCode = "REGISTRY_DUPLICATE_AGENT"
	REGISTRY_AGENT_NOT_FOUND  ErrorCode = "REGISTRY_AGENT_NOT_FOUND"
	REGISTRY_NO_AGENTS_LAYERS ErrorCode = "REGISTRY_NO_AGENTS_LAYERS"
)

// Session error codes
const (
	SESSION_NOT_FOUND          ErrorCode = "SESSION_NOT_FOUND"
	SESSION_INVALID_REQUEST    ErrorCode = "SESSION_INVALID_REQUEST"
	SESSION_DEADLINE_EXCEEDED  ErrorCode = "SESSION_DEADLINE_EXCEEDED"
	SESSION_NOT_TERMINAL       ErrorCode = "SESSION_NOT_TERMINAL"
	SESSION_ALREADY_TERMINAL   ErrorCode = "SESSION_ALREADY_TERMINAL"
	SESSION_INVALID_TRANSITION ErrorCode = "SESSION_INVALID_TRANSITION"
)

// Agent error codes
const (
	AGENT_TIMEOUT ErrorCode = "AGENT_TIMEOUT"
	AGENT_FAILURE ErrorCode = "AGENT_FAILURE"
)

// Bus error codes
const (
	BUS_CLOSED ErrorCode = "BUS_CLOSED"
)

// Normalization error codes
const (
	NORMALIZE_MALFORMED ErrorCode = "NORMALIZE_MALFORMED"
)

// Correlation error codes
const (
	CORRELATE_SESSION_MISMATCH ErrorCode = "CORRELATE_SESSION_MISMATCH"
	CORRELATE_FROZEN           ErrorCode = "CORRELATE_FROZEN"
)

// Report error codes
const (
	REPORT_NOT_TERMINAL ErrorCode = "REPORT_NOT_TERMINAL"
)

// CoreError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints.
type CoreError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *CoreError) Is(target error) bool {
	var coreErr *CoreError
	if errors.As(target, &coreErr) {
		return e.Code == coreErr.Code
	}
	return false
}

// NewError creates a new non-retryable CoreError with the given code and message.
func NewError(code ErrorCode, message string) *CoreError {
	return &CoreError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable CoreError with the given code and
// message. Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *CoreError {
	return &CoreError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable CoreError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *CoreError {
	return &CoreError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
