package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies orchestration failures.
type ErrorKind string

const (
	ErrPlanningFailed        ErrorKind = "planning_failed"
	ErrToolNotFound          ErrorKind = "tool_not_found"
	ErrExecutionFailed       ErrorKind = "execution_failed"
	ErrReplanningFailed      ErrorKind = "replanning_failed"
	ErrConfig                ErrorKind = "config_error"
	ErrResourceLimitExceeded ErrorKind = "resource_limit_exceeded"
	ErrSessionNotFound       ErrorKind = "session_not_found"
	ErrInvalidState          ErrorKind = "invalid_state"
)

// OrchestratorError is the typed error the core returns to external
// callers. Tool-level failures never surface as errors; they become
// failed StepResults instead.
type OrchestratorError struct {
	Kind      ErrorKind // Failure classification
	Message   string    // Human-readable message
	Retryable bool      // Whether the caller may retry
	Err       error     // Underlying cause (optional)
}

// Error implements the error interface.
func (e *OrchestratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *OrchestratorError) Unwrap() error {
	return e.Err
}

// NewError creates an OrchestratorError of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *OrchestratorError {
	return &OrchestratorError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an OrchestratorError wrapping a cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *OrchestratorError {
	return &OrchestratorError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the ErrorKind carried by err, or ErrExecutionFailed
// when err is not an OrchestratorError.
func KindOf(err error) ErrorKind {
	var oe *OrchestratorError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ErrExecutionFailed
}

// IsSessionNotFound reports whether err indicates an unknown or
// already-cleaned-up execution id.
func IsSessionNotFound(err error) bool {
	var oe *OrchestratorError
	return errors.As(err, &oe) && oe.Kind == ErrSessionNotFound
}
