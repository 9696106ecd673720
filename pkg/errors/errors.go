// Package errors provides the structured error type shared by TaskKit packages.
//
// ContextualError captures the component and operation that failed, the HTTP
// status returned by the engine (if any), and structured details such as the
// engine's exception type and message. It implements the error and Unwrap
// interfaces so it composes with errors.Is and errors.As.
//
// Usage:
//
//	err := errors.New(errors.ComponentEngine, "complete", cause)
//	err = err.WithStatusCode(404).WithDetails(map[string]any{"type": "RestException"})
package errors

import "fmt"

// Components reported in ContextualError.Component.
const (
	ComponentEngine = "engine"
	ComponentWorker = "worker"
	ComponentSDK    = "sdk"
	ComponentConfig = "config"
)

// Detail keys used for engine failures.
const (
	DetailMessage   = "message"
	DetailType      = "type"
	DetailErrorCode = "code"
)

// ContextualError is a structured error type that records where and why an
// error occurred.
type ContextualError struct {
	// Component identifies the package that produced the error (e.g. "engine", "worker").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is the HTTP status returned by the engine; 0 when no response arrived.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	} else if msg := e.DetailString(DetailMessage); msg != "" {
		base += ": " + msg
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode sets the status code and returns the error for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns the error for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// WithDetail adds one detail and returns the error for chaining.
func (e *ContextualError) WithDetail(key string, value any) *ContextualError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// DetailString returns a string detail, or "" when it is absent or not a string.
func (e *ContextualError) DetailString(key string) string {
	s, _ := e.Details[key].(string)
	return s
}
