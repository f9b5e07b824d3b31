package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input or configuration).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnsupportedFormat indicates an uploaded file type the table reader
// cannot parse.
type ErrUnsupportedFormat struct {
	File      string
	Extension string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s", e.Extension, e.File)
}

// ErrFileRead indicates a single file could not be read.
type ErrFileRead struct {
	File string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("read %s: %v", e.File, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}

// ErrAnalysis indicates the reconciliation run aborted unexpectedly.
// No partial result is published.
type ErrAnalysis struct {
	Cause string
}

func (e *ErrAnalysis) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Cause)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates an invalid or missing session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrBusy indicates too many analyses are running at once.
type ErrBusy struct {
	Limit int
}

func (e *ErrBusy) Error() string {
	return fmt.Sprintf("too many concurrent analyses (limit %d)", e.Limit)
}
