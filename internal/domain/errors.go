// Package domain defines the shared types and error values of the endpoint.
package domain

import (
	"errors"
	"fmt"
)

// OperationError is a custom error type for operation failures
type OperationError struct {
	Operation string // The operation that failed (e.g., "convert")
	Message   string // Human-readable error message
	Cause     error  // Underlying error
}

func (e *OperationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s (%v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates a graph, file or handler was not found
type NotFoundError struct {
	Type       string // "graph", "file" or "action"
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.Identifier)
}

// ValidationError indicates input validation failed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// ConflictError indicates a resource already exists
type ConflictError struct {
	Type       string // "graph"
	Identifier string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Type, e.Identifier)
}

// UsageError is a command line misuse. The CLI prints it without a usage dump and exits 1.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ReadOnlyError is returned when a write reaches a store that cannot be modified.
type ReadOnlyError struct {
	Backend Backend
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s store is read-only", e.Backend)
}

// NewOperationError creates a new OperationError
func NewOperationError(operation, message string, cause error) *OperationError {
	return &OperationError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(typ, identifier string) *NotFoundError {
	return &NotFoundError{
		Type:       typ,
		Identifier: identifier,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewConflictError creates a new ConflictError
func NewConflictError(typ, identifier string) *ConflictError {
	return &ConflictError{
		Type:       typ,
		Identifier: identifier,
	}
}

// NewUsageError creates a new UsageError
func NewUsageError(format string, args ...interface{}) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// IsUsage reports whether err is, or wraps, a UsageError or ValidationError.
func IsUsage(err error) bool {
	var usage *UsageError
	var validation *ValidationError
	return errors.As(err, &usage) || errors.As(err, &validation)
}

// IsReadOnly reports whether err is, or wraps, a ReadOnlyError.
func IsReadOnly(err error) bool {
	var ro *ReadOnlyError
	return errors.As(err, &ro)
}
