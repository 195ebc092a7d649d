package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCancelled indicates that an operation was cancelled by the caller.
	ErrCancelled = errors.New("cancelled")

	// ErrInternalDefect indicates a bug in the pipeline itself, such as a
	// fallback producer failing. This is the only error class the workflow
	// engine propagates to the caller.
	ErrInternalDefect = errors.New("internal defect")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InternalDefectError wraps a defect detected inside the pipeline, recording
// the stage where it surfaced.
type InternalDefectError struct {
	Stage string
	Cause error
}

// Error implements the error interface.
func (e *InternalDefectError) Error() string {
	return fmt.Sprintf("internal defect in stage %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InternalDefectError) Unwrap() error {
	return ErrInternalDefect
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewInternalDefectError creates a new InternalDefectError.
func NewInternalDefectError(stage string, cause error) *InternalDefectError {
	return &InternalDefectError{
		Stage: stage,
		Cause: cause,
	}
}
