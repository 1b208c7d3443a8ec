package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Common service errors. Typed errors below match these with errors.Is.
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrReferential is returned when a foreign key does not resolve or a
	// record is still referenced by another
	ErrReferential = errors.New("referential integrity violation")

	// ErrTerminalState is returned when mutating a converted deal
	ErrTerminalState = errors.New("record is in a terminal state")
)

// NotFoundError reports an id absent from the store
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ReferentialError reports a foreign key that does not resolve, or a delete
// blocked by records that still reference the target
type ReferentialError struct {
	Entity string
	Field  string
	ID     uuid.UUID
	Reason string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s.%s %s: %s", e.Entity, e.Field, e.ID, e.Reason)
}

func (e *ReferentialError) Is(target error) bool {
	return target == ErrReferential
}

// TerminalStateError reports an attempted mutation of a converted deal
type TerminalStateError struct {
	Entity    string
	ID        uuid.UUID
	Operation string
	ProjectID uuid.UUID
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s: already converted to project %s", e.Operation, e.Entity, e.ID, e.ProjectID)
}

func (e *TerminalStateError) Is(target error) bool {
	return target == ErrTerminalState
}

// ValidationError reports malformed input. Fields maps a field name to its problem.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return fmt.Sprintf("invalid input: %s: %s", field, msg)
		}
	}
	if e.Err != nil {
		return "invalid input: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid input: %d fields failed validation", len(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// newFieldError builds a ValidationError for a single field
func newFieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// newValidationError converts validator output into a ValidationError
func newValidationError(err error) *ValidationError {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fmt.Sprintf("failed %q validation", fe.Tag())
		}
	}
	return &ValidationError{Fields: fields, Err: err}
}

// IsRetryable reports whether an error describes a conflict the caller can
// resolve and then retry, as opposed to a programming error such as a double delete
func IsRetryable(err error) bool {
	return errors.Is(err, ErrReferential)
}
