// Package errors defines the typed error kinds used across mcadmin. Every
// operation that fails for a reason a caller should branch on returns one of
// these, generalizing the teacher monorepo's rmq.PermanentError pattern (an
// error wrapper with an Unwrap method and an Is*Error predicate) to the four
// kinds this system needs: validation, not-found, conflict, and external.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ValidationError means the caller supplied input that fails a domain rule
// (bad cron expression, schema mismatch, malformed compose file).
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func WrapValidation(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// NotFoundError means the referenced entity (instance, player, cron job,
// snapshot) does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConflictError means the operation cannot proceed because of the current
// state of some other entity (port already claimed, container name in use,
// cron job already active).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("conflict: %s", e.Message) }

func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ExternalError wraps a failure from something outside this process: the
// Docker engine, a DNS provider API, restic, the database.
type ExternalError struct {
	System string
	Err    error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.System, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

func WrapExternal(system string, err error) *ExternalError {
	if err == nil {
		return nil
	}
	return &ExternalError{System: system, Err: err}
}

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return asMatch(err, &nf)
}

// IsConflict reports whether err (or anything it wraps) is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return asMatch(err, &c)
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return asMatch(err, &v)
}

func asMatch[T error](err error, target *T) bool {
	return stderrors.As(err, target)
}
