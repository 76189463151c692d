package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError so transports can map it to a status code.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
	KindForbidden    ErrorKind = "forbidden"
	KindUnauthorized ErrorKind = "unauthorized"
	KindTransient    ErrorKind = "transient"
	KindPostCommit   ErrorKind = "post_commit"
	KindInternal     ErrorKind = "internal"
)

// AppError is the error type shared by all layers of the service.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error { return e.Err }

// Is matches another *AppError by kind and, when set, by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewValidationError reports invalid input detected before any persistence.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: message}
}

// NewValidationErrorCode reports invalid input with a machine-readable code.
func NewValidationErrorCode(code, message string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

// NewConflictError reports a conflicting write (overlapping slot, stale version).
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Code: "CONFLICT", Message: message}
}

// NewConflictErrorCode reports a conflict with a machine-readable code.
func NewConflictErrorCode(code, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message}
}

// NewInvalidStateError reports a forbidden status transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Kind:    KindInvalidState,
		Code:    "INVALID_STATE_TRANSITION",
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewForbiddenError reports an authenticated caller acting outside its rights.
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// NewTransientError wraps a network or storage failure the caller may retry.
func NewTransientError(message string, err error) *AppError {
	return &AppError{Kind: KindTransient, Code: "TRANSIENT", Message: message, Err: err}
}

// NewPostCommitError wraps a failure of an ancillary step after the booking was committed.
func NewPostCommitError(step string, err error) *AppError {
	return &AppError{
		Kind:    KindPostCommit,
		Code:    "POST_COMMIT_" + step,
		Message: fmt.Sprintf("post-commit step %s failed", step),
		Err:     err,
	}
}

// KindOf returns the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err (or any error it wraps) is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
