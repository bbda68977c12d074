package services

import (
	"errors"
	"fmt"

	"miniola/internal/repositories/interfaces"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_FAILURE"
	KindUnauthenticated    ErrorKind = "UNAUTHENTICATED"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInvalidState       ErrorKind = "INVALID_STATE_TRANSITION"
	KindOTPMismatch        ErrorKind = "OTP_MISMATCH"
	KindInsufficientFunds  ErrorKind = "INSUFFICIENT_BALANCE"
	KindDuplicate          ErrorKind = "DUPLICATE_RESOURCE"
	KindNoDriversAvailable ErrorKind = "NO_DRIVERS_AVAILABLE"
	KindConflict           ErrorKind = "CONFLICT"
	KindInternal           ErrorKind = "INTERNAL"
)

// AppError is the only error type services return. Err holds the cause and
// is never shown to clients outside development mode.
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrInvalidFareInput is wrapped by fare calculation failures.
var ErrInvalidFareInput = errors.New("invalid fare input")

func newError(kind ErrorKind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: cause}
}

func ValidationError(message string) *AppError {
	return newError(KindValidation, message, nil)
}

func FieldValidationError(fields map[string]string, cause error) *AppError {
	return &AppError{Kind: KindValidation, Message: "Validation failed", Fields: fields, Err: cause}
}

func UnauthenticatedError(message string) *AppError {
	return newError(KindUnauthenticated, message, nil)
}

func UnauthorizedError(message string) *AppError {
	return newError(KindUnauthorized, message, nil)
}

func NotFoundError(resource string) *AppError {
	return newError(KindNotFound, resource+" not found", nil)
}

func InvalidStateError(message string) *AppError {
	return newError(KindInvalidState, message, nil)
}

func DuplicateError(message string) *AppError {
	return newError(KindDuplicate, message, nil)
}

func ConflictError(message string) *AppError {
	return newError(KindConflict, message, nil)
}

func InternalError(message string, cause error) *AppError {
	return newError(KindInternal, message, cause)
}

// KindOf reports the kind of err; anything that is not an AppError is
// internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// fromRepo maps a repository error onto an AppError for resource.
func fromRepo(err error, resource string) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, interfaces.ErrNotFound):
		return NotFoundError(resource)
	case errors.Is(err, interfaces.ErrDuplicate):
		return DuplicateError(resource + " already exists")
	case errors.Is(err, interfaces.ErrConflict):
		return ConflictError(resource + " was modified concurrently")
	case errors.Is(err, interfaces.ErrInsufficientFunds):
		return newError(KindInsufficientFunds, "Insufficient wallet balance", nil)
	default:
		return InternalError("failed to access "+resource, err)
	}
}
