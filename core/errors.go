package core

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a referenced object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is the cause of every *ForbiddenError.
	ErrForbidden = errors.New("forbidden")

	// ErrInvariantViolation flags broken data invariants (eg. a role outside the closed set).
	// It is never a user-facing condition.
	ErrInvariantViolation = errors.New("invariant violation")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ForbiddenError is an access denial carrying a human-readable reason.
type ForbiddenError struct {
	Reason string
}

func NewForbiddenError(reason string) error {
	return &ForbiddenError{Reason: reason}
}

func (err *ForbiddenError) Error() string {
	if err.Reason == "" {
		return ErrForbidden.Error()
	}
	return err.Reason
}

func (err *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// IsForbidden reports whether err (or its cause) is an access denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound reports whether err (or its cause) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
