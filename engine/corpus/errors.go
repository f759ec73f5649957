package corpus

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrNoVerseNumber = errors.New("no verse number")
	ErrNoContent     = errors.New("no embeddable content")
	ErrBadChapter    = errors.New("invalid chapter number")
)

// ValidationError wraps a sentinel with the field and value that failed.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("corpus: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
