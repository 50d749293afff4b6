package analytics

import (
	"errors"
	"fmt"
)

// Sentinel errors for the analytics core.
// Use errors.Is to check: errors.Is(err, analytics.ErrValidation)
var (
	ErrValidation        = errors.New("analytics: invalid input")
	ErrInvalidFlowLabel  = errors.New("analytics: invalid flow label")
	ErrMisalignedHistory = errors.New("analytics: history sequences have different lengths")
	ErrInsufficientData  = errors.New("analytics: insufficient data")
)

// ValidationError describes a rejected request. It matches ErrValidation and
// the wrapped cause (if any) under errors.Is.
type ValidationError struct {
	Field  string
	Detail string
	Err    error
}

// Validation returns a ValidationError for field.
func Validation(field, detail string, cause error) *ValidationError {
	return &ValidationError{Field: field, Detail: detail, Err: cause}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Detail)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Err }
