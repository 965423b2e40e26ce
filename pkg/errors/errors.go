// Package errors provides structured error types for the intervene library.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across selectors, optimizers, and callers
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes distinguish the failure classes the optimization routines
// can surface:
//   - INVALID_*: Input validation failures
//   - CONSTRAINT_VIOLATED / INVALID_PROBABILITY: Numerical or logic faults
//     that must abort the current optimization run
//   - EMPTY_*: Degenerate but recoverable conditions (retry with a new
//     graph draw, or fall back to random interventions)
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeEmptySample, "sampler returned no DAGs for n=%d", n)
//	if errors.Is(err, errors.ErrCodeEmptySample) {
//	    // Retry with a new graph draw
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "direction step failed at t=%d", t)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Fatal optimization faults. These indicate a logic or
	// numerical-stability bug and must abort the run, never be clamped.
	ErrCodeConstraintViolated Code = "CONSTRAINT_VIOLATED"
	ErrCodeInvalidProbability Code = "INVALID_PROBABILITY"

	// Degenerate but recoverable conditions
	ErrCodeEmptySample           Code = "EMPTY_SAMPLE"
	ErrCodeEmptySeparatingSystem Code = "EMPTY_SEPARATING_SYSTEM"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ConstraintError reports a fractional iterate that exceeded its
// cardinality bound by more than the numerical tolerance.
type ConstraintError struct {
	Sum   float64 // Accumulated coordinate sum of the iterate
	Bound float64 // Cardinality bound the iterate was required to satisfy
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violated: coordinate sum %.6f exceeds bound %g", e.Sum, e.Bound)
}

// Code returns the error code for this error type.
func (e *ConstraintError) Code() Code {
	return ErrCodeConstraintViolated
}
