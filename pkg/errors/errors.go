// Package errors provides structured error types for framekit.
//
// This package defines error codes and types that enable:
//   - Consistent classification of solver outcomes across the engine and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into two severities:
//   - Structural codes (DUPLICATE_CONSTRAINT, UNSATISFIABLE_CONSTRAINT,
//     UNKNOWN_CONSTRAINT) describe bad input. The layout engine logs them and
//     keeps going.
//   - Fatal codes (UNKNOWN_EDIT_VARIABLE, INTERNAL_SOLVER) describe broken
//     variable bookkeeping. The layout engine panics on them.
//
// The remaining codes are used by the scene loader and the CLI.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownEntity, "no entity named %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownEntity) {
//	    // Handle lookup failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidScene, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural solver outcomes
	ErrCodeDuplicateConstraint     Code = "DUPLICATE_CONSTRAINT"
	ErrCodeUnsatisfiableConstraint Code = "UNSATISFIABLE_CONSTRAINT"
	ErrCodeUnknownConstraint       Code = "UNKNOWN_CONSTRAINT"

	// Fatal solver outcomes
	ErrCodeUnknownEditVariable Code = "UNKNOWN_EDIT_VARIABLE"
	ErrCodeInternalSolver      Code = "INTERNAL_SOLVER"

	// Scene and input errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidScene      Code = "INVALID_SCENE"
	ErrCodeInvalidExpression Code = "INVALID_EXPRESSION"
	ErrCodeInvalidPath       Code = "INVALID_PATH"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"
	ErrCodeUnknownEntity     Code = "UNKNOWN_ENTITY"
	ErrCodeFileNotFound      Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// IsFatal reports whether code signals a broken invariant that must abort
// the process rather than be logged and skipped.
func IsFatal(code Code) bool {
	return code == ErrCodeUnknownEditVariable || code == ErrCodeInternalSolver
}

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

// PositionError locates an error inside a constraint expression.
type PositionError struct {
	Expr   string // Source expression
	Offset int    // Byte offset of the offending token
	Reason string
}

// Error implements the error interface.
func (e *PositionError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q", e.Reason, e.Offset, e.Expr)
}

// Code returns the error code for this error type.
func (e *PositionError) Code() Code {
	return ErrCodeInvalidExpression
}
