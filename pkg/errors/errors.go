// Package errors provides structured error types for ergraph.
//
// Every pipeline stage reports failures as an [*Error] carrying a machine-readable
// [Code]. Codes let the CLI and the HTTP API decide severity and status codes
// without string matching:
//
//	err := errors.New(errors.ErrCodeMissingRequired, "person %q: missing %q", id, attr)
//	if errors.Is(err, errors.ErrCodeMissingRequired) {
//	    // input does not conform to its schema
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read %s", path)
//
// # Severity
//
// Structural errors raised while loading or exporting (missing required
// attribute, invalid reference shape, unsupported attribute type, unexpected
// object kind, broken reference) abort the stage that raised them. Unresolved
// references found by the integrity checker are collected and handed back to
// the caller, which decides whether they are fatal.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Schema and input conformance errors
	ErrCodeSchema           Code = "SCHEMA_ERROR"
	ErrCodeMissingRequired  Code = "MISSING_REQUIRED_ATTRIBUTE"
	ErrCodeInvalidReference Code = "INVALID_REFERENCE_SHAPE"
	ErrCodeDuplicateEntity  Code = "DUPLICATE_ENTITY"
	ErrCodeUnresolved       Code = "UNRESOLVED_REFERENCE"
	ErrCodeBrokenReference  Code = "BROKEN_REFERENCE"
	ErrCodeUnsupportedType  Code = "UNSUPPORTED_ATTRIBUTE_TYPE"
	ErrCodeUnexpectedObject Code = "UNEXPECTED_OBJECT_KIND"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	// Resource errors
	ErrCodeIO       Code = "IO_ERROR"
	ErrCodeNotFound Code = "NOT_FOUND"

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

// Is reports whether any *Error in err's chain carries the given code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
