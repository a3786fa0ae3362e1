// Package errors provides the structured error surface shared by every
// depscope component.
//
// The set of codes is closed: callers can rely on [GetCode] returning one of
// the constants below (or the empty string for foreign errors) and use
// [Is] to branch on, for example, a missing package versus a network outage.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "package %s", name)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // suggest a search instead
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
//
//	// Attach a remediation hint
//	err := errors.New(errors.ErrCodeToolFailed, "cargo-audit not installed").
//	    WithHint("cargo install cargo-audit")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// ErrCodeNotFound: a package, version or file does not exist.
	ErrCodeNotFound Code = "NOT_FOUND"

	// ErrCodeParse: a manifest, lockfile or remote payload could not be decoded.
	ErrCodeParse Code = "PARSE_ERROR"

	// ErrCodeToolFailed: an external tool (cargo audit, npm audit) failed
	// or is not installed.
	ErrCodeToolFailed Code = "TOOL_FAILED"

	// ErrCodeNetwork: transport failure or an unexpected HTTP status.
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// ErrCodeIO: local filesystem failure.
	ErrCodeIO Code = "IO_ERROR"

	// ErrCodeDecompress: a compressed archive could not be inflated.
	ErrCodeDecompress Code = "DECOMPRESS_ERROR"

	// ErrCodeUnsupported: the operation is not offered by this backend.
	ErrCodeUnsupported Code = "UNSUPPORTED"

	// ErrCodeInvalidInput: the caller passed an unusable argument.
	ErrCodeInvalidInput Code = "INVALID_INPUT"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Hint    string // Remediation suggestion (optional)
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

// WithHint sets a remediation hint and returns e for chaining.
func (e *Error) WithHint(format string, args ...any) *Error {
	e.Hint = fmt.Sprintf(format, args...)
	return e
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

// NotFound is shorthand for New(ErrCodeNotFound, ...).
func NotFound(format string, args ...any) *Error {
	return New(ErrCodeNotFound, format, args...)
}

// Parse is shorthand for Wrap(ErrCodeParse, ...).
func Parse(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeParse, cause, format, args...)
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

// As is [errors.As] from the standard library, re-exported so callers need
// only one errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
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

// GetHint returns the first non-empty hint found in the error chain.
func GetHint(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Hint != "" {
			return e.Hint
		}
		err = e.Cause
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
