package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig    = "CONFIG"
	ErrDirectory = "DIRECTORY"
	ErrTransport = "TRANSPORT"
	ErrExport    = "EXPORT"
)

// Error is a caller-facing failure with a code, what went wrong, how to fix it,
// and the underlying cause. It renders as:
//
//	✗ <What failed>
//
//	  <Cause>
//
//	  <Suggestion>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrTransport code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrTransport,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var fmErr *Error
	if errors.As(err, &fmErr) {
		return fmErr.Code == code
	}
	return false
}

// Brief returns a single-line description of err. Structured errors
// collapse to "message: cause" so they fit in a table cell or a log field.
func Brief(err error) string {
	if err == nil {
		return ""
	}
	var fmErr *Error
	if !errors.As(err, &fmErr) {
		return strings.TrimSpace(err.Error())
	}
	if fmErr.Cause == nil {
		return fmErr.Message
	}
	return fmErr.Message + ": " + Brief(fmErr.Cause)
}
