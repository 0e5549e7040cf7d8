package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryBinding Category = "binding"
	CategoryRuntime Category = "runtime"
	CategoryCLI     Category = "cli"
)

// Error is a structured error with a code, a suggestion and an optional cause.
type Error struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type (config, binding, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is template or code showing the correct approach.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithExample adds an example to the error.
func (e *Error) WithExample(ex string) *Error {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns the first *Error in err's chain, or wraps err in a new
// Error with code.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if ve, ok := As(err); ok {
		return ve
	}
	return New(code).Wrap(err)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ve *Error
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code string) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		if e.Code == code {
			return true
		}
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	}
	return HasCode(stderrors.Unwrap(err), code)
}

// IsConfiguration reports whether err is a construction-time configuration error.
// A missing required value is reported separately by IsRequiredMissing but is also
// a configuration error.
func IsConfiguration(err error) bool {
	ve, ok := As(err)
	return ok && ve.Category == CategoryConfig
}

// IsBinding reports whether err originated from a binding expression.
func IsBinding(err error) bool {
	ve, ok := As(err)
	return ok && ve.Category == CategoryBinding
}

// IsRequiredMissing reports whether err is a missing required prop.
func IsRequiredMissing(err error) bool {
	return HasCode(err, CodeRequiredMissing)
}
