// Package apperrors defines the error taxonomy shared by the data sources,
// the orchestrator and the GraphQL transport.
package apperrors

import "errors"

// Code is a machine-readable error class.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeInternal            Code = "INTERNAL"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthenticated     = &Error{Code: CodeUnauthenticated, Message: "unauthenticated"}
	ErrUpstreamUnavailable = &Error{Code: CodeUpstreamUnavailable, Message: "upstream unavailable"}
	ErrInvalidArgument     = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// Error is a classified error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Extensions is picked up by the GraphQL executor and rendered in the
// error entry of the response.
func (e *Error) Extensions() map[string]any {
	return map[string]any{"code": string(e.Code)}
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with a code and message that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
