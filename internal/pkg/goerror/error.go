// Package goerror defines the error taxonomy shared by every collaborator
// boundary. Callers branch on the stable Code instead of matching message
// strings; the HTTP layer maps codes to status codes in exactly one place.
package goerror

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that the request conflicts with existing state.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into high-level buckets.
type Type int

const (
	// TypeServer represents infrastructure failures. Details stay server-side.
	TypeServer Type = iota
	// TypeBusiness represents expected business outcomes surfaced as errors.
	TypeBusiness
	// TypeValidation represents input validation failures.
	TypeValidation
)

// Code is a stable identifier used to map errors to HTTP status codes.
type Code int

const (
	// CodeInternal represents an internal or unspecified error.
	CodeInternal Code = iota
	// CodeInvalidFormat indicates a malformed request body.
	CodeInvalidFormat
	// CodeInvalidInput indicates a well-formed body with invalid values.
	CodeInvalidInput
	// CodeNotFound indicates a missing resource.
	CodeNotFound
	// CodeConflict indicates a conflict (e.g. duplicate).
	CodeConflict
	// CodeTooManyRequest indicates rate limiting or lockout.
	CodeTooManyRequest
	// CodeUnauthorized indicates authentication or verification failure.
	CodeUnauthorized
	// CodeForbidden indicates authorization failure.
	CodeForbidden
	// CodeUnavailable indicates a required upstream dependency failed.
	CodeUnavailable
)

// Error is the structured error carried between layers. It wraps an optional
// underlying error together with a user-facing message, a Type, a Code and
// optional per-field details.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.msg != "" {
		return e.msg
	}
	return "unknown error"
}

// Msg returns the user-facing message.
func (e *Error) Msg() string {
	return e.msg
}

// Type returns the high-level error bucket.
func (e *Error) Type() Type {
	return e.errType
}

// Code returns the stable error code.
func (e *Error) Code() Code {
	return e.code
}

// Fields returns extra per-field details, if any.
func (e *Error) Fields() map[string]string {
	return e.fields
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.code {
	case CodeInvalidFormat:
		return http.StatusBadRequest
	case CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequest:
		return http.StatusTooManyRequests
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewServer wraps an infrastructure failure. The wrapped error is logged
// server-side; clients only ever see a generic message.
func NewServer(err error) error {
	return &Error{err: err, msg: "Internal server error", errType: TypeServer, code: CodeInternal}
}

// NewBusiness creates a business-outcome error with a message and code.
func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code}
}

// NewBusinessFields creates a business-outcome error carrying per-field
// details (key/value pairs) for the response envelope.
func NewBusinessFields(msg string, code Code, kv ...string) error {
	e := &Error{msg: msg, errType: TypeBusiness, code: code, fields: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}
	return e
}

// NewInvalidInput wraps a validation error produced by the validator.
func NewInvalidInput(err error) error {
	return &Error{err: err, msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput}
}

// NewInvalidFormat creates a validation error for a malformed request body.
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return &Error{msg: msg, errType: TypeValidation, code: CodeInvalidFormat}
}
