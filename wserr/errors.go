// Package wserr provides the error taxonomy for the connection layer.
//
// Every error crossing a package boundary carries a Code identifying the
// stage that failed, so callers can decide whether a retry makes sense
// without string-matching messages. Errors support errors.Is / errors.As
// and error chains via Unwrap.
package wserr

import (
	"errors"
	"fmt"
)

// Code identifies the connection stage or condition an error belongs to.
type Code string

const (
	// Connection establishment stages, in pipeline order.
	CodeInvalidURL       Code = "INVALID_URL"
	CodeProxyUnreachable Code = "PROXY_UNREACHABLE"
	CodeProxyHandshake   Code = "PROXY_HANDSHAKE_FAILED"
	CodeProxyUnsupported Code = "PROXY_UNSUPPORTED"
	CodeTLSHandshake     Code = "TLS_HANDSHAKE_FAILED"
	CodeWSHandshake      Code = "WEBSOCKET_HANDSHAKE_FAILED"
	CodeTimeout          Code = "TIMEOUT"

	// Steady-state conditions after the session is open.
	CodeIO           Code = "IO_ERROR"
	CodeOverflow     Code = "BUFFER_OVERFLOW"
	CodeStreamClosed Code = "STREAM_CLOSED"
	CodeInvalidClose Code = "INVALID_CLOSE"

	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is the unified error type of this library.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Unwrap.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compares by code, so sentinels match wrapped instances.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an underlying error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an underlying error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode extracts the code from an error chain.
// Errors that did not originate here report CodeInternal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsRetryable reports whether the failure is transient: the peer or the
// network misbehaved in a way that a fresh connect attempt may not hit
// again. Handshake rejections and validation failures are not retryable.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case CodeProxyUnreachable, CodeTimeout, CodeIO:
		return true
	default:
		return false
	}
}

// Is re-exports errors.Is.
var Is = errors.Is

// As re-exports errors.As.
var As = errors.As
