// Package domainerrors provides coded application errors. Services translate
// infrastructure sentinels and validation failures into these so transports
// can map them to wire responses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and for HTTP mapping.
type Code string

const (
	// CodeInvalidInput marks malformed or out-of-range input, rejected
	// before any mutation.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a missing case, responder, or user.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a lost optimistic-concurrency race; callers may
	// re-read and retry.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing or failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller acting outside its role.
	CodeForbidden Code = "forbidden"
	// CodeCryptoFailure marks any failed signature, MAC, AEAD tag, or
	// password check. The message never carries key material.
	CodeCryptoFailure Code = "crypto_failure"
	// CodeInternal marks infrastructure failures on the critical path.
	CodeInternal Code = "internal"
)

// Error is the coded error type carried across service boundaries.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the Code from an error chain, defaulting to CodeInternal
// for errors that never passed through this package.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}
