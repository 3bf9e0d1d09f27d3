// Package errors provides structured errors with stable codes for kiwi.
// Codes let callers and tests branch on the failure category without
// matching on message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure category.
type ErrorCode string

const (
	// General
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Registry
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrAlreadyTracked ErrorCode = "ALREADY_TRACKED"
	ErrNotTracked     ErrorCode = "NOT_TRACKED"

	// Package manager
	ErrPackage             ErrorCode = "PACKAGE"
	ErrPackageInstalled    ErrorCode = "PACKAGE_ALREADY_INSTALLED"
	ErrPackageNotInstalled ErrorCode = "PACKAGE_NOT_INSTALLED"
	ErrAdapter             ErrorCode = "ADAPTER"

	// Sync
	ErrSync       ErrorCode = "SYNC"
	ErrSyncNoBase ErrorCode = "SYNC_NO_BASE"

	// Configuration
	ErrConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Persistence
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileWrite  ErrorCode = "FILE_WRITE"
	ErrSerialize  ErrorCode = "SERIALIZE"
)

// remediations maps codes to a short hint the CLI layer prints after
// the error message. Only precondition failures carry one.
var remediations = map[ErrorCode]string{
	ErrNotFound:            "verify the file exists at the given path",
	ErrAlreadyTracked:      "run 'kiwi list' to see tracked files",
	ErrNotTracked:          "run 'kiwi list' to see tracked files",
	ErrPackageInstalled:    "use 'kiwi update' to upgrade an installed package",
	ErrPackageNotInstalled: "use 'kiwi install' to install the package first",
	ErrSyncNoBase:          "run 'kiwi init' to create the managed directory",
	ErrConfigInvalid:       "run 'kiwi config' to inspect the current value",
}

// Error is a structured error with a stable code, optional detail
// fields and an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches two kiwi errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a detail field and returns the error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// Remediation returns the hint associated with the error's code, or ""
// when none exists.
func (e *Error) Remediation() string {
	return remediations[e.Code]
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error under a code. Returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsCode reports whether err (or anything it wraps) is a kiwi Error
// with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or ErrUnknown for non-kiwi errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}
