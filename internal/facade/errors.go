// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package facade

import (
	"errors"
	"fmt"
)

// Code is a stable error code surfaced to callers. Transport shells
// map codes to their own status conventions.
type Code string

const (
	// CodeValidation means the input failed schema or bound checks.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeNotFound means the session or user has no state for an
	// operation that requires it.
	CodeNotFound Code = "NOT_FOUND"
	// CodeForbidden means the caller identity does not match the
	// requested user.
	CodeForbidden Code = "FORBIDDEN"
	// CodeUpstreamTimeout means the catalog or persistence layer
	// did not answer within the request deadline.
	CodeUpstreamTimeout Code = "UPSTREAM_TIMEOUT"
	// CodeUpstreamError means the catalog or persistence layer
	// failed.
	CodeUpstreamError Code = "UPSTREAM_ERROR"
	// CodeInternal means an invariant was violated.
	CodeInternal Code = "INTERNAL"
)

// Error carries a taxonomy code alongside a message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a facade error with the given code.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a taxonomy code to an underlying error.
func WrapError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the taxonomy code from an error chain, defaulting
// to CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInternal
}
