// Package gwerrors defines the gateway's caller-visible error taxonomy.
// Components return sentinel-wrapped *Error values instead of ad hoc
// strings so the Gateway can make explicit fallback-vs-surface decisions
// and an external transport can map a Kind to a status code.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the caller-visible error categories.
type Kind string

const (
	NotInitialized Kind = "not_initialized"
	InvalidRequest Kind = "invalid_request"
	RateLimited    Kind = "rate_limited"
	BudgetExceeded Kind = "budget_exceeded"
	NoHealthyModel Kind = "no_healthy_model"
	Timeout        Kind = "timeout"
	ProviderError  Kind = "provider_error"
	Internal       Kind = "internal"
)

// Error is the gateway's caller-visible error type. Details carries
// structured context (e.g. deciding limit / current usage for a denial).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// use errors.Is(err, gwerrors.New(gwerrors.BudgetExceeded, "")) or compare
// against the sentinel Kind directly via KindOf.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches structured detail fields and returns the receiver
// for chaining at the construction site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting
// to Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
