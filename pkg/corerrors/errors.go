// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package corerrors defines the structured error kinds the router's
// components use instead of ad hoc error strings, so the router's fallback
// logic can switch on kind rather than inspect message text.
package corerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of failure.
type Kind string

const (
	// InvalidInput is returned synchronously for empty/oversized
	// arguments and is never retried or counted as a failure.
	InvalidInput Kind = "invalid_input"
	// Timeout is a per-call deadline breach.
	Timeout Kind = "timeout"
	// ProviderUnavailable covers adapter transport errors, 5xx
	// responses, and failed health checks.
	ProviderUnavailable Kind = "provider_unavailable"
	// ModelLoadFailed is a lifecycle transition to ERROR.
	ModelLoadFailed Kind = "model_load_failed"
	// ResourceExhausted means a new model cannot be admitted because of
	// concurrency or memory thresholds.
	ResourceExhausted Kind = "resource_exhausted"
	// BackendUnavailable is a durable context-backend failure. Handled
	// internally by falling back to the in-process store; surfaced only
	// if the fallback also fails.
	BackendUnavailable Kind = "backend_unavailable"
	// AllProvidersFailed is the terminal failover-chain failure; the
	// only kind that reaches the external caller as an error.
	AllProvidersFailed Kind = "all_providers_failed"
)

// Error is the structured error value every component returns. It
// implements error and Unwrap so callers can use errors.Is/As on the
// wrapped cause while switching on Kind for control flow.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not a *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NewInvalidInput(message string) *Error { return newErr(InvalidInput, message, nil) }

func NewTimeout(message string, cause error) *Error { return newErr(Timeout, message, cause) }

func NewProviderUnavailable(message string, cause error) *Error {
	return newErr(ProviderUnavailable, message, cause)
}

func NewModelLoadFailed(message string, cause error) *Error {
	return newErr(ModelLoadFailed, message, cause)
}

func NewResourceExhausted(message string) *Error { return newErr(ResourceExhausted, message, nil) }

func NewBackendUnavailable(message string, cause error) *Error {
	return newErr(BackendUnavailable, message, cause)
}

func NewAllProvidersFailed(message string) *Error {
	return newErr(AllProvidersFailed, message, nil)
}

// Retryable reports whether the router's fallback policy should try the
// next tier/provider for this kind, per §7's propagation policy.
func Retryable(kind Kind) bool {
	switch kind {
	case Timeout, ProviderUnavailable, ModelLoadFailed, ResourceExhausted:
		return true
	default:
		return false
	}
}
