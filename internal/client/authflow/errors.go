// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package authflow

import "errors"

// # Failure Taxonomy

// Kind is a machine-checkable classification of an authentication failure.
// Callers branch on the Kind; the Message is what they show the user.
type Kind string

const (
	// KindValidation marks input refused locally, before any network call.
	KindValidation Kind = "VALIDATION"

	// KindRejectedCredentials marks a definitive server-side rejection of the
	// supplied identifier/secret pair. Never retried.
	KindRejectedCredentials Kind = "REJECTED_CREDENTIALS"

	// KindVerificationRequired marks an unverified account that must supply a
	// second-factor code before a session can be established.
	KindVerificationRequired Kind = "VERIFICATION_REQUIRED"

	// KindInvalidVerificationCode marks a supplied code that did not match.
	KindInvalidVerificationCode Kind = "INVALID_VERIFICATION_CODE"

	// KindVerificationExpired marks a code whose server-side lifetime lapsed.
	KindVerificationExpired Kind = "VERIFICATION_EXPIRED"

	// KindTransport marks network faults, empty responses, and payloads that
	// could not be parsed. Network faults and empty bodies are retried up to
	// the attempt limit; malformed payloads are terminal.
	KindTransport Kind = "TRANSPORT"
)

// # Flow Errors

// FlowError carries a user-displayable message plus the machine-checkable
// Kind for every failure surfaced by the controller.
type FlowError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the standard error interface.
func (flowError *FlowError) Error() string {
	return flowError.Message
}

// Unwrap exposes the underlying cause for [errors.Is] / [errors.As] chains.
func (flowError *FlowError) Unwrap() error {
	return flowError.Cause
}

// newFlowError builds a [FlowError] without a cause.
func newFlowError(kind Kind, message string) *FlowError {
	return &FlowError{Kind: kind, Message: message}
}

// # Sentinels

// ErrAttemptInFlight is returned when a submission is started while another
// submission from the same controller has not yet reached a terminal outcome.
var ErrAttemptInFlight = errors.New("authflow: a login attempt is already in flight")

// ErrNoSession is returned by session stores when no session is persisted.
var ErrNoSession = errors.New("authflow: no session stored")
