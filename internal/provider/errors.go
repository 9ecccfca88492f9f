// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind categorizes provider errors for handling and user display.
type Kind int

const (
	KindUnknown Kind = iota

	// KindMissingCredential indicates a provider requiring a secret had
	// none at construction time. It never surfaces at request time: the
	// provider is simply absent from the registry.
	KindMissingCredential

	// KindModelUnavailable indicates the requested provider key is not
	// present in the registry.
	KindModelUnavailable

	// KindTransport indicates a network-level failure (connect, DNS,
	// timeout) before any HTTP status was received.
	KindTransport

	// KindRemoteRejected indicates a non-2xx HTTP status from the vendor.
	KindRemoteRejected

	// KindMalformedResponse indicates a 2xx response whose JSON lacked the
	// expected shape.
	KindMalformedResponse

	// KindAuthRejected and KindQuotaExceeded are refinements of
	// KindRemoteRejected, detected by substring inspection of the vendor
	// error message and remapped to vendor-neutral user text.
	KindAuthRejected
	KindQuotaExceeded
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTransport:
		return "transport_error"
	case KindRemoteRejected:
		return "remote_rejected"
	case KindMalformedResponse:
		return "malformed_response"
	case KindAuthRejected:
		return "auth_rejected"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is the typed error produced by providers and the registry.
// Message is always safe to show to a user.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind, so sentinel comparisons work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// AsError extracts a *Error from err, wrapping unrecognized errors as
// KindUnknown with a generic user message.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{
		Kind:    KindUnknown,
		Message: "The AI service returned an unexpected error.",
		Cause:   err,
	}
}

// =============================================================================
// ERROR CONSTRUCTION
// =============================================================================

func missingCredentialErr(provider string) *Error {
	return &Error{
		Kind:    KindMissingCredential,
		Message: fmt.Sprintf("%s API key is not configured", provider),
	}
}

func transportErr(cause error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: "Unable to reach the AI service. Check your connection and try again.",
		Cause:   cause,
	}
}

func malformedErr(detail string) *Error {
	return &Error{
		Kind:    KindMalformedResponse,
		Message: "The AI service returned a response in an unexpected format.",
		Cause:   errors.New(detail),
	}
}

// remoteErr builds the error for a non-2xx vendor response. The vendor
// message, when present, is first run through the substring classifier so
// auth and quota failures surface with vendor-neutral text; otherwise the
// message is a short human string derived from the payload or the status.
func remoteErr(status int, vendorMessage string) *Error {
	if kind, ok := classifyVendorMessage(vendorMessage); ok {
		return &Error{
			Kind:    kind,
			Message: humanMessage(kind),
			Cause:   fmt.Errorf("HTTP status %d: %s", status, vendorMessage),
		}
	}
	msg := vendorMessage
	if msg == "" {
		msg = fmt.Sprintf("HTTP status %d", status)
	}
	return &Error{
		Kind:    KindRemoteRejected,
		Message: msg,
		Cause:   fmt.Errorf("HTTP status %d", status),
	}
}

func humanMessage(k Kind) string {
	switch k {
	case KindAuthRejected:
		return "The AI service rejected the configured credentials."
	case KindQuotaExceeded:
		return "The AI service usage limit has been reached. Please try again later."
	default:
		return "The AI service returned an unexpected error."
	}
}

// =============================================================================
// VENDOR MESSAGE CLASSIFICATION
// =============================================================================

// classificationRule pairs a lower-case substring with the kind it implies.
type classificationRule struct {
	substr string
	kind   Kind
}

// classificationRules is evaluated top to bottom against the lower-cased
// vendor message; the first match wins. The order is an explicit, tested
// invariant - auth phrasings are checked before quota phrasings because
// several vendors mention limits inside credential errors.
var classificationRules = []classificationRule{
	{"api key", KindAuthRejected},
	{"api_key", KindAuthRejected},
	{"unauthorized", KindAuthRejected},
	{"invalid authentication", KindAuthRejected},
	{"authentication failed", KindAuthRejected},
	{"permission denied", KindAuthRejected},
	{"quota", KindQuotaExceeded},
	{"rate limit", KindQuotaExceeded},
	{"too many requests", KindQuotaExceeded},
	{"resource has been exhausted", KindQuotaExceeded},
	{"overloaded", KindQuotaExceeded},
	{"insufficient credits", KindQuotaExceeded},
}

// classifyVendorMessage maps an upstream error message to a refined kind.
// Returns false when no rule matches.
func classifyVendorMessage(raw string) (Kind, bool) {
	lowered := strings.ToLower(raw)
	for _, rule := range classificationRules {
		if strings.Contains(lowered, rule.substr) {
			return rule.kind, true
		}
	}
	return KindUnknown, false
}
