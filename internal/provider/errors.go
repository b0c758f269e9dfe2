package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies fetch failures. The string values appear verbatim in
// the snapshot JSON, so they are part of the wire format.
type ErrorKind string

const (
	KindAuth        ErrorKind = "AuthError"
	KindTimeout     ErrorKind = "Timeout"
	KindRateLimited ErrorKind = "RateLimited"
	KindUnsupported ErrorKind = "Unsupported"
	KindTransient   ErrorKind = "TransientNetworkError"
	KindUnexpected  ErrorKind = "UnexpectedResponse"
	KindCacheWrite  ErrorKind = "CacheWriteError"
	KindNoProviders ErrorKind = "NoProvidersConfigured"
)

// Retryable reports whether a fetch that failed with this kind is worth
// repeating. Auth and schema failures will not heal on retry.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient || k == KindRateLimited
}

type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(providerID string, kind ErrorKind, err error) *Error {
	return &Error{Provider: providerID, Kind: kind, Err: err}
}

// KindOf extracts the error kind from err, classifying bare transport
// errors on the way. Anything unrecognized counts as an unexpected response.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return KindTimeout
		}
		return KindTransient
	}
	return KindUnexpected
}

// Transport wraps a failed round trip: timeouts (including an expired
// context deadline) map to Timeout, everything else to
// TransientNetworkError.
func Transport(providerID string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(providerID, KindTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return NewError(providerID, KindTimeout, err)
	}
	return NewError(providerID, KindTransient, err)
}

// FromStatus maps a non-2xx HTTP status onto the error taxonomy.
func FromStatus(providerID string, status int, body []byte) *Error {
	err := fmt.Errorf("unexpected status code: %d: %s", status, truncate(body, 160))
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(providerID, KindAuth, err)
	case http.StatusTooManyRequests:
		return NewError(providerID, KindRateLimited, err)
	default:
		return NewError(providerID, KindUnexpected, err)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
