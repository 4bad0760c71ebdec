package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError represents an error returned by an LLM provider API.
type APIError struct {
	// Provider is the name of the LLM provider (e.g., "openai", "anthropic").
	Provider string
	// StatusCode is the HTTP status code returned by the API.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Type is the error type classification from the API.
	Type string
	// Code is the provider-specific error code (if available).
	Code string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient returns true if the error is a transient error that may succeed
// on retry. This includes request timeouts (408), rate limiting (429), server
// errors (5xx), and network errors (StatusCode 0 indicates no HTTP response was received).
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// isTransientError reports whether a provider call may succeed if repeated.
// Caller cancellation is never transient.
func isTransientError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// FailureKind categorizes why classification produced no result.
type FailureKind string

// Failure kinds.
const (
	FailureTransport     FailureKind = "transport"
	FailureTimeout       FailureKind = "timeout"
	FailureAuth          FailureKind = "auth"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureUnparseable   FailureKind = "unparseable"
	FailureEmptyResponse FailureKind = "empty_response"
)

// ClassifierFailure is the typed result of a classification that could not be completed.
// It is an expected outcome, not an exceptional one, so Classify returns it as a value.
type ClassifierFailure struct {
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
	Attempts int         `json:"attempts"`
}

// Error implements the error interface so failures can be logged and wrapped.
func (f *ClassifierFailure) Error() string {
	return fmt.Sprintf("classifier failure (%s after %d attempt(s)): %s", f.Kind, f.Attempts, f.Message)
}

// failureFromError maps a provider or parse error to a ClassifierFailure.
func failureFromError(err error, attempts int) *ClassifierFailure {
	f := &ClassifierFailure{Kind: FailureTransport, Message: err.Error(), Attempts: attempts}

	var apiErr *APIError
	var netErr net.Error
	switch {
	case errors.Is(err, errEmptyResponse):
		f.Kind = FailureEmptyResponse
	case errors.Is(err, errUnparseable):
		f.Kind = FailureUnparseable
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			f.Kind = FailureAuth
		case apiErr.StatusCode == http.StatusTooManyRequests:
			f.Kind = FailureRateLimited
		case apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout:
			f.Kind = FailureTimeout
		}
	case errors.Is(err, context.DeadlineExceeded):
		f.Kind = FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		f.Kind = FailureTimeout
	}
	return f
}
