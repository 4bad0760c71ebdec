// Package resilience classifies activity errors and supplies the retry
// policies and step execution helper used by the triage workflows.
package resilience

import (
	"errors"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// ErrorCategory classifies errors into workflow-level categories that
// determine whether Temporal should retry an activity.
type ErrorCategory int

const (
	// Transient errors are temporary failures retried with exponential backoff
	// (network errors, timeouts, an unavailable store).
	Transient ErrorCategory = iota

	// Permanent errors cannot succeed on retry. They halt the step immediately.
	Permanent
)

// String returns a human-readable name for the category.
func (c ErrorCategory) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Application error types raised by triage activities.
const (
	ErrTypeTicketNotFound    = "TicketNotFound"
	ErrTypeHandlerNotFound   = "HandlerNotFound"
	ErrTypeUserNotFound      = "UserNotFound"
	ErrTypeInvalidInput      = "InvalidInput"
	ErrTypeInvalidTransition = "InvalidTransition"
)

// NonRetryableErrorTypes lists the application error types no retry policy may retry.
var NonRetryableErrorTypes = []string{
	ErrTypeTicketNotFound,
	ErrTypeHandlerNotFound,
	ErrTypeUserNotFound,
	ErrTypeInvalidInput,
	ErrTypeInvalidTransition,
}

// transientSubstrings are error message substrings that indicate a transient failure
// when the error is not already classified by a structured error type.
var transientSubstrings = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"too many connections",
	"service unavailable",
	"temporary",
	"deadline exceeded",
	"i/o timeout",
}

// permanentSubstrings indicate a permanent failure. "not found" is matched
// only after the structured checks, so a wrapped NotFoundError never gets here.
var permanentSubstrings = []string{
	"not found",
	"invalid input",
	"validation error",
	"cannot move ticket",
}

// Classify inspects err and returns its ErrorCategory.
//
// Classification priority:
//  1. Nil errors: Permanent (callers should not retry nil)
//  2. Temporal ApplicationError: NonRetryable flag or a known type
//  3. Domain sentinel errors
//  4. Error message substring matching, transient first
//  5. Default: Transient
func Classify(err error) ErrorCategory {
	if err == nil {
		return Permanent
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if appErr.NonRetryable() || isNonRetryableType(appErr.Type()) {
			return Permanent
		}
	}

	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrServiceUnavailable) {
		return Transient
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrAlreadyExists) {
		return Permanent
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range transientSubstrings {
		if strings.Contains(msg, sub) {
			return Transient
		}
	}
	for _, sub := range permanentSubstrings {
		if strings.Contains(msg, sub) {
			return Permanent
		}
	}

	return Transient
}

// ToActivityError converts a domain error returned inside an activity into the
// error handed back to Temporal. Permanent domain errors become non-retryable
// application errors carrying one of the ErrType constants; everything else is
// returned unchanged so the activity retry policy applies.
func ToActivityError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return err
	}

	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &nf):
		errType := ErrTypeTicketNotFound
		if nf.Entity == "user" {
			errType = ErrTypeUserNotFound
		}
		return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidTransition, err)
	case errors.Is(err, domain.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	}
	return err
}

// HandlerNotFound reports a handler that vanished between selection and assignment.
func HandlerNotFound(err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeHandlerNotFound, err)
}

// ErrorType returns the application error type carried by err, or "".
func ErrorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type()
	}
	return ""
}

func isNonRetryableType(t string) bool {
	for _, nr := range NonRetryableErrorTypes {
		if nr == t {
			return true
		}
	}
	return false
}
