// Package fault classifies failures so callers can present differentiated
// guidance instead of a generic error banner.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure class.
type Kind string

const (
	// NotFound means a template or catalog entry does not exist. Not retried.
	NotFound Kind = "not_found"
	// Unavailable means the catalog or generation backend could not be
	// reached. Retry is a manual user action, never automatic.
	Unavailable Kind = "unavailable"
	// InvalidInput is a precondition violation caught before any network
	// effect (missing required role, empty character selection, empty topic).
	InvalidInput Kind = "invalid_input"
	// ContentTooLong means the backend rejected the request because the
	// generated content would exceed a length bound.
	ContentTooLong Kind = "content_too_long"
	// Timeout means the backend call did not complete in the expected window.
	Timeout Kind = "timeout"
	// Canceled means the caller aborted an in-flight job.
	Canceled Kind = "canceled"
	// Unknown is the catch-all for unclassified backend failures.
	Unknown Kind = "unknown"
)

// Error pairs a Kind with an underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf formats a new classified error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, mapping context errors to their
// taxonomy entries. Unclassified errors report Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	if errors.Is(err, context.Canceled) {
		return Canceled
	}
	return Unknown
}

// HTTPStatus maps a Kind onto the status code handlers should answer with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case InvalidInput, ContentTooLong:
		return http.StatusBadRequest
	case Timeout:
		return http.StatusGatewayTimeout
	case Unavailable:
		return http.StatusBadGateway
	case Canceled:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}
