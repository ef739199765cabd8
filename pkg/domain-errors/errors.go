package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies domain errors so callers can branch without string matching.
type Code string

const (
	// CodeBadRequest covers caller contract violations: malformed thresholds,
	// blank entity IDs, unusable fragment values. Rejected before side effects.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound is returned when a lookup or erasure targets an entity
	// that does not exist. Distinct from success with zero results.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeTooManyRequests is returned when a rate limit denies the request.
	CodeTooManyRequests Code = "too_many_requests"

	// CodeIntegrity flags a detected inconsistency between stored counts and
	// actual rows, or a fragment referencing a missing entity. Must never
	// occur under correct operation; the operation refuses to proceed.
	CodeIntegrity Code = "integrity_violation"

	// CodeInternal wraps persistence and other infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is the domain error carried across service boundaries.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with a stable code and human-readable message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause so infrastructure
// detail survives for logs while callers branch on the code.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps domain error codes to HTTP statuses at the transport edge.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeIntegrity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
