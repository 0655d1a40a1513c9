package errors

import (
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping and metrics
type Kind string

const (
	// Input errors (400)
	KindMissingField    Kind = "missing_field"
	KindOutOfRange      Kind = "out_of_range"
	KindTooLong         Kind = "too_long"
	KindTooMany         Kind = "too_many"
	KindTooLarge        Kind = "too_large"
	KindUnsupportedType Kind = "unsupported_type"
	KindInvalidFormat   Kind = "invalid_format"
	KindInvalidBody     Kind = "invalid_body"
	KindConflict        Kind = "conflict"

	// Credential errors (401)
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"

	// Resource errors (404)
	KindNotFound Kind = "not_found"

	// Server errors (500)
	KindStoreFailure Kind = "store_failure"
)

// APIError is a client-facing error. Message is natural-language text safe to show to users.
type APIError struct {
	Kind       Kind   `json:"-"`
	Message    string `json:"error"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is an APIError of the same kind, so sentinel
// values like ErrNotFound can be matched with errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ErrorResponse is the body written for every failed JSON request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusForKind maps an error kind to its HTTP status code
func StatusForKind(kind Kind) int {
	switch kind {
	case KindMissingField, KindOutOfRange, KindTooLong, KindTooMany, KindTooLarge,
		KindUnsupportedType, KindInvalidFormat, KindInvalidBody, KindConflict:
		return http.StatusBadRequest
	case KindUnauthenticated, KindForbidden:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New creates an APIError with the status derived from its kind
func New(kind Kind, message string) *APIError {
	return &APIError{
		Kind:       kind,
		Message:    message,
		HTTPStatus: StatusForKind(kind),
	}
}

// Sentinels for errors.Is matching; only Kind is compared.
var (
	ErrMissingField    = New(KindMissingField, "A required field is missing")
	ErrOutOfRange      = New(KindOutOfRange, "A value is out of range")
	ErrTooLong         = New(KindTooLong, "A value is too long")
	ErrTooMany         = New(KindTooMany, "Too many items")
	ErrTooLarge        = New(KindTooLarge, "Payload is too large")
	ErrUnsupportedType = New(KindUnsupportedType, "Unsupported content type")
	ErrInvalidFormat   = New(KindInvalidFormat, "A value has an invalid format")
	ErrInvalidBody     = New(KindInvalidBody, "Invalid request body")
	ErrConflict        = New(KindConflict, "Resource already exists")
	ErrUnauthenticated = New(KindUnauthenticated, "Please enter your username and password")
	ErrForbidden       = New(KindForbidden, "Incorrect username or password")
	ErrNotFound        = New(KindNotFound, "Not found")
)

// NewStoreFailure creates the generic 500 error returned when a store call fails.
// The underlying cause is logged by the caller and never placed in the message.
func NewStoreFailure(message string) *APIError {
	return New(KindStoreFailure, message)
}

// NewInvalidBodyError creates an invalid request body error
func NewInvalidBodyError(message string) *APIError {
	return New(KindInvalidBody, message)
}

// IsClientError reports whether the error is a 4xx error
func IsClientError(err *APIError) bool {
	return err.HTTPStatus >= 400 && err.HTTPStatus < 500
}

// IsServerError reports whether the error is a 5xx error
func IsServerError(err *APIError) bool {
	return err.HTTPStatus >= 500
}
