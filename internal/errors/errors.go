package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Stable error codes returned by the operation pipeline. The transport
// layer maps these to HTTP statuses; the pipeline itself never deals in
// status codes.
const (
	CodeUnknownOperation = "UNKNOWN_OPERATION"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Error is a structured, code-carrying error. It is the only error shape
// the proxy exposes to callers: a short human-readable message, a stable
// code and optional details. Raw internal error text never leaks through it.
type Error struct {
	Message string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Render implements the render.Renderer interface for chi/render.
func (e *Error) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, HTTPStatus(e.Code))
	return nil
}

// FieldError describes a single payload validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewWithDetails creates an Error carrying additional details.
func NewWithDetails(code, message string, details map[string]interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// UnknownOperation reports an operation name that is not in the registry.
// Details carry the full set of valid operation names.
func UnknownOperation(name string, valid []string) *Error {
	return NewWithDetails(
		CodeUnknownOperation,
		fmt.Sprintf("Unknown operationType: %s", name),
		map[string]interface{}{"valid_operations": valid},
	)
}

// Validation reports a payload that failed its declared shape.
func Validation(fieldErrors []FieldError) *Error {
	return NewWithDetails(
		CodeValidation,
		"Payload validation failed",
		map[string]interface{}{"validation_errors": fieldErrors},
	)
}

// Upstream reports a provider call that failed after retries were exhausted
// or with a non-retryable error.
func Upstream(message string) *Error {
	return NewWithDetails(
		CodeUpstream,
		"Upstream API failed",
		map[string]interface{}{"message": message},
	)
}

// Internal reports a response normalization failure. This is a contract bug
// between adapter and schema, not an upstream outage, and is never retried.
func Internal(message string) *Error {
	return NewWithDetails(
		CodeInternal,
		"Internal response normalization error",
		map[string]interface{}{"message": message},
	)
}

// HTTPStatus maps an error code to the HTTP status the transport should
// respond with. Unrecognized codes default to 400.
func HTTPStatus(code string) int {
	switch code {
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadRequest
	}
}

// AsError returns err as an *Error, wrapping unexpected error types as an
// internal error so handlers always have a renderable shape.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal(err.Error())
}
