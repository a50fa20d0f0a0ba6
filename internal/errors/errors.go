// Package errors defines structured error types for the API.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when a request body or parameter is invalid
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrUnsupportedOperation is returned when the document shape cannot express a write
	ErrUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// ErrPayloadTooLarge is returned when a request body exceeds the configured limit
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrNotFound is returned when a collection or entity is not found
	ErrNotFound ErrorCode = "NOT_FOUND"

	// ErrStorageUnavailable is returned when the data file cannot be read or written
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// ErrMalformedDocument is returned when the data file cannot be decoded
	ErrMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"

	// ErrRateLimited is returned when a client exceeds the write rate limit
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrNotImplemented is returned when a feature is disabled or not implemented
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// Unsupported creates a 400 error for a write the document shape cannot express.
func Unsupported(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrUnsupportedOperation, message)
}

// PayloadTooLarge creates a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, fmt.Sprintf("Request body exceeds %d bytes", limit)).
		WithDetail("limit", limit)
}

// StorageUnavailable creates a 500 error for an unreadable or unwritable data file.
func StorageUnavailable(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrStorageUnavailable, "Data file is unavailable").Wrap(err)
}

// MalformedDocument creates a 500 error for an undecodable data file.
func MalformedDocument(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrMalformedDocument, "Data file is malformed").Wrap(err)
}

// RateLimited creates a 429 Too Many Requests error.
func RateLimited() *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "Too many requests")
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message).Wrap(err)
}

// NotImplemented creates a 501 Not Implemented error.
func NotImplemented(feature string) *APIError {
	return NewAPIError(http.StatusNotImplemented, ErrNotImplemented, fmt.Sprintf("%s is not enabled", feature))
}
