package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is an automation failure that carries the status code reported
// back to the invoking framework.
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Error codes
const (
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeMalformed     = "MALFORMED_EVENT"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeProviderAPI   = "PROVIDER_API_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// ClientError reports whether the error is the caller's fault.
func (e *AppError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// MalformedEvent is returned when a required field is missing from the
// inbound payload. Redelivery cannot fix it, so it maps to 400.
func MalformedEvent(message string, details interface{}) *AppError {
	return New(ErrCodeMalformed, message, http.StatusBadRequest).WithDetails(details)
}

// Configuration reports a missing or invalid environment setting.
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message, http.StatusInternalServerError)
}

// ExternalService wraps a failure returned by a provider API.
func ExternalService(service string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI,
		fmt.Sprintf("%s request failed: %v", service, err),
		http.StatusInternalServerError)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// RateLimited creates a rate limit error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
