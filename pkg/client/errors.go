package client

import "fmt"

// APIError represents an error returned by the server itself, as opposed
// to a handler outcome
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsValidationError returns true if the error is a 400 validation error
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == 400
}

// IsRateLimited returns true if the server rejected the request for rate
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if the error is a 5xx server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}
