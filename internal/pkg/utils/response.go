package utils

import (
	"encoding/json"
	"net/http"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
)

// SuccessResponse wraps the data returned by the informational endpoints
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is written when a request never reaches a handler
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the AppError code and message
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes data with the given status
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess wraps data in a SuccessResponse
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// WriteError writes an AppError using its own status code
func WriteError(w http.ResponseWriter, err *errors.AppError) error {
	return WriteJSON(w, err.StatusCode, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	})
}

// WriteFailure writes err as an AppError, wrapping anything else as an
// internal error described by message.
func WriteFailure(w http.ResponseWriter, err error, message string) error {
	if appErr, ok := errors.As(err); ok {
		return WriteError(w, appErr)
	}
	return WriteError(w, errors.Internal(message, err))
}

// WriteInvocation writes a handler response unwrapped, with the HTTP status
// taken from its statusCode.
func WriteInvocation(w http.ResponseWriter, resp report.Response) error {
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return WriteJSON(w, status, resp)
}
