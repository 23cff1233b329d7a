package utils

import (
	"encoding/json"
	"net/http"

	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// AuthInfo is the session block carried by collection envelopes. The
// API runs unauthenticated behind the perimeter, so the block is
// static.
type AuthInfo struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user,omitempty"`
}

// ListResponse is the envelope returned by collection endpoints.
type ListResponse struct {
	Auth  AuthInfo    `json:"auth"`
	Page  int         `json:"page"`
	Total int64       `json:"total"`
	Count int         `json:"count"`
	Items interface{} `json:"items"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// WriteSuccessWithMessage writes a successful JSON response with a message
func WriteSuccessWithMessage(w http.ResponseWriter, status int, message string, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteList writes a paginated collection envelope.
func WriteList(w http.ResponseWriter, page, count int, total int64, items interface{}) error {
	return WriteJSON(w, http.StatusOK, ListResponse{
		Auth:  AuthInfo{Authenticated: true},
		Page:  page,
		Total: total,
		Count: count,
		Items: items,
	})
}

// WriteError writes an error JSON response from AppError
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

// WriteErrorMessage writes a simple error message
func WriteErrorMessage(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
