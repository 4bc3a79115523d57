package utils

import (
	"net/http"
	"runtime/debug"
)

// ApiError is the single error shape handlers raise; the error middleware
// translates it (and anything else) into the HTTP response.
type ApiError struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Reason     string            `json:"reason,omitempty"`    // machine-readable code for auth failures
	Challenge  map[string]string `json:"challenge,omitempty"` // optional auth challenge metadata
	Errors     []string          `json:"errors,omitempty"`
	Stack      string            `json:"-"`
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(statusCode int, message string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

func NewValidationError(errs ...string) *ApiError {
	e := NewApiError(http.StatusUnprocessableEntity, "received data is not valid")
	e.Errors = errs
	return e
}

func NewAuthError(message, reason string, challenge map[string]string) *ApiError {
	e := NewApiError(http.StatusUnauthorized, message)
	e.Reason = reason
	e.Challenge = challenge
	return e
}

func NewNotFoundError(message string) *ApiError {
	return NewApiError(http.StatusNotFound, message)
}

func NewConflictError(message string) *ApiError {
	return NewApiError(http.StatusConflict, message)
}

func NewInternalError(message string) *ApiError {
	return NewApiError(http.StatusInternalServerError, message)
}
