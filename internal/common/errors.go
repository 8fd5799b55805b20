package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest builds a 400 AppError.
func BadRequest(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadRequest, nil)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// UpstreamError is implemented by errors that carry a status reported by a
// remote service.
type UpstreamError interface {
	error
	UpstreamStatus() int
	UpstreamCode() string
	UpstreamMessage() string
}

// WriteError renders err using the canonical error envelope. Upstream 4xx
// responses are echoed; upstream 5xx and transport failures become 502.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	var up UpstreamError
	if errors.As(err, &up) {
		status := up.UpstreamStatus()
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		code := up.UpstreamCode()
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		JSONError(w, status, code, up.UpstreamMessage(), nil)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
