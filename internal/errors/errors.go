// Package errors defines the service error taxonomy shared by services,
// middleware and HTTP handlers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken   ErrorCode = "INVALID_TOKEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeDataCorruption ErrorCode = "DATA_CORRUPTION"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// ServiceError carries the public message and HTTP status of a failure along
// with the underlying cause, which is never shown to callers.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails returns the error with an extra detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Validation reports missing or malformed input.
func Validation(message string) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, message, nil)
}

// Conflict reports a duplicate unique field.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

// Unauthorized reports bad credentials or a missing token.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Unauthorized"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a token that failed verification.
func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "Invalid or expired token", err)
}

// NotFound reports an absent resource. Resources owned by another user are
// reported the same way.
func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, message, nil)
}

// DataCorruption reports a stored payload that could not be decoded.
func DataCorruption(message string, err error) *ServiceError {
	return newError(CodeDataCorruption, http.StatusInternalServerError, message, err)
}

// Internal reports an unexpected failure, usually in persistence.
func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError returns the first ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Code == code
}
