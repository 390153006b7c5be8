package common

import "errors"

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code        string
	Message     string
	HTTPStatus  int
	Err         error
	FieldErrors map[string]string
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

// NewValidationError constructs a 400 AppError carrying per-field messages.
func NewValidationError(message string, fieldErrors map[string]string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, HTTPStatus: 400, FieldErrors: fieldErrors}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
