package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the error payload returned by the API:
// {"code": ..., "message": ..., "fieldErrors": {...}}.
type ErrorBody struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, fieldErrors map[string]string) {
	JSON(w, status, ErrorBody{
		Code:        code,
		Message:     message,
		FieldErrors: fieldErrors,
	})
}

// WriteError translates an error into the canonical envelope. AppErrors keep
// their code, status and field messages; anything else becomes a 500.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		message := appErr.Message
		if message == "" {
			message = appErr.Error()
		}
		JSONError(w, status, code, message, appErr.FieldErrors)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
