package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON and every JSON error through
// writeError, so the error body always has the same shape:
//
//	{"error": "unauthenticated", "message": "ログインしてから投稿してね🥺"}
//
// Page handlers use statusOf to pick the status of a re-rendered page.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/backend"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // user-facing text
}

// writeJSON sends data as JSON. Headers and status go out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that is left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusOf maps a domain error to an HTTP status and an error kind.
//
// ERROR MAPPING:
//
//	ErrValidation         → 400 validation_error
//	ErrUnauthenticated    → 401 unauthenticated
//	ErrInvalidCredentials → 401 unauthenticated
//	ErrForbidden          → 403 forbidden
//	ErrNotFound           → 404 not_found
//	ErrConflict           → 409 conflict
//	ErrAlreadyRegistered  → 409 conflict
//	ErrUnavailable        → 503 unavailable
//	anything else         → 500 internal_error
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated), errors.Is(err, backend.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, backend.ErrAlreadyRegistered):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}

	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		// A provider rejection without a known sentinel is still the
		// caller's input being refused.
		return http.StatusBadRequest, "validation_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError sends err as an ErrorResponse.
//
// Only AppError and AuthError messages are shown. Anything else may carry
// SQL, URLs or file paths, so it becomes a generic 500.
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusOf(err)

	var appErr *apperror.AppError
	var authErr *backend.AuthError
	msg := "An internal error occurred"
	switch {
	case errors.As(err, &appErr):
		msg = appErr.Message
	case errors.As(err, &authErr):
		msg = authErr.Message
	default:
		status, kind = http.StatusInternalServerError, "internal_error"
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}
