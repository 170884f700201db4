package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	flog "fintrack/internal/log"
	"fintrack/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrDescriptionLength,
	core.ErrInvalidRepetition,
	core.ErrEndBeforeStart,
	core.ErrEmptyUsername,
	auth.ErrWeakPassword,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", flog.FieldError, err)
	}
}

// statusFor maps a service error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, v.Error()
		}
	}
	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, errMalformedBody.Error()
	case errors.Is(err, storage.ErrUsernameTaken):
		return http.StatusConflict, storage.ErrUsernameTaken.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, auth.ErrMissingToken.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, auth.ErrInvalidToken.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		flog.FromContext(r.Context()).Failure(r.Context(), "Request failed", err,
			flog.FieldMethod, r.Method,
			flog.FieldPath, r.URL.Path)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// orEmpty keeps empty collections rendering as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
