package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"messbook/internal/core"
	applog "messbook/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps the domain error taxonomy to HTTP status codes. The
// error text is returned as-is; internal failures are masked and logged
// through the request-scoped logger.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed", "error", err)
		msg = "internal error"
	}
	respondJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoChange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
