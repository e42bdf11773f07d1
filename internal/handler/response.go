package handler

// RESPONSE HELPERS:
// Every JSON answer goes through writeJSON and every failure through
// writeError, so the browser sees one error shape for all endpoints:
//
//	{"error": "Not Found", "details": [...], "ghStatus": 404}
//
// details and ghStatus only appear when GitHub produced the failure.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/access-git/internal/apperror"
)

// ErrorResponse is the error body returned by every API endpoint.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Details  []apperror.Detail `json:"details,omitempty"`
	GHStatus int               `json:"ghStatus,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body; anything set after the
// first Write is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeMessage is the {"message": ...} body used by topic mutations.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps a service error to an HTTP status and body.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrUpstream     → GitHub's own status (502 when there was no answer)
//	anything else   → 500 with a generic message
//
// ORDER:
// Unauthorized is checked before upstream because a rejected credential
// carries GitHub's error as its cause.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred"})
		return
	}

	resp := ErrorResponse{Error: appErr.Message}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrUpstream):
		status = appErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		resp.Details = appErr.Details
		resp.GHStatus = appErr.Status
	default:
		// Storage failures: the cause stays in the logs.
		slog.Error("internal error", slog.String("error", err.Error()))
		resp.Error = "An internal error occurred"
	}

	writeJSON(w, status, resp)
}
