package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error     string `json:"error" validate:"required"`
	Retryable bool   `json:"retryable"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid login credentials"
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, apperr.ErrAIUnconfigured):
		return http.StatusServiceUnavailable, "AI service is not configured"
	case errors.Is(err, apperr.ErrAIGeneration):
		return http.StatusBadGateway, "AI generation failed"
	case errors.Is(err, apperr.ErrNetwork):
		return http.StatusBadGateway, "upstream unavailable"
	case errors.Is(err, apperr.ErrPersistence):
		return http.StatusInternalServerError, "storage error"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError logs server-side failures and writes the mapped error body.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, errResponse{Error: msg, Retryable: apperr.Retryable(err)})
}

// decodeJSON reads a JSON body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}
