package handler

// Every JSON error from the API has the same shape:
//
//	{"error": "not_found", "message": "share not found with id go-..."}
//
// Services return apperror kinds; writeError is the one place they become
// HTTP status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/codeagentix/internal/apperror"
)

// maxBodyBytes bounds request bodies. Code and web panes fit comfortably.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is the body of simple acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps an error to its HTTP status, machine code and the message
// that is safe to show.
func errorStatus(err error) (int, string, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "unsupported_language", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr.Message
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error", appErr.Message
	case errors.Is(err, apperror.ErrExecution):
		return http.StatusBadGateway, "execution_error", appErr.Message
	}
	return http.StatusInternalServerError, "internal_error", "An internal error occurred"
}

// writeError sends err as a JSON error. Unknown errors become a generic 500
// so storage details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	status, code, msg := errorStatus(err)
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var (
			tooLarge *http.MaxBytesError
			appErr   *apperror.AppError
		)
		switch {
		case errors.As(err, &appErr):
			return appErr
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be at most %d bytes", maxBodyBytes))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		default:
			return apperror.ValidationFailed("body", "invalid JSON in request body")
		}
	}
	return nil
}
