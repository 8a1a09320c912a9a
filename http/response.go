package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/identity"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type sessionResponse struct {
	User      cybervault.Identity `json:"user"`
	ExpiresAt time.Time           `json:"expires_at"`
}

type listResponse struct {
	Files []cybervault.FileRecord `json:"files"`
}

type notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type uploadResult struct {
	Name   string                 `json:"name"`
	Record *cybervault.FileRecord `json:"record,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

type uploadResponse struct {
	Results       []uploadResult `json:"results"`
	Notifications []notification `json:"notifications,omitempty"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type.
// Identity errors carry their message to the client unchanged.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrPasswordTooLong):
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, identity.ErrUserExists):
		WriteError(w, http.StatusBadRequest, "user_exists", identity.ErrUserExists.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		WriteError(w, http.StatusBadRequest, "invalid_credentials", identity.ErrInvalidCredentials.Error())
	case errors.Is(err, identity.ErrSessionRevoked):
		WriteError(w, http.StatusUnauthorized, "unauthorized", identity.ErrSessionRevoked.Error())
	case errors.Is(err, identity.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, "unauthorized", identity.ErrInvalidToken.Error())
	case errors.Is(err, ErrUnauthorized), errors.Is(err, cybervault.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, cybervault.ErrDanglingRecord):
		slog.Error("dangling record", "error", err)
		WriteError(w, http.StatusBadGateway, "dangling_record", "File content is gone but its record remains")
	case errors.Is(err, cybervault.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
	case errors.Is(err, cybervault.ErrFileTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "File too large")
	case errors.Is(err, cybervault.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.Is(err, cybervault.ErrUnsupported):
		WriteError(w, http.StatusNotImplemented, "unsupported", "Operation not supported")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// ReadJSON decodes a JSON request body, rejecting unknown fields.
func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
