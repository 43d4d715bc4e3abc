package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/bucketgate"
)

const jsonContentType = "application/json; charset=utf-8"

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error response. A zero status means 400.
func WriteError(w http.ResponseWriter, status int, message string) {
	if status == 0 {
		status = http.StatusBadRequest
	}

	if err := WriteJSON(w, status, ErrorResponse{Error: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the response for err. Errors that are not an *Error or a
// known sentinel are logged and reported as an opaque 500.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *Error
	switch {
	case errors.As(err, &httpErr):
		WriteError(w, httpErr.Status, httpErr.Message)
	case errors.Is(err, bucketgate.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Object not found")
	case errors.Is(err, bucketgate.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "Invalid input")
	default:
		slog.ErrorContext(r.Context(), "bucket handler error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return err
	}

	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(code)
	_, err = w.Write(body)
	return err
}
