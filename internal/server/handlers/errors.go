// Provides helpers mapping store errors to API errors and writing them.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/bibliodb/internal/docstore"
	apierrors "github.com/maruel/bibliodb/internal/errors"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorDetails describes an error.
type ErrorDetails struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// apiError converts a store or adapter error to an APIError. Errors that
// already carry a status are returned as is.
func apiError(err error) error {
	var ews apierrors.ErrorWithStatus
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ews):
		return err
	case errors.Is(err, docstore.ErrNotFound):
		return apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrNotFound, err.Error())
	case errors.Is(err, docstore.ErrUnsupported):
		return apierrors.Unsupported(err.Error())
	case errors.Is(err, docstore.ErrIDMismatch):
		return apierrors.BadRequest(err.Error())
	case errors.Is(err, docstore.ErrMalformedDocument):
		return apierrors.MalformedDocument(err)
	case errors.Is(err, docstore.ErrStorageUnavailable):
		return apierrors.StorageUnavailable(err)
	default:
		return apierrors.InternalWithError("Unexpected error", err)
	}
}

// WriteError writes err as a JSON error response.
// Use this in raw http.HandlerFunc handlers that don't use server.Wrap.
func WriteError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	code := apierrors.ErrInternal
	message := "internal error"
	var details map[string]any

	var ews apierrors.ErrorWithStatus
	if errors.As(apiError(err), &ews) {
		statusCode = ews.StatusCode()
		code = ews.Code()
		message = ews.Error()
		details = ews.Details()
	}
	WriteErrorCode(w, statusCode, code, message, details)
}

// WriteErrorCode writes a detailed error response as JSON.
func WriteErrorCode(w http.ResponseWriter, statusCode int, code apierrors.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := ErrorResponse{
		Error:   ErrorDetails{Code: code, Message: message},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
