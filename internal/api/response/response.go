// Package response writes the JSON envelopes shared by all API handlers.
package response

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeUnreadableInput   = "UNREADABLE_INPUT"
	CodeEmptyInput        = "EMPTY_INPUT"
	CodeConflict          = "CONFLICT"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeBusy              = "SERVICE_BUSY"
	CodeInternal          = "INTERNAL_ERROR"
)

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with 200 OK.
func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

// Accepted writes data with 202 Accepted.
func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, envelope{Data: data})
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// Attachment streams a download. write produces the body; a write error after the
// headers are sent can only be logged.
func Attachment(w http.ResponseWriter, contentType, filename string, write func(io.Writer) error) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := write(w); err != nil {
		slog.Error("writing attachment failed", "filename", filename, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}
