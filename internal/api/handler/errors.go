package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/scribe/internal/api/response"
	"github.com/kiranshivaraju/scribe/internal/service"
	"github.com/kiranshivaraju/scribe/internal/split"
)

// writeServiceError maps a service error to its HTTP status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Job not found", nil)
	case errors.Is(err, service.ErrUnsupportedFormat):
		response.Error(w, http.StatusUnsupportedMediaType, response.CodeUnsupportedFormat, err.Error(), nil)
	case errors.Is(err, split.ErrUnreadableInput):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeUnreadableInput, err.Error(), nil)
	case errors.Is(err, split.ErrEmptyInput), errors.Is(err, service.ErrSourceEmpty):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeEmptyInput, err.Error(), nil)
	case errors.Is(err, service.ErrWrongJobKind):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeValidation, err.Error(), nil)
	case errors.Is(err, service.ErrSourceNotCompleted), errors.Is(err, service.ErrJobNotReady):
		response.Error(w, http.StatusConflict, response.CodeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrBusy):
		w.Header().Set("Retry-After", "30")
		response.Error(w, http.StatusServiceUnavailable, response.CodeBusy, "Too many queued jobs, retry later", nil)
	default:
		slog.Error("request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "An unexpected error occurred", nil)
	}
}
