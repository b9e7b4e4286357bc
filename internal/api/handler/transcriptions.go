package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/api/response"
	"github.com/kiranshivaraju/scribe/internal/service"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// uploadField is the multipart field carrying the audio file.
const uploadField = "file"

// multipart parts above this size spill to disk.
const maxMemory = 8 << 20

// JobService is the part of service.Service the handlers use.
type JobService interface {
	SubmitTranscription(ctx context.Context, up service.AudioUpload) (*models.Job, error)
	SubmitSummarization(ctx context.Context, sourceID uuid.UUID) (*models.Job, error)
	GetJobOfKind(ctx context.Context, id uuid.UUID, kind string) (*models.Job, error)
	CompletedSummary(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// NewSubmitTranscriptionHandler returns an http.HandlerFunc for POST /api/v1/transcriptions.
// The upload is copied to a temp file under tmpDir before it is handed to the service.
func NewSubmitTranscriptionHandler(svc JobService, maxBytes int64, tmpDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				response.Error(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
					"Upload exceeds the size limit", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, response.CodeValidation, "Expected a multipart form", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeValidation,
				"file is required", map[string][]string{uploadField: {"file is required"}})
			return
		}
		defer file.Close()

		path, err := spool(file, tmpDir, filepath.Ext(header.Filename))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		// The service moves the file on success; whatever is left is ours.
		defer os.Remove(path)

		job, err := svc.SubmitTranscription(r.Context(), service.AudioUpload{
			Filename: filepath.Base(header.Filename),
			Path:     path,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc that reports a job of kind by {jobID}.
func NewGetJobHandler(svc JobService, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}
		job, err := svc.GetJobOfKind(r.Context(), id, kind)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeValidation, "jobID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func spool(src io.Reader, dir, ext string) (string, error) {
	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
