package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/api/response"
	"github.com/kiranshivaraju/scribe/internal/export"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// NewSubmitSummarizationHandler returns an http.HandlerFunc for POST /api/v1/summaries.
func NewSubmitSummarizationHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TranscriptionID string `json:"transcription_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeValidation, "Invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.TranscriptionID) == "" {
			response.Error(w, http.StatusBadRequest, response.CodeValidation, "transcription_id is required",
				map[string][]string{"transcription_id": {"transcription_id is required"}})
			return
		}
		sourceID, err := uuid.Parse(req.TranscriptionID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeValidation, "transcription_id must be a UUID",
				map[string][]string{"transcription_id": {"transcription_id must be a UUID"}})
			return
		}

		job, err := svc.SubmitSummarization(r.Context(), sourceID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, job)
	}
}

// NewSummaryDocxHandler returns an http.HandlerFunc for GET /api/v1/summaries/{jobID}/docx.
func NewSummaryDocxHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}
		job, err := svc.CompletedSummary(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteDocx(&buf, "Summary", job.Summary.Text); err != nil {
			writeServiceError(w, fmt.Errorf("rendering docx: %w", err))
			return
		}
		response.Attachment(w, docxContentType, fmt.Sprintf("summary-%s.docx", id), func(out io.Writer) error {
			_, err := buf.WriteTo(out)
			return err
		})
	}
}
