// Package models contains shared data models used across the Scribe codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobKindTranscription = "transcription"
	JobKindSummarization = "summarization"
)

// Job tracks one asynchronous transcription or summarization run. The API returns the job on
// submission; clients poll GET /api/v1/{transcriptions,summaries}/{job_id} until the status is
// completed or failed.
type Job struct {
	ID           uuid.UUID   `db:"id"            json:"id"`
	Kind         string      `db:"kind"          json:"kind"`
	Status       string      `db:"status"        json:"status"`
	Progress     float64     `db:"progress"      json:"progress"`
	SourceJobID  *uuid.UUID  `db:"source_job_id" json:"source_job_id,omitempty"`
	MediaKey     *string     `db:"media_key"     json:"media_key,omitempty"`
	Transcript   *Transcript `db:"transcript"    json:"transcript,omitempty"`
	Summary      *Summary    `db:"summary"       json:"summary,omitempty"`
	ErrorMessage *string     `db:"error_message" json:"error,omitempty"`
	StartedAt    *time.Time  `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time  `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time   `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"    json:"updated_at"`
}

// IsTerminal reports whether the job has reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
