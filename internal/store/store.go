package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrConflict is returned by UpdateJob when the job exists but its current state does
// not satisfy the update's preconditions.
var ErrConflict = errors.New("job state precondition not met")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	Close()

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// UpdateJob applies opts to the job in a single conditional write that only matches
	// while the job's status is from. It returns the updated row, ErrNotFound when no job
	// has the id, or ErrConflict when the job exists but did not match.
	UpdateJob(ctx context.Context, id uuid.UUID, from string, opts ...JobUpdateOption) (*models.Job, error)
	// ListStuckJobs returns processing jobs last updated before the cutoff.
	ListStuckJobs(ctx context.Context, updatedBefore time.Time) ([]*models.Job, error)
}

type jobUpdateParams struct {
	Status       *string
	Progress     *float64
	Transcript   *models.Transcript
	Summary      *models.Summary
	ErrorMessage *string
}

type JobUpdateOption func(*jobUpdateParams)

// WithStatus moves the job to status. Entering processing stamps started_at; entering a
// terminal status stamps completed_at, and completed also sets progress to 1.
func WithStatus(status string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Status = &status
	}
}

// WithProgress sets progress and only matches while the stored progress is lower.
func WithProgress(progress float64) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Progress = &progress
	}
}

func WithTranscript(t models.Transcript) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Transcript = &t
	}
}

func WithSummary(s models.Summary) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Summary = &s
	}
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

const jobColumns = `id, kind, status, progress, source_job_id, media_key, transcript, summary,
	error_message, started_at, completed_at, created_at, updated_at`

// placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func question(int) string { return "?" }

type updateBuilder struct {
	ph    placeholder
	sets  []string
	where []string
	args  []any
}

func (b *updateBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.ph(len(b.args))
}

// buildJobUpdate renders the conditional UPDATE statement shared by both SQL stores.
func buildJobUpdate(ph placeholder, id uuid.UUID, from string, opts []JobUpdateOption, now time.Time) (string, []any, error) {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	b := &updateBuilder{ph: ph}
	b.sets = append(b.sets, "updated_at = "+b.arg(now))

	if params.Status != nil {
		b.sets = append(b.sets, "status = "+b.arg(*params.Status))
		switch *params.Status {
		case models.JobStatusProcessing:
			b.sets = append(b.sets, "started_at = "+b.arg(now))
		case models.JobStatusCompleted:
			b.sets = append(b.sets, "completed_at = "+b.arg(now), "progress = "+b.arg(1.0))
		case models.JobStatusFailed:
			b.sets = append(b.sets, "completed_at = "+b.arg(now))
		}
	}
	if params.Progress != nil {
		b.sets = append(b.sets, "progress = "+b.arg(*params.Progress))
	}
	if params.Transcript != nil {
		doc, err := json.Marshal(params.Transcript)
		if err != nil {
			return "", nil, fmt.Errorf("encode transcript: %w", err)
		}
		b.sets = append(b.sets, "transcript = "+b.arg(string(doc)))
	}
	if params.Summary != nil {
		doc, err := json.Marshal(params.Summary)
		if err != nil {
			return "", nil, fmt.Errorf("encode summary: %w", err)
		}
		b.sets = append(b.sets, "summary = "+b.arg(string(doc)))
	}
	if params.ErrorMessage != nil {
		b.sets = append(b.sets, "error_message = "+b.arg(*params.ErrorMessage))
	}

	b.where = append(b.where, "id = "+b.arg(id), "status = "+b.arg(from))
	if params.Progress != nil {
		b.where = append(b.where, "progress < "+b.arg(*params.Progress))
	}

	query := "UPDATE jobs SET " + strings.Join(b.sets, ", ") +
		" WHERE " + strings.Join(b.where, " AND ")
	return query, b.args, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j                   models.Job
		transcript, summary []byte
	)
	if err := row.Scan(&j.ID, &j.Kind, &j.Status, &j.Progress, &j.SourceJobID, &j.MediaKey,
		&transcript, &summary, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt,
		&j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if len(transcript) > 0 {
		j.Transcript = &models.Transcript{}
		if err := json.Unmarshal(transcript, j.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	}
	if len(summary) > 0 {
		j.Summary = &models.Summary{}
		if err := json.Unmarshal(summary, j.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	return &j, nil
}
