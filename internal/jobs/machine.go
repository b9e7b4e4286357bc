// Package jobs owns job state: the state machine that is the only writer of job records,
// and the worker pool that runs job bodies.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/cache"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

var (
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrProgressRegression = errors.New("job progress must increase")
	ErrInvalidProgress    = errors.New("job progress must be within [0, 1]")
	ErrInvalidResult      = errors.New("job result must hold exactly one of transcript or summary")
)

var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing},
	models.JobStatusProcessing: {models.JobStatusCompleted, models.JobStatusFailed},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to string) bool {
	return slices.Contains(validTransitions[from], to)
}

// Result is the output recorded by Complete.
type Result struct {
	Transcript *models.Transcript
	Summary    *models.Summary
}

// Machine applies job state transitions. Each call is a single conditional store write;
// the written row is then mirrored into the cache.
type Machine struct {
	store store.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewMachine creates a Machine. Snapshots are cached for ttl.
func NewMachine(st store.Store, ca cache.Cache, ttl time.Duration) *Machine {
	return &Machine{store: st, cache: ca, ttl: ttl}
}

// Create persists a new pending job. ID, Kind and the source/media links are taken from
// job; state fields are reset.
func (m *Machine) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	now := time.Now().UTC()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = models.JobStatusPending
	job.Progress = 0
	job.Transcript = nil
	job.Summary = nil
	job.ErrorMessage = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	job.CreatedAt = now
	job.UpdatedAt = now

	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	m.mirror(ctx, job)
	return job, nil
}

// TransitionToProcessing moves a pending job to processing.
func (m *Machine) TransitionToProcessing(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return m.transition(ctx, id, models.JobStatusPending, models.JobStatusProcessing)
}

// UpdateProgress records progress for a processing job. progress must exceed the stored
// value.
func (m *Machine) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) (*models.Job, error) {
	if progress < 0 || progress > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidProgress, progress)
	}
	job, err := m.store.UpdateJob(ctx, id, models.JobStatusProcessing, store.WithProgress(progress))
	if err != nil {
		return nil, m.resolve(ctx, id, models.JobStatusProcessing, err, true)
	}
	m.mirror(ctx, job)
	return job, nil
}

// Complete records the result of a processing job and sets progress to 1.
func (m *Machine) Complete(ctx context.Context, id uuid.UUID, result Result) (*models.Job, error) {
	var opt store.JobUpdateOption
	switch {
	case result.Transcript != nil && result.Summary == nil:
		opt = store.WithTranscript(*result.Transcript)
	case result.Summary != nil && result.Transcript == nil:
		opt = store.WithSummary(*result.Summary)
	default:
		return nil, ErrInvalidResult
	}
	return m.transition(ctx, id, models.JobStatusProcessing, models.JobStatusCompleted, opt)
}

// Fail records message as the error of a processing job. Progress keeps its last value.
func (m *Machine) Fail(ctx context.Context, id uuid.UUID, message string) (*models.Job, error) {
	return m.transition(ctx, id, models.JobStatusProcessing, models.JobStatusFailed, store.WithErrorMessage(message))
}

func (m *Machine) transition(ctx context.Context, id uuid.UUID, from, to string, opts ...store.JobUpdateOption) (*models.Job, error) {
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	job, err := m.store.UpdateJob(ctx, id, from, append(opts, store.WithStatus(to))...)
	if err != nil {
		return nil, m.resolve(ctx, id, from, err, false)
	}
	slog.Info("job transitioned", "job_id", id, "from", from, "to", to)
	m.mirror(ctx, job)
	return job, nil
}

// resolve turns a store conflict into the precise state machine error.
func (m *Machine) resolve(ctx context.Context, id uuid.UUID, from string, err error, progress bool) error {
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	cur, getErr := m.store.GetJob(ctx, id)
	if getErr != nil {
		return getErr
	}
	if cur.Status != from {
		return fmt.Errorf("%w: job %s is %s, not %s", ErrInvalidTransition, id, cur.Status, from)
	}
	if progress {
		return fmt.Errorf("%w: job %s is at %v", ErrProgressRegression, id, cur.Progress)
	}
	return err
}

// mirror writes the snapshot to the cache. A failed write drops the key so readers fall
// back to the store instead of seeing an older snapshot.
func (m *Machine) mirror(ctx context.Context, job *models.Job) {
	if err := m.cache.SetJob(ctx, job, m.ttl); err != nil {
		slog.Warn("caching job snapshot failed", "job_id", job.ID, "error", err)
		if err := m.cache.Delete(ctx, cache.JobKey(job.ID)); err != nil {
			slog.Warn("dropping job snapshot failed", "job_id", job.ID, "error", err)
		}
	}
}
