// Package service runs transcription and summarization jobs: it validates submissions,
// creates job records, and drives each job through splitting, inference and aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/cache"
	"github.com/kiranshivaraju/scribe/internal/inference"
	"github.com/kiranshivaraju/scribe/internal/jobs"
	"github.com/kiranshivaraju/scribe/internal/split"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

var (
	ErrJobNotFound        = fmt.Errorf("job not found: %w", store.ErrNotFound)
	ErrWrongJobKind       = errors.New("job is not a transcription")
	ErrSourceNotCompleted = errors.New("transcription has not completed")
	ErrSourceEmpty        = errors.New("transcription has no text")
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrJobNotReady        = errors.New("job has not completed")
	ErrBusy               = errors.New("too many queued jobs")
)

// SupportedFormats lists the accepted upload extensions.
var SupportedFormats = map[string]bool{
	".m4a":  true,
	".mp3":  true,
	".wav":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// Summarization progress: chunk summaries fill [0, 0.5], joining them reports 0.75 and
// completion reports 1.
const (
	chunkStageWeight = 0.5
	joinedProgress   = 0.75
)

// AudioSplitter probes and cuts audio files.
type AudioSplitter interface {
	Probe(ctx context.Context, path string) (time.Duration, error)
	Split(ctx context.Context, path string) ([]split.AudioUnit, error)
}

// BlobStore keeps original uploads.
type BlobStore interface {
	PutFile(name, src string) (string, error)
}

// Dispatcher queues job bodies.
type Dispatcher interface {
	Dispatch(task jobs.Task) error
}

// Config tunes job execution.
type Config struct {
	TextUnitTokens  int
	UnitConcurrency int
	CallTimeout     time.Duration
}

// Dependencies holds everything a Service needs. All fields are required.
type Dependencies struct {
	Machine     *jobs.Machine
	Store       store.Store
	Cache       cache.Cache
	Blobs       BlobStore
	Pool        Dispatcher
	Splitter    AudioSplitter
	Transcriber inference.Transcriber
	Generator   inference.Generator
	Prompts     inference.Prompts
}

// AudioUpload is an audio file on local disk awaiting transcription.
type AudioUpload struct {
	Filename string
	Path     string
}

// Service orchestrates job submission and execution.
type Service struct {
	machine  *jobs.Machine
	store    store.Store
	cache    cache.Cache
	blobs    BlobStore
	pool     Dispatcher
	splitter AudioSplitter
	audio    *inference.AudioStep
	chunk    *inference.TextStep
	synth    *inference.TextStep
	cfg      Config
}

// New creates a Service.
func New(deps Dependencies, cfg Config) *Service {
	if cfg.TextUnitTokens <= 0 {
		cfg.TextUnitTokens = split.DefaultMaxTokens
	}
	if cfg.UnitConcurrency < 1 {
		cfg.UnitConcurrency = 1
	}
	return &Service{
		machine:  deps.Machine,
		store:    deps.Store,
		cache:    deps.Cache,
		blobs:    deps.Blobs,
		pool:     deps.Pool,
		splitter: deps.Splitter,
		audio:    inference.NewAudioStep(deps.Transcriber),
		chunk:    inference.NewTextStep(deps.Generator, deps.Prompts.Chunk),
		synth:    inference.NewTextStep(deps.Generator, deps.Prompts.Synthesis),
		cfg:      cfg,
	}
}

// SubmitTranscription validates and stores the upload, creates a pending transcription
// job and queues it. Unsupported, unreadable or empty audio is rejected before any job
// record exists.
func (s *Service) SubmitTranscription(ctx context.Context, up AudioUpload) (*models.Job, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !SupportedFormats[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if _, err := s.splitter.Probe(ctx, up.Path); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := id.String() + ext
	mediaPath, err := s.blobs.PutFile(key, up.Path)
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	job, err := s.machine.Create(ctx, &models.Job{
		ID:       id,
		Kind:     models.JobKindTranscription,
		MediaKey: &key,
	})
	if err != nil {
		return nil, err
	}

	if err := s.dispatch(job.ID, func(ctx context.Context) {
		s.runTranscription(ctx, job.ID, mediaPath)
	}); err != nil {
		return nil, err
	}
	slog.Info("transcription submitted", "job_id", job.ID, "file", up.Filename)
	return job, nil
}

// SubmitSummarization creates a summarization job over a completed transcription. The
// source text is split before the job record is created, so a rejected request leaves
// no record behind.
func (s *Service) SubmitSummarization(ctx context.Context, sourceID uuid.UUID) (*models.Job, error) {
	src, err := s.store.GetJob(ctx, sourceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading transcription: %w", err)
	}
	if src.Kind != models.JobKindTranscription {
		return nil, ErrWrongJobKind
	}
	if src.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrSourceNotCompleted, src.Status)
	}
	if src.Transcript == nil || strings.TrimSpace(src.Transcript.Text) == "" {
		return nil, ErrSourceEmpty
	}

	units, err := split.SplitText(src.Transcript.Text, s.cfg.TextUnitTokens)
	if err != nil {
		return nil, err
	}

	job, err := s.machine.Create(ctx, &models.Job{
		Kind:        models.JobKindSummarization,
		SourceJobID: &src.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.dispatch(job.ID, func(ctx context.Context) {
		s.runSummarization(ctx, job.ID, units)
	}); err != nil {
		return nil, err
	}
	slog.Info("summarization submitted", "job_id", job.ID, "source_job_id", src.ID, "units", len(units))
	return job, nil
}

// GetJob returns the latest known state of a job, preferring the cached snapshot.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, ok, err := s.cache.GetJob(ctx, id)
	if err != nil {
		slog.Warn("reading job snapshot failed", "job_id", id, "error", err)
	}
	if ok {
		return job, nil
	}

	job, err = s.store.GetJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	return job, nil
}

// GetJobOfKind is GetJob restricted to one kind; a job of another kind is reported as
// not found.
func (s *Service) GetJobOfKind(ctx context.Context, id uuid.UUID, kind string) (*models.Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Kind != kind {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// CompletedSummary returns a summarization job that has completed.
func (s *Service) CompletedSummary(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.GetJobOfKind(ctx, id, models.JobKindSummarization)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.Summary == nil {
		return nil, fmt.Errorf("%w: status is %s", ErrJobNotReady, job.Status)
	}
	return job, nil
}

func (s *Service) dispatch(id uuid.UUID, run func(ctx context.Context)) error {
	err := s.pool.Dispatch(jobs.Task{JobID: id, Run: run})
	if err == nil {
		return nil
	}
	// The record already exists and must not stay pending.
	ctx := context.Background()
	if _, terr := s.machine.TransitionToProcessing(ctx, id); terr == nil {
		_, _ = s.machine.Fail(ctx, id, err.Error())
	}
	return fmt.Errorf("%w: %v", ErrBusy, err)
}
