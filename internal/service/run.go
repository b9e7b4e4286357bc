package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/aggregate"
	"github.com/kiranshivaraju/scribe/internal/extract"
	"github.com/kiranshivaraju/scribe/internal/inference"
	"github.com/kiranshivaraju/scribe/internal/jobs"
	"github.com/kiranshivaraju/scribe/internal/pipeline"
	"github.com/kiranshivaraju/scribe/internal/split"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// runTranscription splits the stored upload, transcribes every unit and records the
// joined transcript.
func (s *Service) runTranscription(ctx context.Context, id uuid.UUID, mediaPath string) {
	if !s.start(ctx, id) {
		return
	}

	units, err := s.splitter.Split(ctx, mediaPath)
	if err != nil {
		s.fail(ctx, id, fmt.Errorf("splitting audio: %w", err))
		return
	}

	stage := pipeline.Stage{Name: "transcribe", Weight: 1, Concurrency: s.cfg.UnitConcurrency}
	texts, err := pipeline.Run(ctx, stage, units, func(ctx context.Context, i int, u split.AudioUnit) (string, error) {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()
		return s.audio.Process(callCtx, inference.AudioInput{
			Filename: fmt.Sprintf("unit-%04d.mp3", i),
			Data:     u.Payload,
		})
	}, s.progress(ctx, id))
	if err != nil {
		s.fail(ctx, id, err)
		return
	}

	transcript, err := aggregate.Transcript(units, texts)
	if err != nil {
		s.fail(ctx, id, err)
		return
	}
	s.complete(ctx, id, jobs.Result{Transcript: &transcript})
}

// runSummarization summarizes every text unit, synthesizes the partial summaries and
// records the result with its metadata appendix.
func (s *Service) runSummarization(ctx context.Context, id uuid.UUID, units []split.TextUnit) {
	if !s.start(ctx, id) {
		return
	}
	report := s.progress(ctx, id)

	stage := pipeline.Stage{Name: "summarize", Weight: chunkStageWeight, Concurrency: s.cfg.UnitConcurrency}
	partials, err := pipeline.Run(ctx, stage, units, func(ctx context.Context, _ int, u split.TextUnit) (string, error) {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()
		return s.chunk.Process(callCtx, u.Text)
	}, report)
	if err != nil {
		s.fail(ctx, id, err)
		return
	}

	combined := aggregate.JoinPartials(partials)
	report(joinedProgress)

	callCtx, cancel := s.callContext(ctx)
	final, err := aggregate.Synthesize(callCtx, s.synth, combined)
	cancel()
	if err != nil {
		s.fail(ctx, id, err)
		return
	}

	md := extract.Extract(final)
	summary := models.Summary{
		Text:     extract.Render(final, md),
		Metadata: md,
	}
	s.complete(ctx, id, jobs.Result{Summary: &summary})
}

func (s *Service) start(ctx context.Context, id uuid.UUID) bool {
	if _, err := s.machine.TransitionToProcessing(ctx, id); err != nil {
		slog.Error("starting job failed", "job_id", id, "error", err)
		return false
	}
	return true
}

// progress returns a reporter that records each value on the job. A failed write is
// logged and does not stop the job.
func (s *Service) progress(ctx context.Context, id uuid.UUID) pipeline.ProgressFunc {
	return func(p float64) {
		if _, err := s.machine.UpdateProgress(ctx, id, p); err != nil {
			slog.Warn("recording progress failed", "job_id", id, "progress", p, "error", err)
		}
	}
}

func (s *Service) complete(ctx context.Context, id uuid.UUID, result jobs.Result) {
	if _, err := s.machine.Complete(context.WithoutCancel(ctx), id, result); err != nil {
		slog.Error("completing job failed", "job_id", id, "error", err)
		return
	}
	slog.Info("job completed", "job_id", id)
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, cause error) {
	slog.Warn("job failed", "job_id", id, "error", cause)
	if _, err := s.machine.Fail(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		slog.Error("recording job failure failed", "job_id", id, "error", err)
	}
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}
