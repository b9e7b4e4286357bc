// Package sweeper periodically reports jobs that have stayed in processing too long.
// Jobs are not restarted; a reported job needs operator attention.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/scribe/pkg/models"
	"github.com/robfig/cron/v3"
)

// Lister finds processing jobs last updated before a cutoff.
type Lister interface {
	ListStuckJobs(ctx context.Context, updatedBefore time.Time) ([]*models.Job, error)
}

// Sweeper runs Sweep on a cron schedule.
type Sweeper struct {
	lister Lister
	after  time.Duration
	cron   *cron.Cron
	now    func() time.Time
}

// New schedules sweeps using a standard cron expression or descriptor such as "@every 5m".
func New(lister Lister, after time.Duration, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		lister: lister,
		after:  after,
		cron:   cron.New(),
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			slog.Error("stuck job sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep logs and returns the jobs processing for longer than the configured age.
func (s *Sweeper) Sweep(ctx context.Context) ([]*models.Job, error) {
	cutoff := s.now().Add(-s.after)
	stuck, err := s.lister.ListStuckJobs(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, j := range stuck {
		slog.Warn("job stuck in processing",
			"job_id", j.ID,
			"kind", j.Kind,
			"progress", j.Progress,
			"updated_at", j.UpdatedAt,
		)
	}
	if len(stuck) > 0 {
		slog.Info("stuck job sweep finished", "stuck", len(stuck))
	}
	return stuck, nil
}
