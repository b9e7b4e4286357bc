package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ShutdownMessage is recorded on jobs still queued when the pool stops.
const ShutdownMessage = "service shutting down"

var (
	ErrQueueFull  = errors.New("job queue is full")
	ErrPoolClosed = errors.New("job pool is stopped")
)

// Task is one job body. Run receives a context that is cancelled when Stop gives up
// waiting.
type Task struct {
	JobID uuid.UUID
	Run   func(ctx context.Context)
}

// Pool runs tasks on a fixed number of workers fed by a bounded queue. The queue is in
// memory only.
type Pool struct {
	machine *Machine
	tasks   chan Task

	mu       sync.RWMutex
	closed   bool
	draining atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines over a queue holding up to queueSize tasks.
func NewPool(m *Machine, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		machine: m,
		tasks:   make(chan Task, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

// Dispatch enqueues task without blocking.
func (p *Pool) Dispatch(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks, fails the ones still queued and waits for running tasks to
// return. If ctx expires first, running tasks are cancelled and ctx's error returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.draining.Store(true)
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.draining.Load() {
			p.abandon(task)
			continue
		}
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in job", "job_id", task.JobID, "error", r)
			if _, err := p.machine.Fail(context.Background(), task.JobID, fmt.Sprintf("panic: %v", r)); err != nil {
				slog.Error("recording job panic failed", "job_id", task.JobID, "error", err)
			}
		}
	}()
	task.Run(p.ctx)
}

// abandon fails a job that never started.
func (p *Pool) abandon(task Task) {
	ctx := context.Background()
	if _, err := p.machine.TransitionToProcessing(ctx, task.JobID); err != nil {
		slog.Error("abandoning queued job failed", "job_id", task.JobID, "error", err)
		return
	}
	if _, err := p.machine.Fail(ctx, task.JobID, ShutdownMessage); err != nil {
		slog.Error("abandoning queued job failed", "job_id", task.JobID, "error", err)
		return
	}
	slog.Warn("queued job abandoned at shutdown", "job_id", task.JobID)
}
