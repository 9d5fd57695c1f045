package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/workflow"
)

// Queue accepts job submissions, bounds how many run at once, and dispatches
// queued jobs to the runner in FIFO submission order.
//
// Each running job's record is mutated only by the goroutine executing it;
// the queue's mutex guards publication of snapshots, the FIFO, and the
// registry map. Readers always receive copies.
type Queue struct {
	logger *slog.Logger
	runner Runner

	maxConcurrent int
	eventHistory  int
	onTerminal    func(Job)

	mu      sync.Mutex
	records map[string]*record
	order   []string
	pending []string
	running bool
	stopped bool
	cancel  context.CancelFunc

	wake  chan struct{}
	slots chan struct{}
	wg    sync.WaitGroup
}

type record struct {
	job    Job
	cancel context.CancelFunc
	events []ProgressEvent
}

// Option configures optional Queue behavior.
type Option func(*Queue)

// WithTerminalHook registers a callback invoked with a snapshot whenever a
// job reaches a terminal status. The callback runs outside the queue lock.
func WithTerminalHook(hook func(Job)) Option {
	return func(q *Queue) {
		q.onTerminal = hook
	}
}

// NewQueue constructs a queue with the worker budget from cfg.
func NewQueue(cfg *config.Config, runner Runner, logger *slog.Logger, opts ...Option) *Queue {
	maxConcurrent := cfg.Queue.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	q := &Queue{
		logger:        logging.NewComponentLogger(logger, "jobqueue"),
		runner:        runner,
		maxConcurrent: maxConcurrent,
		eventHistory:  cfg.Queue.EventHistory,
		records:       make(map[string]*record),
		wake:          make(chan struct{}, 1),
		slots:         make(chan struct{}, maxConcurrent),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the dispatcher. Calling Start on a running queue is a no-op.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	if q.running {
		q.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true
	q.wg.Add(1)
	q.mu.Unlock()

	go q.dispatch(runCtx)

	q.logger.Info("job queue started", logging.Int("max_concurrent", q.maxConcurrent))
	return nil
}

// Stop shuts the queue down. New submissions are rejected immediately;
// in-flight jobs observe cancellation at their next unit boundary and Stop
// returns once every worker has finished.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	if !q.running {
		q.mu.Unlock()
		return
	}
	cancel := q.cancel
	q.running = false
	q.cancel = nil
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
	q.logger.Info("job queue stopped")
}

// Submit creates a job for spec and places it at the tail of the FIFO. It
// never blocks on capacity; only a stopped queue or an empty spec is
// rejected.
func (q *Queue) Submit(spec *workflow.Spec) (string, error) {
	if spec == nil || len(spec.Shots) == 0 {
		return "", ErrEmptySpec
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrQueueStopped
	}
	id := uuid.NewString()
	q.records[id] = &record{job: Job{
		ID:        id,
		Spec:      spec,
		Status:    StatusQueued,
		Stages:    newStageStates(),
		CreatedAt: time.Now().UTC(),
	}}
	q.order = append(q.order, id)
	q.pending = append(q.pending, id)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.logger.Info("job submitted",
		logging.String(logging.FieldJobID, id),
		logging.Int("shots", len(spec.Shots)),
	)
	return id, nil
}

// Get returns a snapshot of the job with the given id.
func (q *Queue) Get(id string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.job.clone(), nil
}

// List returns snapshots of known jobs, newest first. When a filter is given
// only jobs whose status matches one of the filter values are returned.
func (q *Queue) List(filter ...Status) []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.order))
	for i := len(q.order) - 1; i >= 0; i-- {
		rec := q.records[q.order[i]]
		if len(filter) > 0 && !statusIn(rec.job.Status, filter) {
			continue
		}
		out = append(out, rec.job.clone())
	}
	return out
}

// Events returns the retained progress events for a job, oldest first.
func (q *Queue) Events(id string) ([]ProgressEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return append([]ProgressEvent(nil), rec.events...), nil
}

// Cancel requests cancellation of a job. A queued job transitions straight to
// Cancelled without ever starting; a running job has its context cancelled
// and finishes asynchronously. Cancel reports whether a signal was delivered:
// it returns false for unknown ids and jobs already in a terminal state.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	rec, ok := q.records[id]
	if !ok {
		q.mu.Unlock()
		return false
	}

	switch rec.job.Status {
	case StatusQueued:
		now := time.Now().UTC()
		rec.job.Status = StatusCancelled
		rec.job.CompletedAt = &now
		snapshot := rec.job.clone()
		q.mu.Unlock()
		q.logger.Info("queued job cancelled", logging.String(logging.FieldJobID, id))
		q.notifyTerminal(snapshot)
		return true
	case StatusRunning:
		cancel := rec.cancel
		q.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		q.logger.Info("cancellation signalled", logging.String(logging.FieldJobID, id))
		return true
	default:
		q.mu.Unlock()
		return false
	}
}

// Stats summarizes the registry by status.
type Stats struct {
	Queued        int `json:"queued"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Stats returns current registry counts.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{MaxConcurrent: q.maxConcurrent}
	for _, rec := range q.records {
		switch rec.job.Status {
		case StatusQueued:
			stats.Queued++
		case StatusRunning:
			stats.Running++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

func (q *Queue) dispatch(ctx context.Context) {
	defer q.wg.Done()

	for {
		id, ok := q.nextQueued(ctx)
		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			return
		case q.slots <- struct{}{}:
		}

		if !q.startJob(ctx, id) {
			// Cancelled while waiting for a slot.
			<-q.slots
		}
	}
}

func (q *Queue) nextQueued(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		for len(q.pending) > 0 {
			id := q.pending[0]
			q.pending = q.pending[1:]
			rec := q.records[id]
			if rec != nil && rec.job.Status == StatusQueued {
				q.mu.Unlock()
				return id, true
			}
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-q.wake:
		}
	}
}

func (q *Queue) startJob(ctx context.Context, id string) bool {
	q.mu.Lock()
	rec, ok := q.records[id]
	if !ok || rec.job.Status != StatusQueued {
		q.mu.Unlock()
		return false
	}

	jobCtx, cancel := context.WithCancel(ctx)
	rec.cancel = cancel
	now := time.Now().UTC()
	rec.job.Status = StatusRunning
	rec.job.StartedAt = &now
	spec := rec.job.Spec
	q.wg.Add(1)
	q.mu.Unlock()

	go q.runJob(jobCtx, id, spec)
	return true
}

func (q *Queue) runJob(ctx context.Context, id string, spec *workflow.Spec) {
	defer q.wg.Done()
	// The slot must come back on every exit path or the queue starves.
	defer func() { <-q.slots }()
	defer q.releaseCancel(id)

	logger := q.logger.With(logging.String(logging.FieldJobID, id))
	logger.Info("job started")
	start := time.Now()

	var result *Result
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("job worker panic: %v", r)
				logger.Error("job worker panicked", logging.Any("panic", r))
			}
		}()
		result, runErr = q.runner.Run(ctx, id, spec, q.progressFunc(id))
	}()

	q.finishJob(id, result, runErr, ctx.Err() != nil, logger, time.Since(start))
}

func (q *Queue) finishJob(id string, result *Result, runErr error, ctxCancelled bool, logger *slog.Logger, elapsed time.Duration) {
	q.mu.Lock()
	rec, ok := q.records[id]
	if !ok {
		q.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	rec.job.CompletedAt = &now
	rec.job.Result = result

	switch {
	case runErr == nil:
		rec.job.Status = StatusCompleted
		rec.job.Progress = 1.0
	case errors.Is(runErr, context.Canceled) || ctxCancelled:
		rec.job.Status = StatusCancelled
	default:
		rec.job.Status = StatusFailed
		rec.job.Error = runErr.Error()
	}
	snapshot := rec.job.clone()
	q.mu.Unlock()

	switch snapshot.Status {
	case StatusCompleted:
		logger.Info("job completed", logging.Duration("job_duration", elapsed))
	case StatusCancelled:
		logger.Info("job cancelled", logging.Duration("job_duration", elapsed))
	default:
		logger.Error("job failed",
			logging.Error(runErr),
			logging.Duration("job_duration", elapsed),
		)
	}
	q.notifyTerminal(snapshot)
}

func (q *Queue) releaseCancel(id string) {
	q.mu.Lock()
	rec, ok := q.records[id]
	var cancel context.CancelFunc
	if ok {
		cancel = rec.cancel
		rec.cancel = nil
	}
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (q *Queue) notifyTerminal(snapshot Job) {
	if q.onTerminal != nil {
		q.onTerminal(snapshot)
	}
}

func statusIn(status Status, filter []Status) bool {
	for _, candidate := range filter {
		if status == candidate {
			return true
		}
	}
	return false
}
