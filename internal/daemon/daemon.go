package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelforge/internal/api"
	"reelforge/internal/assets"
	"reelforge/internal/config"
	"reelforge/internal/deps"
	"reelforge/internal/jobs"
	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/services/planner"
	"reelforge/internal/workflow"
)

// Daemon coordinates the job queue, HTTP API, and notifications, and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *jobs.Queue
	store    *assets.Store
	planner  *planner.Client
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	api     *apiServer
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Queue        jobs.Stats
	AssetCount   int
	LockFilePath string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. The job queue is
// built here so terminal job transitions reach the notifier.
func New(cfg *config.Config, store *assets.Store, runner jobs.Runner, plannerClient *planner.Client, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || logger == nil {
		return nil, errors.New("daemon requires config, asset store, runner, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "reelforged.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		planner:  plannerClient,
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.queue = jobs.NewQueue(cfg, runner, logger, jobs.WithTerminalHook(d.onJobTerminal))
	return d, nil
}

// Start acquires the daemon lock, launches the queue dispatcher, and begins
// serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.queue.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start job queue: %w", err)
	}

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.queue.Stop()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return err
	}
	d.api = srv
	if err := d.api.start(runCtx); err != nil {
		d.queue.Stop()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and the queue and releases the lock.
// In-flight jobs see cancellation and finish before Stop returns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	d.queue.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the asset store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Submit turns a submission request into a queued job. A structured spec is
// used as-is; a bare prompt is expanded into a spec by the planner service.
func (d *Daemon) Submit(ctx context.Context, req api.SubmitRequest) (string, error) {
	spec, err := d.resolveSpec(ctx, req)
	if err != nil {
		return "", err
	}
	return d.queue.Submit(spec)
}

func (d *Daemon) resolveSpec(ctx context.Context, req api.SubmitRequest) (*workflow.Spec, error) {
	if len(req.Spec) > 0 {
		raw, err := json.Marshal(req.Spec)
		if err != nil {
			return nil, fmt.Errorf("encode workflow spec: %w", err)
		}
		return workflow.Parse(raw)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("submission requires a workflow spec or a prompt")
	}
	if d.planner == nil || !d.planner.Configured() {
		return nil, errors.New("planner service is not configured; submit a full workflow spec")
	}
	spec, err := d.planner.Plan(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan workflow: %w", err)
	}
	return spec, nil
}

// Queue exposes the job queue for read operations.
func (d *Daemon) Queue() *jobs.Queue {
	return d.queue
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	count, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Warn("asset count unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Queue:        d.queue.Stats(),
		AssetCount:   count,
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}

func (d *Daemon) onJobTerminal(job jobs.Job) {
	title := ""
	if job.Spec != nil {
		title = job.Spec.Title
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch job.Status {
	case jobs.StatusCompleted:
		exports := 0
		if job.Result != nil {
			exports = len(job.Result.Exports)
		}
		err = d.notifier.NotifyJobCompleted(ctx, title, exports, jobDuration(job))
	case jobs.StatusFailed:
		err = d.notifier.NotifyJobFailed(ctx, title, failedStage(job), job.Error)
	case jobs.StatusCancelled:
		err = d.notifier.NotifyJobCancelled(ctx, title)
	default:
		return
	}
	if err != nil {
		d.logger.Warn("job notification failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

func jobDuration(job jobs.Job) time.Duration {
	if job.StartedAt == nil || job.CompletedAt == nil {
		return 0
	}
	return job.CompletedAt.Sub(*job.StartedAt)
}

func failedStage(job jobs.Job) string {
	for _, stage := range jobs.Stages() {
		if job.Stages[stage].Phase == jobs.StageFailed {
			return string(stage)
		}
	}
	return ""
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
