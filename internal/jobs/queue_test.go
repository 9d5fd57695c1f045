package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelforge/internal/assets"
	"reelforge/internal/jobs"
	"reelforge/internal/logging"
	"reelforge/internal/testsupport"
	"reelforge/internal/workflow"
)

type stubRunner struct {
	mu      sync.Mutex
	started []string

	active  int32
	maxSeen int32

	run func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error)
}

func (r *stubRunner) Run(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
	r.mu.Lock()
	r.started = append(r.started, id)
	r.mu.Unlock()

	active := atomic.AddInt32(&r.active, 1)
	for {
		seen := atomic.LoadInt32(&r.maxSeen)
		if active <= seen || atomic.CompareAndSwapInt32(&r.maxSeen, seen, active) {
			break
		}
	}
	defer atomic.AddInt32(&r.active, -1)

	if r.run != nil {
		return r.run(ctx, id, spec, publish)
	}
	return &jobs.Result{}, nil
}

func (r *stubRunner) startedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

func testSpec(shots int) *workflow.Spec {
	spec := &workflow.Spec{}
	for i := 0; i < shots; i++ {
		spec.Shots = append(spec.Shots, workflow.Shot{
			SceneDescription: fmt.Sprintf("scene %d", i+1),
			DurationSeconds:  5,
		})
	}
	return spec
}

func newTestQueue(t *testing.T, runner jobs.Runner, opts ...testsupport.ConfigOption) *jobs.Queue {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	q := jobs.NewQueue(cfg, runner, logging.NewNop())
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(q.Stop)
	return q
}

func waitForStatus(t *testing.T, q *jobs.Queue, id string, want jobs.Status) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if job.Status == want {
			return job
		}
		if job.Status.Terminal() {
			t.Fatalf("job %s reached terminal status %s, want %s (error: %s)", id, job.Status, want, job.Error)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for job %s to reach %s", id, want)
	return jobs.Job{}
}

func TestFIFODispatchOrder(t *testing.T) {
	runner := &stubRunner{}
	q := newTestQueue(t, runner, testsupport.WithMaxConcurrent(1))

	var submitted []string
	for i := 0; i < 5; i++ {
		id, err := q.Submit(testSpec(1))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		submitted = append(submitted, id)
	}

	for _, id := range submitted {
		waitForStatus(t, q, id, jobs.StatusCompleted)
	}

	started := runner.startedIDs()
	if len(started) != len(submitted) {
		t.Fatalf("started %d jobs, want %d", len(started), len(submitted))
	}
	for i := range submitted {
		if started[i] != submitted[i] {
			t.Fatalf("start order %v does not match submission order %v", started, submitted)
		}
	}
}

func TestConcurrencyBoundNeverExceeded(t *testing.T) {
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			time.Sleep(10 * time.Millisecond)
			return &jobs.Result{}, nil
		},
	}
	q := newTestQueue(t, runner, testsupport.WithMaxConcurrent(3))

	var ids []string
	for i := 0; i < 12; i++ {
		id, err := q.Submit(testSpec(1))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		waitForStatus(t, q, id, jobs.StatusCompleted)
	}

	if max := atomic.LoadInt32(&runner.maxSeen); max > 3 {
		t.Fatalf("observed %d simultaneous jobs, bound is 3", max)
	}
}

func TestNoSlotLeaksAcrossFailures(t *testing.T) {
	var counter int32
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			if atomic.AddInt32(&counter, 1)%2 == 0 {
				return nil, errors.New("induced failure")
			}
			return &jobs.Result{}, nil
		},
	}
	q := newTestQueue(t, runner, testsupport.WithMaxConcurrent(2))

	var ids []string
	for i := 0; i < 10; i++ {
		id, err := q.Submit(testSpec(1))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, id)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		stats := q.Stats()
		if stats.Completed+stats.Failed == len(ids) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("jobs did not drain: %+v", stats)
		}
		time.Sleep(2 * time.Millisecond)
	}

	stats := q.Stats()
	if stats.Running != 0 || stats.Queued != 0 {
		t.Fatalf("queue did not drain to idle: %+v", stats)
	}

	// A fresh job must still find a free slot.
	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit after drain failed: %v", err)
	}
	waitForStatus(t, q, id, jobs.StatusCompleted)
}

func TestCancelQueuedJobNeverRuns(t *testing.T) {
	release := make(chan struct{})
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &jobs.Result{}, nil
		},
	}
	q := newTestQueue(t, runner, testsupport.WithMaxConcurrent(1))

	first, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForStatus(t, q, first, jobs.StatusRunning)

	second, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	third, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if !q.Cancel(second) {
		t.Fatal("Cancel of queued job returned false")
	}
	job, err := q.Get(second)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != jobs.StatusCancelled {
		t.Fatalf("queued job status = %s after cancel, want cancelled", job.Status)
	}
	if job.StartedAt != nil {
		t.Fatal("cancelled queued job has a start timestamp")
	}

	close(release)
	waitForStatus(t, q, first, jobs.StatusCompleted)
	waitForStatus(t, q, third, jobs.StatusCompleted)

	for _, id := range runner.startedIDs() {
		if id == second {
			t.Fatal("cancelled job was dispatched to the runner")
		}
	}
}

func TestCancelRunningJob(t *testing.T) {
	entered := make(chan struct{})
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	q := newTestQueue(t, runner)

	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	<-entered

	if !q.Cancel(id) {
		t.Fatal("Cancel of running job returned false")
	}
	job := waitForStatus(t, q, id, jobs.StatusCancelled)
	if job.Error != "" {
		t.Fatalf("cancelled job carries error %q", job.Error)
	}
	if job.CompletedAt == nil {
		t.Fatal("cancelled job has no completion timestamp")
	}
}

func TestCancelIdempotence(t *testing.T) {
	entered := make(chan struct{})
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	q := newTestQueue(t, runner)

	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	<-entered

	q.Cancel(id)
	q.Cancel(id)
	job := waitForStatus(t, q, id, jobs.StatusCancelled)

	// Terminal states are final: further cancels are rejected and change nothing.
	if q.Cancel(id) {
		t.Fatal("Cancel on terminal job returned true")
	}
	after, err := q.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.Status != job.Status || !after.CompletedAt.Equal(*job.CompletedAt) {
		t.Fatal("Cancel on terminal job altered its state")
	}
}

func TestCancelCompletedJobReturnsFalse(t *testing.T) {
	runner := &stubRunner{}
	q := newTestQueue(t, runner)

	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForStatus(t, q, id, jobs.StatusCompleted)

	if q.Cancel(id) {
		t.Fatal("Cancel on completed job returned true")
	}
}

func TestMonotonicProgress(t *testing.T) {
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			for _, stage := range jobs.Stages() {
				publish(jobs.ProgressEvent{Stage: stage, Phase: jobs.StageStarted})
				publish(jobs.ProgressEvent{Stage: stage, Phase: jobs.StageProgress, Percent: 50})
				publish(jobs.ProgressEvent{Stage: stage, Phase: jobs.StageComplete, Percent: 100})
				time.Sleep(time.Millisecond)
			}
			return &jobs.Result{}, nil
		},
	}
	q := newTestQueue(t, runner)

	id, err := q.Submit(testSpec(2))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var samples []jobs.Job
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		samples = append(samples, job)
		if job.Status.Terminal() {
			break
		}
	}

	final := samples[len(samples)-1]
	if final.Status != jobs.StatusCompleted {
		t.Fatalf("job ended %s: %s", final.Status, final.Error)
	}
	if final.Progress != 1.0 {
		t.Fatalf("completed job progress = %g, want 1.0", final.Progress)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Progress < samples[i-1].Progress {
			t.Fatalf("progress regressed from %g to %g", samples[i-1].Progress, samples[i].Progress)
		}
		if samples[i].Progress >= 1.0 && samples[i].Status != jobs.StatusCompleted {
			t.Fatalf("progress hit 1.0 while status was %s", samples[i].Status)
		}
	}
	for _, stage := range jobs.Stages() {
		if final.Stages[stage].Phase != jobs.StageComplete {
			t.Fatalf("stage %s phase = %s, want complete", stage, final.Stages[stage].Phase)
		}
	}
}

func TestRunnerPanicIsolatedToJob(t *testing.T) {
	var calls int32
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				panic("stage blew up")
			}
			return &jobs.Result{}, nil
		},
	}
	q := newTestQueue(t, runner)

	bad, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	job := waitForStatus(t, q, bad, jobs.StatusFailed)
	if job.Error == "" {
		t.Fatal("panicked job carries no error")
	}

	good, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForStatus(t, q, good, jobs.StatusCompleted)
}

func TestFailedJobKeepsPartialResult(t *testing.T) {
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			publish(jobs.ProgressEvent{Stage: jobs.StageKeyframes, Phase: jobs.StageComplete, Percent: 100})
			publish(jobs.ProgressEvent{Stage: jobs.StageVideos, Phase: jobs.StageFailed})
			partial := &jobs.Result{Keyframes: []assets.Ref{"a", "b", "c", "d"}}
			return partial, errors.New("video backend unavailable")
		},
	}
	q := newTestQueue(t, runner)

	id, err := q.Submit(testSpec(4))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	job := waitForStatus(t, q, id, jobs.StatusFailed)

	if job.Error == "" {
		t.Fatal("failed job carries no error")
	}
	if job.Result == nil {
		t.Fatal("failed job lost its partial result")
	}
	if len(job.Result.Keyframes) != 4 {
		t.Fatalf("partial result holds %d keyframes, want 4", len(job.Result.Keyframes))
	}
	if job.Stages[jobs.StageKeyframes].Phase != jobs.StageComplete {
		t.Fatalf("keyframes phase = %s, want complete", job.Stages[jobs.StageKeyframes].Phase)
	}
	if job.Stages[jobs.StageVideos].Phase != jobs.StageFailed {
		t.Fatalf("videos phase = %s, want failed", job.Stages[jobs.StageVideos].Phase)
	}
}

func TestSubmitValidation(t *testing.T) {
	q := newTestQueue(t, &stubRunner{})

	if _, err := q.Submit(nil); !errors.Is(err, jobs.ErrEmptySpec) {
		t.Fatalf("Submit(nil) error = %v, want ErrEmptySpec", err)
	}
	if _, err := q.Submit(&workflow.Spec{}); !errors.Is(err, jobs.ErrEmptySpec) {
		t.Fatalf("Submit(empty) error = %v, want ErrEmptySpec", err)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	q := jobs.NewQueue(cfg, &stubRunner{}, logging.NewNop())
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	q.Stop()

	if _, err := q.Submit(testSpec(1)); !errors.Is(err, jobs.ErrQueueStopped) {
		t.Fatalf("Submit after Stop error = %v, want ErrQueueStopped", err)
	}
}

func TestGetUnknownJob(t *testing.T) {
	q := newTestQueue(t, &stubRunner{})
	if _, err := q.Get("missing"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("Get unknown error = %v, want ErrNotFound", err)
	}
	if q.Cancel("missing") {
		t.Fatal("Cancel unknown id returned true")
	}
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	release := make(chan struct{})
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			select {
			case <-release:
				return &jobs.Result{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	q := newTestQueue(t, runner, testsupport.WithMaxConcurrent(1))

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := q.Submit(testSpec(1))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, id)
	}
	waitForStatus(t, q, ids[0], jobs.StatusRunning)

	all := q.List()
	if len(all) != 3 {
		t.Fatalf("List returned %d jobs, want 3", len(all))
	}
	for i, job := range all {
		if want := ids[len(ids)-1-i]; job.ID != want {
			t.Fatalf("List[%d] = %s, want %s (newest first)", i, job.ID, want)
		}
	}

	queued := q.List(jobs.StatusQueued)
	if len(queued) != 2 {
		t.Fatalf("List(queued) returned %d jobs, want 2", len(queued))
	}

	close(release)
	for _, id := range ids {
		waitForStatus(t, q, id, jobs.StatusCompleted)
	}
}

func TestSnapshotsAreIsolatedFromLiveState(t *testing.T) {
	q := newTestQueue(t, &stubRunner{})
	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	job := waitForStatus(t, q, id, jobs.StatusCompleted)

	job.Stages[jobs.StageKeyframes] = jobs.StageState{Phase: jobs.StageFailed}
	fresh, err := q.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fresh.Stages[jobs.StageKeyframes].Phase == jobs.StageFailed {
		t.Fatal("mutating a snapshot leaked into the registry")
	}
}

func TestEventsRetainedPerJob(t *testing.T) {
	runner := &stubRunner{
		run: func(ctx context.Context, id string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
			publish(jobs.ProgressEvent{Stage: jobs.StageKeyframes, Phase: jobs.StageStarted})
			publish(jobs.ProgressEvent{Stage: jobs.StageKeyframes, Phase: jobs.StageProgress, Percent: 50})
			publish(jobs.ProgressEvent{Stage: jobs.StageKeyframes, Phase: jobs.StageComplete, Percent: 100})
			return &jobs.Result{}, nil
		},
	}
	q := newTestQueue(t, runner)

	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForStatus(t, q, id, jobs.StatusCompleted)

	events, err := q.Events(id)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("retained %d events, want 3", len(events))
	}
	if events[0].Phase != jobs.StageStarted || events[2].Phase != jobs.StageComplete {
		t.Fatalf("unexpected event order: %+v", events)
	}
}

func TestTerminalHookReceivesSnapshots(t *testing.T) {
	var mu sync.Mutex
	var seen []jobs.Status
	cfg := testsupport.NewConfig(t)
	q := jobs.NewQueue(cfg, &stubRunner{}, logging.NewNop(), jobs.WithTerminalHook(func(job jobs.Job) {
		mu.Lock()
		seen = append(seen, job.Status)
		mu.Unlock()
	}))
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(q.Stop)

	id, err := q.Submit(testSpec(1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForStatus(t, q, id, jobs.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != jobs.StatusCompleted {
		t.Fatalf("terminal hook observed %v", seen)
	}
}
