package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reelforge/internal/assets"
	"reelforge/internal/workflow"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal statuses never
// transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus converts user input into a Status.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown job status %q", raw)
	}
}

// Stage names one step of the generation pipeline. Stages execute in the
// order returned by Stages.
type Stage string

const (
	StageKeyframes   Stage = "keyframes"
	StageVideos      Stage = "videos"
	StageAudio       Stage = "audio"
	StageComposition Stage = "composition"
	StageExport      Stage = "export"
)

var stageOrder = []Stage{StageKeyframes, StageVideos, StageAudio, StageComposition, StageExport}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// StagePhase describes how far along a single stage is.
type StagePhase string

const (
	StagePending  StagePhase = "pending"
	StageStarted  StagePhase = "started"
	StageProgress StagePhase = "progress"
	StageComplete StagePhase = "complete"
	StageFailed   StagePhase = "failed"
)

// StageState is the per-stage detail surfaced to callers.
type StageState struct {
	Phase   StagePhase `json:"phase"`
	Percent int        `json:"percent"`
}

// ProgressEvent is one progress report emitted by the pipeline while a job
// runs.
type ProgressEvent struct {
	Stage   Stage      `json:"stage"`
	Phase   StagePhase `json:"phase"`
	Percent int        `json:"percent"`
	At      time.Time  `json:"at"`
}

// ProgressFunc receives progress events for one job. Implementations must be
// safe to call from the goroutine executing the job.
type ProgressFunc func(ProgressEvent)

// Runner executes the generation pipeline for one job. The queue treats it as
// a black box: on error the job is marked Failed (or Cancelled when the error
// is the context's), and any partial result returned alongside the error is
// retained for diagnostics.
type Runner interface {
	Run(ctx context.Context, jobID string, spec *workflow.Spec, publish ProgressFunc) (*Result, error)
}

// Result references everything a job produced. Slices are indexed by shot.
type Result struct {
	Keyframes []assets.Ref          `json:"keyframes,omitempty"`
	Clips     []assets.Ref          `json:"clips,omitempty"`
	Voiceover assets.Ref            `json:"voiceover,omitempty"`
	Music     assets.Ref            `json:"music,omitempty"`
	Master    assets.Ref            `json:"master,omitempty"`
	Exports   map[string]assets.Ref `json:"exports,omitempty"`
}

// Clone returns a deep copy of the result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Keyframes: append([]assets.Ref(nil), r.Keyframes...),
		Clips:     append([]assets.Ref(nil), r.Clips...),
		Voiceover: r.Voiceover,
		Music:     r.Music,
		Master:    r.Master,
	}
	if r.Exports != nil {
		out.Exports = make(map[string]assets.Ref, len(r.Exports))
		for name, ref := range r.Exports {
			out.Exports[name] = ref
		}
	}
	return out
}

// Job is one submitted generation request. Values handed to callers are
// snapshots: point-in-time copies that never mutate. The spec is shared
// across snapshots and treated as immutable after submission.
type Job struct {
	ID          string
	Spec        *workflow.Spec
	Status      Status
	Progress    float64
	Stages      map[Stage]StageState
	Result      *Result
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func (j Job) clone() Job {
	out := j
	out.Stages = make(map[Stage]StageState, len(j.Stages))
	for stage, state := range j.Stages {
		out.Stages[stage] = state
	}
	out.Result = j.Result.Clone()
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func newStageStates() map[Stage]StageState {
	states := make(map[Stage]StageState, len(stageOrder))
	for _, stage := range stageOrder {
		states[stage] = StageState{Phase: StagePending}
	}
	return states
}
