package api

import (
	"time"

	"reelforge/internal/assets"
)

// SubmitRequest creates a job from either a full workflow spec or a
// natural-language prompt the daemon expands through the planner. Exactly one
// of the two should be set; a spec wins when both are.
type SubmitRequest struct {
	Spec   map[string]any `json:"spec,omitempty"`
	Prompt string         `json:"prompt,omitempty"`
}

// SubmitResponse returns the identifier of the accepted job.
type SubmitResponse struct {
	ID string `json:"id"`
}

// StageView is the per-stage progress detail of a job.
type StageView struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
}

// ResultView references the artifacts a job produced.
type ResultView struct {
	Keyframes []assets.Ref          `json:"keyframes,omitempty"`
	Clips     []assets.Ref          `json:"clips,omitempty"`
	Voiceover assets.Ref            `json:"voiceover,omitempty"`
	Music     assets.Ref            `json:"music,omitempty"`
	Master    assets.Ref            `json:"master,omitempty"`
	Exports   map[string]assets.Ref `json:"exports,omitempty"`
}

// JobView is the wire representation of a job snapshot.
type JobView struct {
	ID          string               `json:"id"`
	Title       string               `json:"title,omitempty"`
	Status      string               `json:"status"`
	Progress    float64              `json:"progress"`
	Stages      map[string]StageView `json:"stages"`
	Result      *ResultView          `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
	Shots       int                  `json:"shots"`
	CreatedAt   time.Time            `json:"created_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// EventView is one progress event from a job's history.
type EventView struct {
	Stage   string    `json:"stage"`
	Phase   string    `json:"phase"`
	Percent int       `json:"percent"`
	At      time.Time `json:"at"`
}

// EventListResponse wraps a job's progress event history.
type EventListResponse struct {
	JobID  string      `json:"job_id"`
	Events []EventView `json:"events"`
}

// CancelResponse reports the outcome of a cancellation request.
type CancelResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
	Status    string `json:"status"`
}

// QueueStats summarizes registry counts by status.
type QueueStats struct {
	Queued        int `json:"queued"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	MaxConcurrent int `json:"max_concurrent"`
}

// DependencyView reports the availability of one external tool.
type DependencyView struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse is the daemon status document.
type StatusResponse struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	Queue        QueueStats       `json:"queue"`
	Assets       int              `json:"assets"`
	LockFilePath string           `json:"lock_file_path"`
	Dependencies []DependencyView `json:"dependencies,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
