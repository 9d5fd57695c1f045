package api

import (
	"reelforge/internal/deps"
	"reelforge/internal/jobs"
)

// FromJob converts a job snapshot into its wire representation.
func FromJob(job jobs.Job) JobView {
	view := JobView{
		ID:          job.ID,
		Status:      string(job.Status),
		Progress:    job.Progress,
		Stages:      make(map[string]StageView, len(job.Stages)),
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Spec != nil {
		view.Title = job.Spec.Title
		view.Shots = len(job.Spec.Shots)
	}
	for stage, state := range job.Stages {
		view.Stages[string(stage)] = StageView{Phase: string(state.Phase), Percent: state.Percent}
	}
	view.Result = fromResult(job.Result)
	return view
}

// FromJobs converts a slice of snapshots, preserving order.
func FromJobs(list []jobs.Job) []JobView {
	views := make([]JobView, len(list))
	for i, job := range list {
		views[i] = FromJob(job)
	}
	return views
}

// FromEvents converts a job's progress history.
func FromEvents(events []jobs.ProgressEvent) []EventView {
	views := make([]EventView, len(events))
	for i, ev := range events {
		views[i] = EventView{
			Stage:   string(ev.Stage),
			Phase:   string(ev.Phase),
			Percent: ev.Percent,
			At:      ev.At,
		}
	}
	return views
}

// FromStats converts registry counts.
func FromStats(stats jobs.Stats) QueueStats {
	return QueueStats{
		Queued:        stats.Queued,
		Running:       stats.Running,
		Completed:     stats.Completed,
		Failed:        stats.Failed,
		Cancelled:     stats.Cancelled,
		MaxConcurrent: stats.MaxConcurrent,
	}
}

// FromDependencies converts external tool statuses.
func FromDependencies(statuses []deps.Status) []DependencyView {
	if len(statuses) == 0 {
		return nil
	}
	views := make([]DependencyView, len(statuses))
	for i, status := range statuses {
		views[i] = DependencyView{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		}
	}
	return views
}

func fromResult(result *jobs.Result) *ResultView {
	if result == nil {
		return nil
	}
	return &ResultView{
		Keyframes: result.Keyframes,
		Clips:     result.Clips,
		Voiceover: result.Voiceover,
		Music:     result.Music,
		Master:    result.Master,
		Exports:   result.Exports,
	}
}
