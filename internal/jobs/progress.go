package jobs

import "time"

// progressFunc builds the callback handed to the runner for one job. Events
// only ever move a job's progress forward; stale or duplicate reports are
// absorbed rather than rewinding state.
func (q *Queue) progressFunc(id string) ProgressFunc {
	return func(ev ProgressEvent) {
		if ev.At.IsZero() {
			ev.At = time.Now().UTC()
		}

		q.mu.Lock()
		defer q.mu.Unlock()

		rec, ok := q.records[id]
		if !ok || rec.job.Status != StatusRunning {
			return
		}

		state := rec.job.Stages[ev.Stage]
		switch ev.Phase {
		case StageStarted:
			if state.Phase == StagePending {
				state.Phase = StageStarted
			}
		case StageProgress:
			state.Phase = StageProgress
			if ev.Percent > state.Percent {
				state.Percent = ev.Percent
			}
		case StageComplete:
			state = StageState{Phase: StageComplete, Percent: 100}
		case StageFailed:
			state.Phase = StageFailed
		}
		rec.job.Stages[ev.Stage] = state

		if p := stageProgress(rec.job.Stages); p > rec.job.Progress {
			rec.job.Progress = p
		}

		rec.events = append(rec.events, ev)
		if q.eventHistory > 0 && len(rec.events) > q.eventHistory {
			rec.events = rec.events[len(rec.events)-q.eventHistory:]
		}
	}
}

// stageProgress maps completed stages to an overall fraction. The final bump
// to 1.0 is withheld so it lands together with the Completed status.
func stageProgress(states map[Stage]StageState) float64 {
	complete := 0
	for _, stage := range stageOrder {
		if states[stage].Phase == StageComplete {
			complete++
		}
	}
	if complete == len(stageOrder) {
		complete = len(stageOrder) - 1
	}
	return float64(complete) / float64(len(stageOrder))
}
