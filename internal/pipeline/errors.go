package pipeline

import (
	"errors"
	"fmt"

	"reelforge/internal/jobs"
)

// StageError wraps a failure with the stage it occurred in so callers can
// report which part of the pipeline broke.
type StageError struct {
	Stage jobs.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage extracts the stage from err when it carries one.
func FailedStage(err error) (jobs.Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
