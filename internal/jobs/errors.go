package jobs

import "errors"

var (
	// ErrQueueStopped is returned by Submit after the queue has shut down.
	ErrQueueStopped = errors.New("job queue is stopped")
	// ErrNotFound is returned for lookups of unknown job ids.
	ErrNotFound = errors.New("job not found")
	// ErrEmptySpec rejects submissions whose spec has no shots to execute.
	ErrEmptySpec = errors.New("workflow spec has no shots")
)
