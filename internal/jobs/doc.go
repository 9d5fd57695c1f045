// Package jobs implements the in-memory job queue at the heart of reelforge.
//
// A Queue accepts workflow submissions, keeps every known job in a registry
// of immutable snapshots, and dispatches queued jobs in FIFO order to a
// Runner while never exceeding the configured worker budget. Cancellation is
// cooperative: queued jobs are cancelled in place, running jobs observe their
// context at stage and shot boundaries. Queueing depth is unbounded by
// design; only concurrent execution is limited.
package jobs
