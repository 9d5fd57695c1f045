// Package daemon wires the job queue, pipeline, asset store, and HTTP API
// into a long-running background process. A lock file guarantees a single
// daemon instance per data directory.
package daemon
