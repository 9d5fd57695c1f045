// Package pipeline executes the generation stages for a job: keyframes,
// videos, audio, composition, export. The executor satisfies the queue's
// Runner contract; each stage is all-or-nothing and shot-level work fans out
// under a configurable bound.
package pipeline
