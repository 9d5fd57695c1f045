// Package services holds the shared contracts for external generation
// backends: error classification markers and context plumbing for job, stage,
// and correlation identifiers. Concrete clients live in subpackages.
package services
