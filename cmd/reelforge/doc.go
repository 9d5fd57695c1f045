// Package main hosts the ReelForge CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the reelforged daemon: job submission, listing, inspection,
// cancellation, progress history, daemon status, and configuration
// scaffolding.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
