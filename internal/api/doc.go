// Package api defines wire-format types and converters for the HTTP API.
// It translates internal job models into transport-friendly DTOs so clients
// never couple to internal types.
//
// Enums (job status, stage, phase) are exposed as lowercase strings and
// timestamps as RFC3339. Asset references are content hashes; clients resolve
// them against the asset endpoints or the asset directory.
package api
