// Package workflow defines the structured plan a generation job executes:
// the shot list, audio direction, visual style, and export formats. Plans are
// produced by the planner service or supplied directly by API callers.
package workflow
