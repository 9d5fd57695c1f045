package main

import (
	"strings"
	"testing"
	"time"

	"reelforge/internal/api"
	"reelforge/internal/assets"
)

func TestRenderJobDetail(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(95 * time.Second)
	job := api.JobView{
		ID:       "0123456789abcdef",
		Title:    "Coffee at dawn",
		Status:   "completed",
		Progress: 1.0,
		Stages: map[string]api.StageView{
			"keyframes":   {Phase: "complete", Percent: 100},
			"videos":      {Phase: "complete", Percent: 100},
			"audio":       {Phase: "complete", Percent: 100},
			"composition": {Phase: "complete", Percent: 100},
			"export":      {Phase: "complete", Percent: 100},
		},
		Result: &api.ResultView{
			Master:  "abc123",
			Exports: map[string]assets.Ref{"youtube": "def456"},
		},
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	var sb strings.Builder
	renderJobDetail(&sb, job)
	out := sb.String()

	for _, want := range []string{
		"Job 01234567",
		"Coffee at dawn",
		"COMPLETED",
		"100%",
		"1m35s",
		"Keyframes",
		"Export youtube",
		"def456",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ansiGreen) {
		t.Error("non-terminal writer should not be colorized")
	}
}

func TestRenderJobDetailShowsError(t *testing.T) {
	job := api.JobView{
		ID:     "deadbeef",
		Status: "failed",
		Error:  "videos stage: render failed",
		Stages: map[string]api.StageView{
			"keyframes": {Phase: "complete", Percent: 100},
			"videos":    {Phase: "failed"},
		},
	}

	var sb strings.Builder
	renderJobDetail(&sb, job)
	out := sb.String()

	if !strings.Contains(out, "render failed") {
		t.Errorf("output missing error detail:\n%s", out)
	}
	if !strings.Contains(out, "(untitled)") {
		t.Errorf("output missing untitled placeholder:\n%s", out)
	}
}
