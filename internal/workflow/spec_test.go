package workflow_test

import (
	"strings"
	"testing"

	"reelforge/internal/workflow"
)

func validSpec() *workflow.Spec {
	return &workflow.Spec{
		Title: "Test Commercial",
		Shots: []workflow.Shot{
			{SceneDescription: "A mountain sunrise", DurationSeconds: 5},
			{SceneDescription: "A climber reaches the summit", DurationSeconds: 8},
		},
		Audio: workflow.AudioSpec{
			Voiceover: &workflow.VoiceoverSpec{Script: "Reach higher.", Style: "warm"},
		},
		Style: workflow.Style{AspectRatio: "16:9", VisualKeywords: []string{"cinematic", "natural light"}},
	}
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*workflow.Spec)
		want   string
	}{
		{"no shots", func(s *workflow.Spec) { s.Shots = nil }, "no shots"},
		{"blank scene", func(s *workflow.Spec) { s.Shots[1].SceneDescription = "  " }, "shot 2"},
		{"zero duration", func(s *workflow.Spec) { s.Shots[0].DurationSeconds = 0 }, "duration"},
		{"empty voiceover script", func(s *workflow.Spec) { s.Audio.Voiceover.Script = "" }, "script"},
		{"unnamed export", func(s *workflow.Spec) {
			s.Exports = []workflow.ExportTarget{{Resolution: "1920x1080"}}
		}, "no name"},
		{"transition out of range", func(s *workflow.Spec) {
			s.Transitions = []workflow.Transition{{After: 2, Kind: "fade"}}
		}, "out of range"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(spec)
			err := spec.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	data := []byte(`{
		"shots": [{"scene_description": "a quiet lake", "duration_seconds": 4}],
		"audio": {"music": {"description": "ambient piano"}},
		"style": {"aspect_ratio": "16:9"}
	}`)
	spec, err := workflow.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(spec.Shots) != 1 || spec.Audio.Music == nil {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := workflow.Parse([]byte(`{"shots": [`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExportTargetsFallBackToDefaults(t *testing.T) {
	spec := validSpec()
	targets := spec.ExportTargets()
	if len(targets) != 3 {
		t.Fatalf("default targets = %d, want 3", len(targets))
	}
	names := map[string]bool{}
	for _, target := range targets {
		names[target.Name] = true
	}
	for _, want := range []string{"youtube", "tiktok", "instagram"} {
		if !names[want] {
			t.Fatalf("default targets missing %q", want)
		}
	}

	spec.Exports = []workflow.ExportTarget{{Name: "web", AspectRatio: "16:9", Resolution: "1280x720"}}
	targets = spec.ExportTargets()
	if len(targets) != 1 || targets[0].Name != "web" {
		t.Fatalf("explicit targets not honored: %+v", targets)
	}
}

func TestKeyframePromptIncludesStyle(t *testing.T) {
	spec := validSpec()
	prompt := workflow.KeyframePrompt(spec.Shots[0], spec.Style)
	for _, want := range []string{"A mountain sunrise", "cinematic", "Cinematic still frame"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt %q missing %q", prompt, want)
		}
	}
}
