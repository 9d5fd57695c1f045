package pipeline

import (
	"context"

	"reelforge/internal/workflow"
)

// KeyframeGenerator produces a still image for a shot prompt. Implementations
// return the encoded image bytes.
type KeyframeGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// VideoGenerator animates a keyframe into a clip. The keyframe is supplied as
// a local file path; the returned path points at the rendered clip inside
// workDir.
type VideoGenerator interface {
	Animate(ctx context.Context, keyframePath, prompt string, durationSeconds float64, workDir string) (string, error)
}

// SpeechGenerator synthesizes a narration track from a script.
type SpeechGenerator interface {
	Synthesize(ctx context.Context, script, style string) ([]byte, error)
}

// MusicGenerator produces a background music track.
type MusicGenerator interface {
	Compose(ctx context.Context, spec workflow.MusicSpec) ([]byte, error)
}

// ComposeRequest carries everything the composer needs to assemble the master
// render. Clip paths and durations are ordered by shot; audio paths are empty
// when the spec has no matching track.
type ComposeRequest struct {
	Clips         []string
	ClipDurations []float64
	Voiceover     string
	Music         string
	Transitions   []workflow.Transition
	OutputPath    string
}

// Composer assembles clips and audio into a master render and transcodes the
// master into delivery formats.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) error
	Transcode(ctx context.Context, masterPath string, target workflow.ExportTarget, outputPath string) error
}

// Capabilities bundles the generation backends available to the executor. Any
// entry may be nil; jobs that need a missing capability fail at the stage that
// first requires it.
type Capabilities struct {
	Keyframes KeyframeGenerator
	Videos    VideoGenerator
	Speech    SpeechGenerator
	Music     MusicGenerator
	Composer  Composer
}
