package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Spec is the structured workflow plan a job executes. The scheduler treats it
// as opaque beyond iterating shots and checking which stages are present; the
// fields exist so the pipeline can hand each piece to the right backend.
type Spec struct {
	Title       string         `json:"title,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
	Shots       []Shot         `json:"shots"`
	Audio       AudioSpec      `json:"audio"`
	Style       Style          `json:"style"`
	Transitions []Transition   `json:"transitions,omitempty"`
	Exports     []ExportTarget `json:"exports,omitempty"`
}

// Shot describes one scene of the plan. Each shot carries its keyframe and
// clip through the pipeline independently of its siblings.
type Shot struct {
	SceneDescription string  `json:"scene_description"`
	Framing          string  `json:"framing,omitempty"`
	CameraMovement   string  `json:"camera_movement,omitempty"`
	Lighting         string  `json:"lighting,omitempty"`
	Mood             string  `json:"mood,omitempty"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// AudioSpec describes the audio tracks to generate. Both parts are optional.
type AudioSpec struct {
	Voiceover *VoiceoverSpec `json:"voiceover,omitempty"`
	Music     *MusicSpec     `json:"music,omitempty"`
}

// VoiceoverSpec describes a spoken narration track.
type VoiceoverSpec struct {
	Script string `json:"script"`
	Style  string `json:"style,omitempty"`
}

// MusicSpec describes a background music track.
type MusicSpec struct {
	Description     string  `json:"description"`
	Genre           string  `json:"genre,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Style carries the visual direction applied across every shot.
type Style struct {
	AspectRatio    string   `json:"aspect_ratio,omitempty"`
	VisualKeywords []string `json:"visual_keywords,omitempty"`
	ColorPalette   []string `json:"color_palette,omitempty"`
}

// Transition describes the cut between shot After and shot After+1.
type Transition struct {
	After           int     `json:"after"`
	Kind            string  `json:"kind"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ExportTarget names one delivery format derived from the composed master.
type ExportTarget struct {
	Name        string `json:"name"`
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
}

// DefaultExports returns the delivery formats produced when a spec names none.
func DefaultExports() []ExportTarget {
	return []ExportTarget{
		{Name: "youtube", AspectRatio: "16:9", Resolution: "1920x1080"},
		{Name: "tiktok", AspectRatio: "9:16", Resolution: "1080x1920"},
		{Name: "instagram", AspectRatio: "1:1", Resolution: "1080x1080"},
	}
}

// Parse decodes and validates a JSON workflow spec.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workflow spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the spec for structural problems that would make the
// pipeline fail immediately.
func (s *Spec) Validate() error {
	if s == nil {
		return fmt.Errorf("workflow spec is nil")
	}
	if len(s.Shots) == 0 {
		return fmt.Errorf("workflow spec has no shots")
	}
	for i, shot := range s.Shots {
		if strings.TrimSpace(shot.SceneDescription) == "" {
			return fmt.Errorf("shot %d has no scene description", i+1)
		}
		if shot.DurationSeconds <= 0 {
			return fmt.Errorf("shot %d has non-positive duration %g", i+1, shot.DurationSeconds)
		}
	}
	if s.Audio.Voiceover != nil && strings.TrimSpace(s.Audio.Voiceover.Script) == "" {
		return fmt.Errorf("voiceover present but script is empty")
	}
	for i, target := range s.Exports {
		if strings.TrimSpace(target.Name) == "" {
			return fmt.Errorf("export target %d has no name", i+1)
		}
		if strings.TrimSpace(target.Resolution) == "" {
			return fmt.Errorf("export target %q has no resolution", target.Name)
		}
	}
	for _, tr := range s.Transitions {
		if tr.After < 1 || tr.After >= len(s.Shots) {
			return fmt.Errorf("transition after shot %d is out of range", tr.After)
		}
	}
	return nil
}

// ExportTargets returns the spec's export formats, falling back to the
// defaults when the spec names none.
func (s *Spec) ExportTargets() []ExportTarget {
	if len(s.Exports) > 0 {
		return s.Exports
	}
	return DefaultExports()
}

// KeyframePrompt builds the image-generation prompt for one shot.
func KeyframePrompt(shot Shot, style Style) string {
	parts := []string{shot.SceneDescription}
	if shot.Framing != "" {
		parts = append(parts, "Framing: "+shot.Framing)
	}
	if shot.Lighting != "" {
		parts = append(parts, "Lighting: "+shot.Lighting)
	}
	if shot.Mood != "" {
		parts = append(parts, "Mood: "+shot.Mood)
	}
	if len(style.VisualKeywords) > 0 {
		parts = append(parts, "Style: "+strings.Join(style.VisualKeywords, ", "))
	}
	if len(style.ColorPalette) > 0 {
		parts = append(parts, "Colors: "+strings.Join(style.ColorPalette, ", "))
	}
	return strings.Join(parts, ". ") + ". Cinematic still frame, high quality, professional cinematography."
}

// VideoPrompt builds the image-to-video prompt for one shot.
func VideoPrompt(shot Shot) string {
	parts := []string{shot.SceneDescription}
	if shot.CameraMovement != "" {
		parts = append(parts, shot.CameraMovement)
	}
	if shot.Lighting != "" {
		parts = append(parts, shot.Lighting)
	}
	return strings.Join(parts, ". ") + "."
}
