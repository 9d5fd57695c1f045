package composer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/workflow"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Composer assembles shot clips and audio tracks into a master render using
// ffmpeg, and transcodes the master into delivery formats.
type Composer struct {
	cfg    config.Composer
	logger *slog.Logger
	run    commandRunner
}

// New constructs a composer from the ffmpeg configuration.
func New(cfg config.Composer, logger *slog.Logger) *Composer {
	return &Composer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "composer"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Composer) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// Compose concatenates the clips, mixes in any audio tracks, and writes the
// master render to req.OutputPath.
func (c *Composer) Compose(ctx context.Context, req pipeline.ComposeRequest) error {
	if len(req.Clips) == 0 {
		return fmt.Errorf("compose: no clips")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return fmt.Errorf("compose: output path is required")
	}
	for i, clip := range req.Clips {
		if _, err := os.Stat(clip); err != nil {
			return fmt.Errorf("compose: clip %d not found: %w", i+1, err)
		}
	}

	args := c.buildComposeArgs(req)
	c.logger.Debug("executing ffmpeg compose",
		logging.Int("clips", len(req.Clips)),
		logging.Bool("voiceover", req.Voiceover != ""),
		logging.Bool("music", req.Music != ""),
		logging.Int("transitions", len(req.Transitions)),
	)

	if err := c.run(ctx, c.binary(), args...); err != nil {
		return fmt.Errorf("ffmpeg compose: %w", err)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return fmt.Errorf("ffmpeg compose produced no output: %w", err)
	}
	return nil
}

// Transcode converts the master render into the target delivery format.
func (c *Composer) Transcode(ctx context.Context, masterPath string, target workflow.ExportTarget, outputPath string) error {
	if _, err := os.Stat(masterPath); err != nil {
		return fmt.Errorf("transcode: master not found: %w", err)
	}

	filter, err := scaleFilter(target.AspectRatio, target.Resolution)
	if err != nil {
		return fmt.Errorf("transcode %s: %w", target.Name, err)
	}

	args := []string{
		"-y",
		"-i", masterPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", c.preset(),
		"-crf", strconv.Itoa(c.crf()),
		"-c:a", "copy",
		outputPath,
	}

	c.logger.Debug("executing ffmpeg transcode",
		logging.String("target", target.Name),
		logging.String("resolution", target.Resolution),
	)

	if err := c.run(ctx, c.binary(), args...); err != nil {
		return fmt.Errorf("ffmpeg transcode %s: %w", target.Name, err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("ffmpeg transcode %s produced no output: %w", target.Name, err)
	}
	return nil
}

func (c *Composer) buildComposeArgs(req pipeline.ComposeRequest) []string {
	args := []string{"-y"}
	for _, clip := range req.Clips {
		args = append(args, "-i", clip)
	}

	audioCount := 0
	if req.Voiceover != "" {
		args = append(args, "-i", req.Voiceover)
		audioCount++
	}
	if req.Music != "" {
		args = append(args, "-i", req.Music)
		audioCount++
	}

	args = append(args,
		"-filter_complex", buildFilterChain(len(req.Clips), req.ClipDurations, req.Transitions, audioCount),
		"-map", "[outv]",
		"-c:v", "libx264",
		"-preset", c.preset(),
		"-crf", strconv.Itoa(c.crf()),
		"-pix_fmt", "yuv420p",
	)
	if audioCount > 0 {
		args = append(args,
			"-map", "[outa]",
			"-c:a", "aac",
			"-b:a", c.audioBitrate(),
		)
	}
	return append(args, req.OutputPath)
}

func (c *Composer) binary() string {
	if c.cfg.FFmpegBinary != "" {
		return c.cfg.FFmpegBinary
	}
	return "ffmpeg"
}

func (c *Composer) preset() string {
	if c.cfg.Preset != "" {
		return c.cfg.Preset
	}
	return "medium"
}

func (c *Composer) crf() int {
	if c.cfg.CRF > 0 {
		return c.cfg.CRF
	}
	return 23
}

func (c *Composer) audioBitrate() string {
	if c.cfg.AudioBitrate != "" {
		return c.cfg.AudioBitrate
	}
	return "192k"
}

// scaleFilter builds the scale/crop/pad filter for a delivery format. Portrait
// and square targets crop to fill; landscape letterboxes to fit.
func scaleFilter(aspectRatio, resolution string) (string, error) {
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed resolution %q", resolution)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return "", fmt.Errorf("malformed resolution %q", resolution)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return "", fmt.Errorf("malformed resolution %q", resolution)
	}

	switch aspectRatio {
	case "1:1", "9:16":
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", width, height, width, height), nil
	default:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, height, width, height), nil
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 500 {
			detail = detail[len(detail)-500:]
		}
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
