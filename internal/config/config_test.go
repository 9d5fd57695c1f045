package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelforge/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Queue.MaxConcurrent < 1 {
		t.Fatalf("default max_concurrent = %d, want >= 1", cfg.Queue.MaxConcurrent)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
asset_dir = "` + filepath.Join(dir, "assets") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[queue]
max_concurrent = 5
shot_concurrency = 2

[logging]
level = "DEBUG"
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Queue.MaxConcurrent != 5 {
		t.Fatalf("max_concurrent = %d, want 5", cfg.Queue.MaxConcurrent)
	}
	if cfg.Queue.ShotConcurrency != 2 {
		t.Fatalf("shot_concurrency = %d, want 2", cfg.Queue.ShotConcurrency)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Queue.EventHistory != 64 {
		t.Fatalf("event_history default lost: %d", cfg.Queue.EventHistory)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("missing file should not be reported as existing")
	}
	if cfg.Composer.FFmpegBinary != "ffmpeg" {
		t.Fatalf("ffmpeg binary default = %q", cfg.Composer.FFmpegBinary)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero workers", func(c *config.Config) { c.Queue.MaxConcurrent = 0 }, "max_concurrent"},
		{"zero shot concurrency", func(c *config.Config) { c.Queue.ShotConcurrency = 0 }, "shot_concurrency"},
		{"bad crf", func(c *config.Config) { c.Composer.CRF = 99 }, "crf"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
