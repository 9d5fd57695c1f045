package testsupport

import (
	"path/filepath"
	"testing"

	"reelforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.AssetDir = filepath.Join(base, "assets")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Queue.MaxConcurrent = 1
	cfg.Queue.ShotConcurrency = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxConcurrent overrides the queue worker budget on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(c *config.Config) {
		c.Queue.MaxConcurrent = n
	}
}

// WithShotConcurrency overrides the per-stage fan-out bound on the test config.
func WithShotConcurrency(n int) ConfigOption {
	return func(c *config.Config) {
		c.Queue.ShotConcurrency = n
	}
}
