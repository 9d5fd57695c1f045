package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.AssetDir) == "" {
		problems = append(problems, "paths.asset_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Queue.MaxConcurrent < 1 {
		problems = append(problems, fmt.Sprintf("queue.max_concurrent must be at least 1, got %d", c.Queue.MaxConcurrent))
	}
	if c.Queue.ShotConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("queue.shot_concurrency must be at least 1, got %d", c.Queue.ShotConcurrency))
	}
	if c.Queue.EventHistory < 0 {
		problems = append(problems, "queue.event_history must not be negative")
	}
	if c.Composer.CRF < 0 || c.Composer.CRF > 51 {
		problems = append(problems, fmt.Sprintf("composer.crf must be between 0 and 51, got %d", c.Composer.CRF))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}

	for name, svc := range map[string]Service{
		"planner":  c.Planner,
		"imagegen": c.ImageGen,
		"videogen": c.VideoGen,
		"speech":   c.Speech,
	} {
		if svc.TimeoutSeconds < 0 {
			problems = append(problems, fmt.Sprintf("%s.timeout_seconds must not be negative", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
