package main

import (
	"log/slog"

	"reelforge/internal/config"
	"reelforge/internal/pipeline"
	"reelforge/internal/services/composer"
	"reelforge/internal/services/imagegen"
	"reelforge/internal/services/speech"
	"reelforge/internal/services/videogen"
)

func buildCapabilities(cfg *config.Config, logger *slog.Logger) pipeline.Capabilities {
	speechClient := speech.NewClient(cfg.Speech)
	return pipeline.Capabilities{
		Keyframes: imagegen.NewClient(cfg.ImageGen),
		Videos:    videogen.NewClient(cfg.VideoGen),
		Speech:    speechClient,
		Music:     speechClient,
		Composer:  composer.New(cfg.Composer, logger),
	}
}
