package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"reelforge/internal/assets"
	"reelforge/internal/config"
	"reelforge/internal/daemon"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/services/planner"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := assets.Open(cfg)
	if err != nil {
		logger.Error("open asset store", logging.Error(err))
		return
	}

	executor := pipeline.New(cfg, store, buildCapabilities(cfg, logger), logger)
	plannerClient := planner.NewClient(cfg.Planner)

	d, err := daemon.New(cfg, store, executor, plannerClient, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("reelforged shutting down")
}
