package main

import (
	"testing"

	"reelforge/internal/logging"
	"reelforge/internal/testsupport"
)

func TestBuildCapabilitiesWiresEveryStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	caps := buildCapabilities(cfg, logging.NewNop())
	if caps.Keyframes == nil {
		t.Error("keyframe generator not wired")
	}
	if caps.Videos == nil {
		t.Error("video generator not wired")
	}
	if caps.Speech == nil {
		t.Error("speech generator not wired")
	}
	if caps.Music == nil {
		t.Error("music generator not wired")
	}
	if caps.Composer == nil {
		t.Error("composer not wired")
	}
}
