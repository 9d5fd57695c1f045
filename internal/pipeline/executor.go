package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"reelforge/internal/assets"
	"reelforge/internal/config"
	"reelforge/internal/jobs"
	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/textutil"
	"reelforge/internal/workflow"
)

// Executor drives the five generation stages for a single job. Stages run in
// a fixed order and each stage is all-or-nothing: its artifacts land in the
// result only when every unit of work in the stage succeeded.
type Executor struct {
	logger          *slog.Logger
	store           *assets.Store
	caps            Capabilities
	workDir         string
	shotConcurrency int
}

// New builds an executor from configuration and the available backends.
func New(cfg *config.Config, store *assets.Store, caps Capabilities, logger *slog.Logger) *Executor {
	shotConcurrency := cfg.Queue.ShotConcurrency
	if shotConcurrency < 1 {
		shotConcurrency = 1
	}
	return &Executor{
		logger:          logging.NewComponentLogger(logger, "pipeline"),
		store:           store,
		caps:            caps,
		workDir:         cfg.Paths.WorkDir,
		shotConcurrency: shotConcurrency,
	}
}

type stageFunc func(ctx context.Context, run *jobRun) error

// jobRun carries the per-job state threaded through the stages.
type jobRun struct {
	id      string
	spec    *workflow.Spec
	dir     string
	publish jobs.ProgressFunc
	result  *jobs.Result
}

func (r *jobRun) emit(stage jobs.Stage, phase jobs.StagePhase, percent int) {
	if r.publish == nil {
		return
	}
	r.publish(jobs.ProgressEvent{Stage: stage, Phase: phase, Percent: percent, At: time.Now().UTC()})
}

// Run executes every stage in order and returns the accumulated result. On
// failure the result still references the artifacts of the stages that
// completed before the break.
func (e *Executor) Run(ctx context.Context, jobID string, spec *workflow.Spec, publish jobs.ProgressFunc) (*jobs.Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "run", "workflow spec rejected", err)
	}

	dir := filepath.Join(e.workDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	run := &jobRun{
		id:      jobID,
		spec:    spec,
		dir:     dir,
		publish: publish,
		result:  &jobs.Result{},
	}

	stages := []struct {
		name jobs.Stage
		fn   stageFunc
	}{
		{jobs.StageKeyframes, e.runKeyframes},
		{jobs.StageVideos, e.runVideos},
		{jobs.StageAudio, e.runAudio},
		{jobs.StageComposition, e.runComposition},
		{jobs.StageExport, e.runExport},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return run.result, err
		}

		stageCtx := services.WithStage(services.WithJobID(ctx, jobID), string(st.name))
		stageLogger := logging.WithContext(stageCtx, e.logger)

		stageLogger.Info("stage started", logging.Int("shots", len(spec.Shots)))
		run.emit(st.name, jobs.StageStarted, 0)
		started := time.Now()

		if err := st.fn(stageCtx, run); err != nil {
			run.emit(st.name, jobs.StageFailed, 0)
			stageLogger.Error("stage failed",
				logging.Duration("elapsed", time.Since(started)),
				logging.Error(err))
			return run.result, &StageError{Stage: st.name, Err: err}
		}

		run.emit(st.name, jobs.StageComplete, 100)
		stageLogger.Info("stage completed", logging.Duration("elapsed", time.Since(started)))
	}

	return run.result, nil
}

func (e *Executor) runKeyframes(ctx context.Context, run *jobRun) error {
	if e.caps.Keyframes == nil {
		return services.Wrap(services.ErrConfiguration, string(jobs.StageKeyframes), "generate", "no image backend configured", nil)
	}

	shots := run.spec.Shots
	refs := make([]assets.Ref, len(shots))
	var done int32

	err := forEachIndex(ctx, e.shotConcurrency, len(shots), func(ctx context.Context, i int) error {
		prompt := workflow.KeyframePrompt(shots[i], run.spec.Style)
		data, err := e.caps.Keyframes.Generate(ctx, prompt)
		if err != nil {
			return fmt.Errorf("shot %d keyframe: %w", i+1, err)
		}
		name := fmt.Sprintf("%s-keyframe-%02d.png", run.id, i+1)
		ref, err := e.store.Put(ctx, assets.KindKeyframe, name, data)
		if err != nil {
			return fmt.Errorf("shot %d keyframe store: %w", i+1, err)
		}
		refs[i] = ref
		run.emit(jobs.StageKeyframes, jobs.StageProgress, percentOf(atomic.AddInt32(&done, 1), len(shots)))
		return nil
	})
	if err != nil {
		return err
	}

	run.result.Keyframes = refs
	return nil
}

func (e *Executor) runVideos(ctx context.Context, run *jobRun) error {
	if e.caps.Videos == nil {
		return services.Wrap(services.ErrConfiguration, string(jobs.StageVideos), "animate", "no video backend configured", nil)
	}

	shots := run.spec.Shots
	refs := make([]assets.Ref, len(shots))
	var done int32

	err := forEachIndex(ctx, e.shotConcurrency, len(shots), func(ctx context.Context, i int) error {
		keyframePath, err := e.store.Path(ctx, run.result.Keyframes[i])
		if err != nil {
			return fmt.Errorf("shot %d keyframe lookup: %w", i+1, err)
		}
		clipPath, err := e.caps.Videos.Animate(ctx, keyframePath, workflow.VideoPrompt(shots[i]), shots[i].DurationSeconds, run.dir)
		if err != nil {
			return fmt.Errorf("shot %d clip: %w", i+1, err)
		}
		name := fmt.Sprintf("%s-clip-%02d.mp4", run.id, i+1)
		ref, err := e.store.PutFile(ctx, assets.KindClip, name, clipPath)
		if err != nil {
			return fmt.Errorf("shot %d clip store: %w", i+1, err)
		}
		refs[i] = ref
		run.emit(jobs.StageVideos, jobs.StageProgress, percentOf(atomic.AddInt32(&done, 1), len(shots)))
		return nil
	})
	if err != nil {
		return err
	}

	run.result.Clips = refs
	return nil
}

func (e *Executor) runAudio(ctx context.Context, run *jobRun) error {
	audio := run.spec.Audio
	if audio.Voiceover == nil && audio.Music == nil {
		return nil
	}

	var voiceover, music assets.Ref

	if audio.Voiceover != nil {
		if e.caps.Speech == nil {
			return services.Wrap(services.ErrConfiguration, string(jobs.StageAudio), "synthesize", "no speech backend configured", nil)
		}
		data, err := e.caps.Speech.Synthesize(ctx, audio.Voiceover.Script, audio.Voiceover.Style)
		if err != nil {
			return fmt.Errorf("voiceover: %w", err)
		}
		ref, err := e.store.Put(ctx, assets.KindVoiceover, run.id+"-voiceover.mp3", data)
		if err != nil {
			return fmt.Errorf("voiceover store: %w", err)
		}
		voiceover = ref
		run.emit(jobs.StageAudio, jobs.StageProgress, 50)
	}

	if audio.Music != nil {
		if e.caps.Music == nil {
			return services.Wrap(services.ErrConfiguration, string(jobs.StageAudio), "compose", "no music backend configured", nil)
		}
		data, err := e.caps.Music.Compose(ctx, *audio.Music)
		if err != nil {
			return fmt.Errorf("music: %w", err)
		}
		ref, err := e.store.Put(ctx, assets.KindMusic, run.id+"-music.mp3", data)
		if err != nil {
			return fmt.Errorf("music store: %w", err)
		}
		music = ref
	}

	run.result.Voiceover = voiceover
	run.result.Music = music
	return nil
}

func (e *Executor) runComposition(ctx context.Context, run *jobRun) error {
	if e.caps.Composer == nil {
		return services.Wrap(services.ErrConfiguration, string(jobs.StageComposition), "compose", "no composer configured", nil)
	}

	req := ComposeRequest{
		Clips:         make([]string, len(run.result.Clips)),
		ClipDurations: make([]float64, len(run.spec.Shots)),
		Transitions:   run.spec.Transitions,
		OutputPath:    filepath.Join(run.dir, "master.mp4"),
	}
	for i, shot := range run.spec.Shots {
		req.ClipDurations[i] = shot.DurationSeconds
	}
	for i, ref := range run.result.Clips {
		path, err := e.store.Path(ctx, ref)
		if err != nil {
			return fmt.Errorf("clip %d lookup: %w", i+1, err)
		}
		req.Clips[i] = path
	}
	if run.result.Voiceover != "" {
		path, err := e.store.Path(ctx, run.result.Voiceover)
		if err != nil {
			return fmt.Errorf("voiceover lookup: %w", err)
		}
		req.Voiceover = path
	}
	if run.result.Music != "" {
		path, err := e.store.Path(ctx, run.result.Music)
		if err != nil {
			return fmt.Errorf("music lookup: %w", err)
		}
		req.Music = path
	}

	if err := e.caps.Composer.Compose(ctx, req); err != nil {
		return fmt.Errorf("compose master: %w", err)
	}

	ref, err := e.store.PutFile(ctx, assets.KindMaster, run.id+"-master.mp4", req.OutputPath)
	if err != nil {
		return fmt.Errorf("master store: %w", err)
	}
	run.result.Master = ref
	return nil
}

func (e *Executor) runExport(ctx context.Context, run *jobRun) error {
	if e.caps.Composer == nil {
		return services.Wrap(services.ErrConfiguration, string(jobs.StageExport), "transcode", "no composer configured", nil)
	}

	masterPath, err := e.store.Path(ctx, run.result.Master)
	if err != nil {
		return fmt.Errorf("master lookup: %w", err)
	}

	targets := run.spec.ExportTargets()
	refs := make([]assets.Ref, len(targets))
	var done int32

	err = forEachIndex(ctx, e.shotConcurrency, len(targets), func(ctx context.Context, i int) error {
		target := targets[i]
		token := textutil.SanitizeToken(target.Name)
		outputPath := filepath.Join(run.dir, fmt.Sprintf("export-%s.mp4", token))
		if err := e.caps.Composer.Transcode(ctx, masterPath, target, outputPath); err != nil {
			return fmt.Errorf("export %s: %w", target.Name, err)
		}
		name := fmt.Sprintf("%s-%s.mp4", run.id, token)
		ref, err := e.store.PutFile(ctx, assets.KindExport, name, outputPath)
		if err != nil {
			return fmt.Errorf("export %s store: %w", target.Name, err)
		}
		refs[i] = ref
		run.emit(jobs.StageExport, jobs.StageProgress, percentOf(atomic.AddInt32(&done, 1), len(targets)))
		return nil
	})
	if err != nil {
		return err
	}

	exports := make(map[string]assets.Ref, len(targets))
	for i, target := range targets {
		exports[target.Name] = refs[i]
	}
	run.result.Exports = exports
	return nil
}

func percentOf(done int32, total int) int {
	if total <= 0 {
		return 100
	}
	return int(done) * 100 / total
}

var _ jobs.Runner = (*Executor)(nil)
