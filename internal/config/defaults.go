package config

const (
	defaultDataDir            = "~/.local/share/reelforge"
	defaultAssetDir           = "~/.local/share/reelforge/assets"
	defaultWorkDir            = "~/.local/share/reelforge/work"
	defaultLogDir             = "~/.local/share/reelforge/logs"
	defaultAPIBind            = "127.0.0.1:7519"
	defaultMaxConcurrent      = 2
	defaultShotConcurrency    = 3
	defaultEventHistory       = 64
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultServiceTimeout     = 300
	defaultPlannerBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultPlannerModel       = "google/gemini-3-flash-preview"
	defaultPlannerTimeout     = 120
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFmpegPreset       = "medium"
	defaultFFmpegCRF          = 23
	defaultFFmpegAudioBitrate = "192k"
	defaultNtfyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			AssetDir: defaultAssetDir,
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Queue: Queue{
			MaxConcurrent:   defaultMaxConcurrent,
			ShotConcurrency: defaultShotConcurrency,
			EventHistory:    defaultEventHistory,
		},
		Planner: Service{
			BaseURL:        defaultPlannerBaseURL,
			Model:          defaultPlannerModel,
			TimeoutSeconds: defaultPlannerTimeout,
		},
		ImageGen: Service{
			TimeoutSeconds: defaultServiceTimeout,
		},
		VideoGen: Service{
			TimeoutSeconds: defaultServiceTimeout,
		},
		Speech: Service{
			TimeoutSeconds: defaultServiceTimeout,
		},
		Composer: Composer{
			FFmpegBinary: defaultFFmpegBinary,
			Preset:       defaultFFmpegPreset,
			CRF:          defaultFFmpegCRF,
			AudioBitrate: defaultFFmpegAudioBitrate,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
