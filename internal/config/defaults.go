package config

const (
	defaultConfigPath = "~/.config/scribe/config.toml"
	defaultDataDir    = "~/.local/share/scribe"

	defaultIdleInterval       = 10
	defaultErrorRetryInterval = 10
	defaultReaperInterval     = 30 * 60
	defaultProcessingTimeout  = 3 * 60 * 60
	defaultQueuedTimeout      = 24 * 60 * 60
	defaultMaxRetries         = 3
	defaultWorkerSlots        = 1
	defaultWorkerNice         = 10
	defaultMode               = "local"

	defaultRepairIterations   = 2
	defaultGapThreshold       = 3.0
	defaultMinCPS             = 1.2
	defaultDensityMinDuration = 4.0
	defaultMergeTolerance     = 2
	defaultExpand             = 1
	defaultPadding            = 0.5
	defaultRepeatMinCount     = 3
	defaultPunctuationLimit   = 5
	defaultCharRepeatLimit    = 3
	defaultPunctRatio         = 0.3
	defaultMinTextLength      = 2

	defaultTranscriptionModel = "large-v3-turbo"
	defaultVADMethod          = "silero"
	defaultFallbackModel      = "base"
	defaultEscalationModel    = "small"
	defaultSenseVoiceCommand  = "sensevoice"

	defaultCloudBaseURL = "https://api.openai.com/v1/audio/transcriptions"
	defaultCloudModel   = "whisper-1"
	defaultCloudTimeout = 600

	defaultLLMBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel   = "gpt-4o-mini"
	defaultLLMTitle   = "Scribe"
	defaultLLMTimeout = 120

	defaultChunkSegments  = 120
	defaultContextChars   = 400
	defaultFallbackWindow = 30

	defaultWhisperPerMinute        = 0.006
	defaultLLMPromptPerMillion     = 0.15
	defaultLLMCompletionPerMillion = 0.6

	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultYTDLPBinary      = "yt-dlp"
	defaultDownloadAttempts = 3

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults. Derived
// directories are filled in by normalize when left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Scheduler: Scheduler{
			IdleInterval:       defaultIdleInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			ReaperInterval:     defaultReaperInterval,
			ProcessingTimeout:  defaultProcessingTimeout,
			QueuedTimeout:      defaultQueuedTimeout,
			MaxRetries:         defaultMaxRetries,
			WorkerSlots:        defaultWorkerSlots,
			WorkerNice:         defaultWorkerNice,
			DefaultMode:        defaultMode,
		},
		Repair: Repair{
			Enabled:            true,
			Iterations:         defaultRepairIterations,
			GapThreshold:       defaultGapThreshold,
			MinCPS:             defaultMinCPS,
			DensityMinDuration: defaultDensityMinDuration,
			MergeTolerance:     defaultMergeTolerance,
			Expand:             defaultExpand,
			Padding:            defaultPadding,
			RepeatMinCount:     defaultRepeatMinCount,
			PunctuationLimit:   defaultPunctuationLimit,
			CharRepeatLimit:    defaultCharRepeatLimit,
			PunctRatio:         defaultPunctRatio,
			MinTextLength:      defaultMinTextLength,
		},
		Transcription: Transcription{
			Model:             defaultTranscriptionModel,
			VADMethod:         defaultVADMethod,
			FallbackModel:     defaultFallbackModel,
			EscalationModel:   defaultEscalationModel,
			SenseVoiceCommand: defaultSenseVoiceCommand,
		},
		Cloud: Cloud{
			BaseURL:        defaultCloudBaseURL,
			Model:          defaultCloudModel,
			TimeoutSeconds: defaultCloudTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Correction: Correction{
			Enabled:        true,
			ChunkSegments:  defaultChunkSegments,
			ContextChars:   defaultContextChars,
			FallbackWindow: defaultFallbackWindow,
		},
		Pricing: Pricing{
			WhisperPerMinute:        defaultWhisperPerMinute,
			LLMPromptPerMillion:     defaultLLMPromptPerMillion,
			LLMCompletionPerMillion: defaultLLMCompletionPerMillion,
		},
		Media: Media{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			YTDLPBinary:      defaultYTDLPBinary,
			DownloadAttempts: defaultDownloadAttempts,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
