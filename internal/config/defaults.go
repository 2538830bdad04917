package config

const (
	defaultConfigPath       = "~/.config/captioner/config.toml"
	defaultCaptionsDir      = "~/.local/share/captioner/captions"
	defaultSubtitlesDir     = "~/.local/share/captioner/subtitles"
	defaultVideoOutputDir   = "~/.local/share/captioner/videos"
	defaultModelsDir        = "~/.local/share/captioner/models"
	defaultWorkDir          = "~/.local/share/captioner/work"
	defaultStateDir         = "~/.local/share/captioner/state"
	defaultLogDir           = "~/.local/share/captioner/logs"
	defaultModel            = "turbo"
	defaultMaxAttempts      = 2
	defaultLanguage         = "Chinese"
	defaultVADMethod        = "silero"
	defaultFontSize         = 48
	defaultColor            = "#FFFFFF"
	defaultStrokeColor      = "#000000"
	defaultStrokeWidth      = 2
	defaultFadeIn           = 0.2
	defaultFadeOut          = 0.2
	defaultYPosition        = 150
	defaultVideoCodec       = "libx264"
	defaultPreset           = "ultrafast"
	defaultAudioCodec       = "aac"
	defaultRasterJobs       = 4
	defaultGrouping         = "align"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	providerWhisper         = "whisper"
	providerHuggingFace     = "huggingface"
	groupingAlign           = "align"
	groupingEven            = "even"
	envModelsDir            = "CAPTIONER_MODELS_DIR"
	envHuggingFaceHubToken  = "HUGGING_FACE_HUB_TOKEN"
	envHuggingFaceToken     = "HF_TOKEN"
	envHuggingFaceEndpoint  = "HF_ENDPOINT"
	defaultHuggingFaceURL   = "https://huggingface.co"
	defaultRevision         = "main"
	defaultShowProgress     = true
	defaultTranscribeOnCUDA = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CaptionsDir:    defaultCaptionsDir,
			SubtitlesDir:   defaultSubtitlesDir,
			VideoOutputDir: defaultVideoOutputDir,
			ModelsDir:      defaultModelsDir,
			WorkDir:        defaultWorkDir,
			StateDir:       defaultStateDir,
			LogDir:         defaultLogDir,
		},
		Models: Models{
			Default:      defaultModel,
			MaxAttempts:  defaultMaxAttempts,
			ShowProgress: defaultShowProgress,
		},
		Transcription: Transcription{
			Language:    defaultLanguage,
			CUDAEnabled: defaultTranscribeOnCUDA,
			VADMethod:   defaultVADMethod,
		},
		Caption: Caption{
			FontSize:    defaultFontSize,
			Color:       defaultColor,
			StrokeColor: defaultStrokeColor,
			StrokeWidth: defaultStrokeWidth,
			FadeIn:      defaultFadeIn,
			FadeOut:     defaultFadeOut,
			YPosition:   defaultYPosition,
		},
		Render: Render{
			VideoCodec: defaultVideoCodec,
			Preset:     defaultPreset,
			AudioCodec: defaultAudioCodec,
			RasterJobs: defaultRasterJobs,
		},
		Correction: Correction{
			Grouping: defaultGrouping,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
