package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeModels()
	c.normalizeTranscription()
	c.normalizeCaption()
	c.normalizeRender()
	c.normalizeCorrection()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(envModelsDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.ModelsDir = strings.TrimSpace(value)
	}
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.captions_dir", &c.Paths.CaptionsDir, defaultCaptionsDir},
		{"paths.subtitles_dir", &c.Paths.SubtitlesDir, defaultSubtitlesDir},
		{"paths.video_output_dir", &c.Paths.VideoOutputDir, defaultVideoOutputDir},
		{"paths.models_dir", &c.Paths.ModelsDir, defaultModelsDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeModels() {
	c.Models.Default = strings.TrimSpace(c.Models.Default)
	if c.Models.Default == "" {
		c.Models.Default = defaultModel
	}
	if c.Models.MaxAttempts <= 0 {
		c.Models.MaxAttempts = defaultMaxAttempts
	}
	if c.Models.DownloadTimeout < 0 {
		c.Models.DownloadTimeout = 0
	}
	c.Models.HuggingFaceToken = strings.TrimSpace(c.Models.HuggingFaceToken)
	if c.Models.HuggingFaceToken == "" {
		if value, ok := os.LookupEnv(envHuggingFaceHubToken); ok {
			c.Models.HuggingFaceToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv(envHuggingFaceToken); ok {
			c.Models.HuggingFaceToken = strings.TrimSpace(value)
		}
	}
	c.Models.HuggingFaceURL = strings.TrimRight(strings.TrimSpace(c.Models.HuggingFaceURL), "/")
	if c.Models.HuggingFaceURL == "" {
		if value, ok := os.LookupEnv(envHuggingFaceEndpoint); ok && strings.TrimSpace(value) != "" {
			c.Models.HuggingFaceURL = strings.TrimRight(strings.TrimSpace(value), "/")
		} else {
			c.Models.HuggingFaceURL = defaultHuggingFaceURL
		}
	}
	for i := range c.Models.Extra {
		entry := &c.Models.Extra[i]
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Provider = strings.ToLower(strings.TrimSpace(entry.Provider))
		if entry.Provider == "" {
			entry.Provider = providerHuggingFace
		}
		entry.URL = strings.TrimSpace(entry.URL)
		entry.SHA256 = strings.ToLower(strings.TrimSpace(entry.SHA256))
		entry.FileName = strings.TrimSpace(entry.FileName)
		entry.Repo = strings.Trim(strings.TrimSpace(entry.Repo), "/")
		entry.Revision = strings.TrimSpace(entry.Revision)
		if entry.Repo != "" && entry.Revision == "" {
			entry.Revision = defaultRevision
		}
		files := entry.Files[:0]
		for _, file := range entry.Files {
			if file = strings.Trim(strings.TrimSpace(file), "/"); file != "" {
				files = append(files, file)
			}
		}
		entry.Files = files
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
}

func (c *Config) normalizeCaption() {
	c.Caption.Font = strings.TrimSpace(c.Caption.Font)
	if c.Caption.Font != "" {
		if expanded, err := expandPath(c.Caption.Font); err == nil {
			c.Caption.Font = expanded
		}
	}
	c.Caption.Color = strings.TrimSpace(c.Caption.Color)
	if c.Caption.Color == "" {
		c.Caption.Color = defaultColor
	}
	c.Caption.StrokeColor = strings.TrimSpace(c.Caption.StrokeColor)
	if c.Caption.StrokeColor == "" {
		c.Caption.StrokeColor = defaultStrokeColor
	}
	if c.Caption.FontSize <= 0 {
		c.Caption.FontSize = defaultFontSize
	}
}

func (c *Config) normalizeRender() {
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	if c.Render.VideoCodec == "" {
		c.Render.VideoCodec = defaultVideoCodec
	}
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	c.Render.AudioCodec = strings.TrimSpace(c.Render.AudioCodec)
	if c.Render.AudioCodec == "" {
		c.Render.AudioCodec = defaultAudioCodec
	}
	if c.Render.RasterJobs <= 0 {
		c.Render.RasterJobs = defaultRasterJobs
	}
}

func (c *Config) normalizeCorrection() {
	c.Correction.Grouping = strings.ToLower(strings.TrimSpace(c.Correction.Grouping))
	if c.Correction.Grouping == "" {
		c.Correction.Grouping = defaultGrouping
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
