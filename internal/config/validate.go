package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCaption(); err != nil {
		return err
	}
	if err := c.validateCorrection(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModels() error {
	if c.Models.MaxAttempts > 5 {
		return fmt.Errorf("models.max_attempts must be between 1 and 5, got %d", c.Models.MaxAttempts)
	}
	if hub := c.Models.HuggingFaceURL; hub != "" && !strings.HasPrefix(hub, "https://") && !strings.HasPrefix(hub, "http://") {
		return fmt.Errorf("models.hf_endpoint must be an http(s) URL, got %q", c.Models.HuggingFaceURL)
	}
	seen := make(map[string]struct{}, len(c.Models.Extra))
	for i, entry := range c.Models.Extra {
		if entry.Name == "" {
			return fmt.Errorf("models.extra[%d].name must be set", i)
		}
		if _, dup := seen[entry.Name]; dup {
			return fmt.Errorf("models.extra[%d]: duplicate model name %q", i, entry.Name)
		}
		seen[entry.Name] = struct{}{}
		switch entry.Provider {
		case providerWhisper, providerHuggingFace:
		default:
			return fmt.Errorf("models.extra[%d].provider must be %q or %q, got %q", i, providerWhisper, providerHuggingFace, entry.Provider)
		}
		if entry.Repo != "" {
			if err := validateRepoEntry(i, entry); err != nil {
				return err
			}
			continue
		}
		if len(entry.Files) > 0 {
			return fmt.Errorf("models.extra[%d].files requires repo", i)
		}
		if entry.URL == "" {
			return fmt.Errorf("models.extra[%d].url or repo must be set", i)
		}
		if len(entry.SHA256) != 64 {
			return fmt.Errorf("models.extra[%d].sha256 must be a 64 character hex digest", i)
		}
	}
	return nil
}

func validateRepoEntry(i int, entry ModelEntry) error {
	if entry.Provider != providerHuggingFace {
		return fmt.Errorf("models.extra[%d]: repo entries must use provider %q", i, providerHuggingFace)
	}
	if entry.URL != "" || entry.SHA256 != "" {
		return fmt.Errorf("models.extra[%d]: repo entries take digests from the hub; drop url and sha256", i)
	}
	if strings.Count(entry.Repo, "/") != 1 || strings.Contains(entry.Repo, "..") {
		return fmt.Errorf("models.extra[%d].repo must look like owner/name, got %q", i, entry.Repo)
	}
	for _, file := range entry.Files {
		if !filepath.IsLocal(file) {
			return fmt.Errorf("models.extra[%d].files: %q escapes the repository", i, file)
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method must be \"silero\" or \"pyannote\", got %q", c.Transcription.VADMethod)
	}
	return nil
}

func (c *Config) validateCaption() error {
	if c.Caption.FadeIn < 0 || c.Caption.FadeOut < 0 {
		return errors.New("caption.fade_in and caption.fade_out must not be negative")
	}
	if c.Caption.StrokeWidth < 0 {
		return errors.New("caption.stroke_width must not be negative")
	}
	if c.Caption.YPosition < 0 {
		return errors.New("caption.y_position must not be negative")
	}
	return nil
}

func (c *Config) validateCorrection() error {
	switch c.Correction.Grouping {
	case groupingAlign, groupingEven:
		return nil
	default:
		return fmt.Errorf("correction.grouping must be %q or %q, got %q", groupingAlign, groupingEven, c.Correction.Grouping)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
