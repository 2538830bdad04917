package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories every stage reads from or writes to.
type Paths struct {
	CaptionsDir    string `toml:"captions_dir"`
	SubtitlesDir   string `toml:"subtitles_dir"`
	VideoOutputDir string `toml:"video_output_dir"`
	ModelsDir      string `toml:"models_dir"`
	WorkDir        string `toml:"work_dir"`
	StateDir       string `toml:"state_dir"`
	LogDir         string `toml:"log_dir"`
}

// ModelEntry registers an additional downloadable model artifact. An entry
// either names one file (URL and SHA256) or a Hugging Face repository snapshot
// (Repo, optionally narrowed by Files) whose digests come from the hub.
type ModelEntry struct {
	Name     string   `toml:"name"`
	Provider string   `toml:"provider"`
	URL      string   `toml:"url"`
	SHA256   string   `toml:"sha256"`
	FileName string   `toml:"file_name"`
	Repo     string   `toml:"repo"`
	Revision string   `toml:"revision"`
	Files    []string `toml:"files"`
}

// Models contains model acquisition settings.
type Models struct {
	Default          string       `toml:"default"`
	MaxAttempts      int          `toml:"max_attempts"`
	DownloadTimeout  int          `toml:"download_timeout"`
	HuggingFaceToken string       `toml:"hf_token"`
	HuggingFaceURL   string       `toml:"hf_endpoint"`
	ShowProgress     bool         `toml:"show_progress"`
	Extra            []ModelEntry `toml:"extra"`
}

// Transcription contains settings passed to the external transcription engine.
type Transcription struct {
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	KeepAudio   bool   `toml:"keep_audio"`
}

// Caption contains overlay styling and the fade timings shared by the
// subtitle drop rule.
type Caption struct {
	Font        string  `toml:"font"`
	FontSize    float64 `toml:"font_size"`
	Color       string  `toml:"color"`
	StrokeColor string  `toml:"stroke_color"`
	StrokeWidth float64 `toml:"stroke_width"`
	FadeIn      float64 `toml:"fade_in"`
	FadeOut     float64 `toml:"fade_out"`
	YPosition   int     `toml:"y_position"`
}

// Render contains ffmpeg encode settings for the captioned video.
type Render struct {
	VideoCodec   string `toml:"video_codec"`
	Preset       string `toml:"preset"`
	AudioCodec   string `toml:"audio_codec"`
	RasterJobs   int    `toml:"raster_jobs"`
	FFmpegBinary string `toml:"ffmpeg_binary"`
	FFprobe      string `toml:"ffprobe_binary"`
}

// Correction contains settings for the correction merge engine.
type Correction struct {
	Grouping string `toml:"grouping"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for captioner.
//
// Configuration sections by subsystem:
//   - Paths: artifact directories
//   - Models: registry extensions and download retry ceiling
//   - Transcription: language hint and WhisperX device settings
//   - Caption: overlay styling and fade timings
//   - Render: ffmpeg encode settings
//   - Correction: merge grouping policy
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Models        Models        `toml:"models"`
	Transcription Transcription `toml:"transcription"`
	Caption       Caption       `toml:"caption"`
	Render        Render        `toml:"render"`
	Correction    Correction    `toml:"correction"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("captioner.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the artifact directories used by every stage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.CaptionsDir,
		c.Paths.SubtitlesDir,
		c.Paths.VideoOutputDir,
		c.Paths.ModelsDir,
		c.Paths.WorkDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for extraction and compositing.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Render.FFprobe); bin != "" {
		return bin
	}
	return "ffprobe"
}

// MinVisibleSeconds is the shortest caption that can show both fade transitions.
func (c *Config) MinVisibleSeconds() float64 {
	return c.Caption.FadeIn + c.Caption.FadeOut
}

// LedgerPath returns the SQLite verification ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
