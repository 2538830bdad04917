package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"captioner/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CAPTIONER_MODELS_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCaptions := filepath.Join(tempHome, ".local", "share", "captioner", "captions")
	if cfg.Paths.CaptionsDir != wantCaptions {
		t.Fatalf("unexpected captions dir: got %q want %q", cfg.Paths.CaptionsDir, wantCaptions)
	}
	if cfg.Models.Default != "turbo" {
		t.Fatalf("unexpected default model %q", cfg.Models.Default)
	}
	if cfg.Models.MaxAttempts != 2 {
		t.Fatalf("expected two attempts by default, got %d", cfg.Models.MaxAttempts)
	}
	if cfg.Correction.Grouping != "align" {
		t.Fatalf("unexpected grouping %q", cfg.Correction.Grouping)
	}
	if got := cfg.MinVisibleSeconds(); got != cfg.Caption.FadeIn+cfg.Caption.FadeOut {
		t.Fatalf("MinVisibleSeconds = %v", got)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path %q", cfg.LedgerPath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CAPTIONER_MODELS_DIR", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"captions_dir": "~/txt",
		},
		"caption": map[string]any{
			"fade_in":    0.5,
			"fade_out":   0.25,
			"y_position": 90,
		},
		"correction": map[string]any{
			"grouping": "EVEN",
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.CaptionsDir != filepath.Join(tempHome, "txt") {
		t.Fatalf("unexpected captions dir %q", cfg.Paths.CaptionsDir)
	}
	if cfg.MinVisibleSeconds() != 0.75 {
		t.Fatalf("MinVisibleSeconds = %v, want 0.75", cfg.MinVisibleSeconds())
	}
	if cfg.Correction.Grouping != "even" {
		t.Fatalf("grouping not normalized: %q", cfg.Correction.Grouping)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not normalized: %q", cfg.Logging.Format)
	}
	if cfg.Caption.Color != "#FFFFFF" {
		t.Fatalf("expected default color, got %q", cfg.Caption.Color)
	}
}

func TestModelsDirEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	override := t.TempDir()
	t.Setenv("CAPTIONER_MODELS_DIR", override)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ModelsDir != override {
		t.Fatalf("models dir = %q, want %q", cfg.Paths.ModelsDir, override)
	}
}

func TestHuggingFaceTokenFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CAPTIONER_MODELS_DIR", "")
	t.Setenv("HUGGING_FACE_HUB_TOKEN", " hf_abc ")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Models.HuggingFaceToken != "hf_abc" {
		t.Fatalf("token = %q", cfg.Models.HuggingFaceToken)
	}
}

func TestHuggingFaceEndpoint(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{name: "default", want: "https://huggingface.co"},
		{name: "mirror from env", env: "https://hf-mirror.example/", want: "https://hf-mirror.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("CAPTIONER_MODELS_DIR", "")
			t.Setenv("HF_ENDPOINT", tt.env)
			cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.Models.HuggingFaceURL != tt.want {
				t.Fatalf("hf endpoint = %q, want %q", cfg.Models.HuggingFaceURL, tt.want)
			}
		})
	}
}

func TestRepoEntryDefaultsRevision(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CAPTIONER_MODELS_DIR", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[[models.extra]]
name = "distil"
repo = " Systran/faster-distil-whisper-large-v3 "
files = ["model.bin", " ", "config.json"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	entry := cfg.Models.Extra[0]
	if entry.Provider != "huggingface" || entry.Repo != "Systran/faster-distil-whisper-large-v3" || entry.Revision != "main" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(entry.Files) != 2 || entry.Files[1] != "config.json" {
		t.Fatalf("files = %q", entry.Files)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "negative fade",
			mutate:  func(c *config.Config) { c.Caption.FadeIn = -1 },
			wantErr: "caption.fade_in",
		},
		{
			name:    "unknown grouping",
			mutate:  func(c *config.Config) { c.Correction.Grouping = "fuzzy" },
			wantErr: "correction.grouping",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "bad vad",
			mutate:  func(c *config.Config) { c.Transcription.VADMethod = "webrtc" },
			wantErr: "transcription.vad_method",
		},
		{
			name: "extra model without digest",
			mutate: func(c *config.Config) {
				c.Models.Extra = []config.ModelEntry{{Name: "x", Provider: "huggingface", URL: "https://example.com/x.bin"}}
			},
			wantErr: "sha256",
		},
		{
			name: "repo entry with pinned digest",
			mutate: func(c *config.Config) {
				c.Models.Extra = []config.ModelEntry{{Name: "x", Provider: "huggingface", Repo: "org/repo", SHA256: strings.Repeat("a", 64)}}
			},
			wantErr: "drop url and sha256",
		},
		{
			name: "repo entry from whisper provider",
			mutate: func(c *config.Config) {
				c.Models.Extra = []config.ModelEntry{{Name: "x", Provider: "whisper", Repo: "org/repo"}}
			},
			wantErr: "provider",
		},
		{
			name: "malformed repo",
			mutate: func(c *config.Config) {
				c.Models.Extra = []config.ModelEntry{{Name: "x", Provider: "huggingface", Repo: "just-a-name"}}
			},
			wantErr: "owner/name",
		},
		{
			name: "file escaping repo",
			mutate: func(c *config.Config) {
				c.Models.Extra = []config.ModelEntry{{Name: "x", Provider: "huggingface", Repo: "org/repo", Files: []string{"../secrets"}}}
			},
			wantErr: "escapes",
		},
		{
			name: "files without repo",
			mutate: func(c *config.Config) {
				c.Models.Extra = []config.ModelEntry{{Name: "x", Provider: "huggingface", URL: "https://example.com/x.bin", SHA256: strings.Repeat("a", 64), Files: []string{"a"}}}
			},
			wantErr: "requires repo",
		},
		{
			name:    "bad hub endpoint",
			mutate:  func(c *config.Config) { c.Models.HuggingFaceURL = "ftp://hub" },
			wantErr: "hf_endpoint",
		},
		{
			name: "duplicate extra model",
			mutate: func(c *config.Config) {
				entry := config.ModelEntry{Name: "x", Provider: "huggingface", URL: "https://example.com/x.bin", SHA256: strings.Repeat("a", 64)}
				c.Models.Extra = []config.ModelEntry{entry, entry}
			},
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Caption.FadeIn != 0.2 {
		t.Fatalf("unexpected sample fade_in %v", cfg.Caption.FadeIn)
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		CaptionsDir: filepath.Join(root, "captions"),
		ModelsDir:   filepath.Join(root, "models"),
		StateDir:    filepath.Join(root, "state"),
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.Paths.CaptionsDir, cfg.Paths.ModelsDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
