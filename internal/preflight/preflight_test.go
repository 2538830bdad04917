package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captioner/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDiskSpace("disk", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1 byte floor, got %s", result.Detail)
	}
	result := CheckDiskSpace("disk", dir, ^uint64(0))
	if result.Passed {
		t.Fatal("expected failure with an impossible floor")
	}
	if !strings.Contains(result.Detail, "want") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
	if result := CheckDiskSpace("disk", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckHuggingFace_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/whoami-v2" || r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckHuggingFace(context.Background(), srv.URL, "good-token")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckHuggingFace_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckHuggingFace(context.Background(), srv.URL, "bad-token")
	if result.Passed {
		t.Fatal("expected failure for bad token")
	}
	if !strings.Contains(result.Detail, "invalid token") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckHuggingFace_MissingInputs(t *testing.T) {
	if result := CheckHuggingFace(context.Background(), "", "token"); result.Passed {
		t.Fatal("expected failure for missing url")
	}
	if result := CheckHuggingFace(context.Background(), "http://example.invalid", " "); result.Passed {
		t.Fatal("expected failure for missing token")
	}
}

func TestCheckHuggingFaceFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Models.HuggingFaceToken = ""
	cfg.Transcription.VADMethod = "silero"
	if result := checkHuggingFaceFromConfig(context.Background(), &cfg, "http://unused"); !result.Passed {
		t.Fatalf("token is optional for silero, got %s", result.Detail)
	}

	cfg.Transcription.VADMethod = "pyannote"
	if result := checkHuggingFaceFromConfig(context.Background(), &cfg, "http://unused"); result.Passed {
		t.Fatal("pyannote without a token must fail")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	cfg.Models.HuggingFaceToken = "hf_token"
	if result := checkHuggingFaceFromConfig(context.Background(), &cfg, srv.URL); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.CUDAEnabled = false
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(statuses))
	}
	names := []string{statuses[0].Name, statuses[1].Name, statuses[2].Name}
	if strings.Join(names, ",") != "FFmpeg,FFprobe,uvx" {
		t.Fatalf("unexpected requirements %v", names)
	}

	cfg.Transcription.CUDAEnabled = true
	statuses = CheckSystemDeps(&cfg)
	if len(statuses) != 4 || !statuses[3].Optional {
		t.Fatalf("expected optional nvidia-smi requirement, got %#v", statuses)
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CaptionsDir = filepath.Join(base, "captions")
	cfg.Paths.SubtitlesDir = filepath.Join(base, "subtitles")
	cfg.Paths.VideoOutputDir = filepath.Join(base, "videos")
	cfg.Paths.ModelsDir = filepath.Join(base, "models")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Models.HuggingFaceToken = ""
	cfg.Transcription.VADMethod = "silero"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 9 {
		t.Fatalf("expected 9 results, got %d", len(results))
	}
	for _, r := range results[:6] {
		if !r.Passed {
			t.Fatalf("%s failed: %s", r.Name, r.Detail)
		}
	}
	if !results[8].Passed {
		t.Fatalf("token check should pass when unset: %s", results[8].Detail)
	}

	if err := os.RemoveAll(cfg.Paths.WorkDir); err != nil {
		t.Fatal(err)
	}
	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) < 2 {
		t.Fatalf("missing work dir should fail access and disk checks, got %v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil, got %v", results)
	}
}
