package models

import (
	"errors"
	"strings"
	"testing"

	"captioner/internal/config"
	"captioner/internal/services"
)

func TestBuiltinRegistry(t *testing.T) {
	registry, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := len(registry.Names()); got != 25 {
		t.Fatalf("builtin models = %d, want 14 checkpoints and 11 snapshots", got)
	}

	tests := []struct {
		name   string
		file   string
		digest string
	}{
		{"tiny.en", "tiny.en.pt", "d3dd57d32accea0b295c96e26691aa14d8822fac7d9d27d5dc00b4ca2826dd03"},
		{"medium", "medium.pt", "345ae4da62f9b3d59415adc60127b97c714f32e89e936602e85993674d08dcb1"},
		{"large", "large-v3.pt", "e5b1a55b89c1367dacf97e3e19bfd829a01529dbfdeefa8caeb59b3f1b81dadb"},
		{"turbo", "large-v3-turbo.pt", "aff26ae408abcba5fbf8813c21e62b0941638c5f6eebfb145be0c9839262a19a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := registry.Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if def.Provider != ProviderWhisper || def.FileName != tt.file || def.Digest != tt.digest {
				t.Fatalf("unexpected definition %+v", def)
			}
			if !strings.HasPrefix(def.Locator, whisperBaseURL+tt.digest+"/") {
				t.Fatalf("locator %q does not embed digest", def.Locator)
			}
		})
	}
}

func TestRegistryAliasesShareCheckpoint(t *testing.T) {
	registry, _ := NewRegistry(nil)
	large, _ := registry.Lookup("large")
	v3, _ := registry.Lookup("large-v3")
	if large.Locator != v3.Locator {
		t.Fatalf("large and large-v3 differ: %q vs %q", large.Locator, v3.Locator)
	}
}

func TestRegistryExtraEntries(t *testing.T) {
	registry, err := NewRegistry([]config.ModelEntry{
		{Name: "align-zh", Provider: "huggingface", URL: "https://huggingface.co/org/repo/resolve/main/pytorch_model.bin", SHA256: strings.Repeat("A", 64)},
		{Name: "turbo", Provider: "whisper", URL: "https://mirror.example/turbo.pt", SHA256: strings.Repeat("b", 64), FileName: "turbo.pt"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	def, err := registry.Lookup("align-zh")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if def.FileName != "pytorch_model.bin" || def.Digest != strings.Repeat("a", 64) {
		t.Fatalf("unexpected definition %+v", def)
	}
	turbo, _ := registry.Lookup("turbo")
	if turbo.Locator != "https://mirror.example/turbo.pt" {
		t.Fatalf("extra entry did not override builtin: %+v", turbo)
	}
}

func TestRegistrySnapshotEntries(t *testing.T) {
	registry, err := NewRegistry([]config.ModelEntry{
		{Name: "distil", Provider: "huggingface", Repo: "Systran/faster-distil-whisper-large-v3", Files: []string{"model.bin", "config.json"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tests := []struct {
		name  string
		repo  string
		files int
	}{
		{"faster-whisper-large-v3", "Systran/faster-whisper-large-v3", 0},
		{"faster-whisper-tiny.en", "Systran/faster-whisper-tiny.en", 0},
		{"distil", "Systran/faster-distil-whisper-large-v3", 2},
	}
	manager := &Manager{root: "/models"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := registry.Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if def.Kind != KindDirectory || def.Repo != tt.repo || def.Revision != "main" || len(def.Files) != tt.files {
				t.Fatalf("unexpected definition %+v", def)
			}
			want := "/models/huggingface/" + tt.repo
			if got := manager.PathFor(def); got != want {
				t.Fatalf("PathFor = %q, want %q", got, want)
			}
		})
	}
}

func TestRegistryUnknownName(t *testing.T) {
	registry, _ := NewRegistry(nil)
	_, err := registry.Lookup("huge")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "turbo") {
		t.Fatalf("error should list known models: %v", err)
	}
}

func TestSplitDigestURL(t *testing.T) {
	digest, file, err := splitDigestURL("https://host/a/b/abc123/model.pt")
	if err != nil || digest != "abc123" || file != "model.pt" {
		t.Fatalf("splitDigestURL = %q %q %v", digest, file, err)
	}
	if _, _, err := splitDigestURL("https://host/model.pt"); err == nil {
		t.Fatal("expected error for url without digest segment")
	}
}
