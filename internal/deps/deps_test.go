package deps

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestMissing(t *testing.T) {
	statuses := []Status{
		{Name: "FFmpeg", Available: true},
		{Name: "uvx"},
		{Name: "nvidia-smi", Optional: true},
	}
	if got := Missing(statuses); !reflect.DeepEqual(got, []string{"uvx"}) {
		t.Fatalf("Missing = %v", got)
	}
}

func TestResolveFFprobeSibling(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	ffprobe := filepath.Join(dir, executableName("ffprobe"))
	writeStub(t, ffmpeg)
	writeStub(t, ffprobe)

	if got := ResolveFFprobe(ffmpeg, ""); got != ffprobe {
		t.Fatalf("ResolveFFprobe = %q, want %q", got, ffprobe)
	}
	if got := ResolveFFprobe(ffmpeg, "/opt/ffprobe"); got != "/opt/ffprobe" {
		t.Fatalf("configured ffprobe ignored: %q", got)
	}
}

func TestResolveFFprobeFallback(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	writeStub(t, ffmpeg)

	if got := ResolveFFprobe(ffmpeg, "ffprobe"); got != "ffprobe" {
		t.Fatalf("ResolveFFprobe = %q, want ffprobe", got)
	}
	if got := ResolveFFprobe("clearly-not-present-ffmpeg", ""); got != "ffprobe" {
		t.Fatalf("ResolveFFprobe = %q, want ffprobe", got)
	}
}
