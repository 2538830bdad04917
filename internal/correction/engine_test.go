package correction_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captioner/internal/captions"
	"captioner/internal/config"
	"captioner/internal/correction"
	"captioner/internal/logging"
	"captioner/internal/services"
)

func newEngine(t *testing.T) (*correction.Engine, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CaptionsDir = t.TempDir()
	engine, err := correction.NewEngine(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, &cfg
}

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edited.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyMergesAndBacksUp(t *testing.T) {
	engine, cfg := newEngine(t)
	video := "/videos/talk.mp4"
	store := captions.PathFor(cfg.Paths.CaptionsDir, video)
	if err := captions.Write(store, []captions.Segment{
		{Start: 0, End: 1, Text: "hello"},
		{Start: 1, End: 2.5, Text: "world"},
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	before, _ := os.ReadFile(store)

	result, err := engine.Apply(context.Background(), correction.Request{
		VideoPath:      video,
		TranscriptPath: writeTranscript(t, "\nhello world  \n\n"),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.MergedEntries != 1 || result.Lines != 1 || result.Segments != 2 || !result.BackedUp {
		t.Fatalf("unexpected result %+v", result)
	}

	wantBackup := filepath.Join(cfg.Paths.CaptionsDir, "talk_old.txt")
	if result.BackupPath != wantBackup {
		t.Fatalf("backup path = %q, want %q", result.BackupPath, wantBackup)
	}
	backup, err := os.ReadFile(wantBackup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != string(before) {
		t.Fatalf("backup = %q, want %q", backup, before)
	}

	got, err := captions.Read(store)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Segments) != 1 || got.Segments[0] != (captions.Segment{Start: 0, End: 2.5, Text: "hello world"}) {
		t.Fatalf("store after merge = %+v", got.Segments)
	}
}

func TestApplyLeavesStoreUntouchedOnPreconditionFailure(t *testing.T) {
	engine, cfg := newEngine(t)
	video := "/videos/solo.mkv"
	store := captions.PathFor(cfg.Paths.CaptionsDir, video)
	if err := captions.Write(store, []captions.Segment{{Start: 0, End: 1, Text: "only"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	before, _ := os.ReadFile(store)

	_, err := engine.Apply(context.Background(), correction.Request{
		VideoPath:      video,
		TranscriptPath: writeTranscript(t, "first\nsecond\n"),
	})
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	after, _ := os.ReadFile(store)
	if string(after) != string(before) {
		t.Fatalf("store modified: %q", after)
	}
	if _, statErr := os.Stat(correction.BackupPath(store)); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("backup should not exist, stat err = %v", statErr)
	}
}

func TestApplyWithoutStore(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.Apply(context.Background(), correction.Request{
		VideoPath:      "/videos/missing.mp4",
		TranscriptPath: writeTranscript(t, "line\n"),
	})
	if !errors.Is(err, services.ErrPrecondition) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected precondition wrapping not-found, got %v", err)
	}
}

func TestApplyMissingTranscript(t *testing.T) {
	engine, cfg := newEngine(t)
	video := "/videos/talk.mp4"
	if err := captions.Write(captions.PathFor(cfg.Paths.CaptionsDir, video), []captions.Segment{{Start: 0, End: 1, Text: "x"}}); err != nil {
		t.Fatal(err)
	}
	_, err := engine.Apply(context.Background(), correction.Request{
		VideoPath:      video,
		TranscriptPath: filepath.Join(t.TempDir(), "nope.txt"),
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyGroupingOverride(t *testing.T) {
	engine, cfg := newEngine(t)
	video := "/videos/talk.mp4"
	store := captions.PathFor(cfg.Paths.CaptionsDir, video)
	if err := captions.Write(store, []captions.Segment{
		{Start: 0, End: 1, Text: "hello there my"},
		{Start: 1, End: 2, Text: "friend"},
		{Start: 2, End: 3, Text: "how"},
		{Start: 3, End: 4, Text: "are"},
		{Start: 4, End: 5, Text: "you"},
	}); err != nil {
		t.Fatal(err)
	}
	result, err := engine.Apply(context.Background(), correction.Request{
		VideoPath:      video,
		TranscriptPath: writeTranscript(t, "hello there my friend\nhow are you\n"),
		Grouping:       correction.GroupingEven,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Policy != correction.GroupingEven {
		t.Fatalf("policy = %q", result.Policy)
	}
	got, _ := captions.Read(store)
	if got.Segments[0].End != 3 {
		t.Fatalf("even grouping not applied: %+v", got.Segments)
	}
}

func TestBackupPath(t *testing.T) {
	if got := correction.BackupPath("/c/talk.txt"); got != "/c/talk_old.txt" {
		t.Fatalf("BackupPath = %q", got)
	}
	if got := correction.BackupPath("/c/a.b.txt"); got != "/c/a.b_old.txt" {
		t.Fatalf("BackupPath = %q", got)
	}
}

func TestReadTranscriptAcceptsLongLines(t *testing.T) {
	long := strings.Repeat("长", 2<<20)
	lines, err := correction.ReadTranscript(writeTranscript(t, "short\n"+long+"\nlast"))
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}
	if len(lines) != 3 || lines[1] != long || lines[2] != "last" {
		t.Fatalf("got %d lines", len(lines))
	}
}

func TestReadTranscriptIgnoresBlankLinesAndBOM(t *testing.T) {
	lines, err := correction.ReadTranscript(writeTranscript(t, "\ufefffirst  \n\n  \nsecond\r\n"))
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestNewEngineRejectsUnknownGrouping(t *testing.T) {
	cfg := config.Default()
	cfg.Correction.Grouping = "magic"
	if _, err := correction.NewEngine(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
