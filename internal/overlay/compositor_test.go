package overlay_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captioner/internal/captions"
	"captioner/internal/config"
	"captioner/internal/logging"
	"captioner/internal/media/ffprobe"
	"captioner/internal/overlay"
	"captioner/internal/services"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.CaptionsDir = filepath.Join(base, "captions")
	cfg.Paths.VideoOutputDir = filepath.Join(base, "videos")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	return &cfg
}

func fakeProbe(width, height int) overlay.Prober {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", Width: width, Height: height},
			{Index: 1, CodecType: "audio", Channels: 2},
		}}, nil
	}
}

func writeStore(t *testing.T, cfg *config.Config, video string, segments []captions.Segment) {
	t.Helper()
	if err := captions.Write(captions.PathFor(cfg.Paths.CaptionsDir, video), segments); err != nil {
		t.Fatalf("write store: %v", err)
	}
}

func TestRenderCompositesRetainedClips(t *testing.T) {
	cfg := newTestConfig(t)
	video := "/videos/lecture.mp4"
	writeStore(t, cfg, video, []captions.Segment{
		{Start: 0, End: 2, Text: "hello"},
		{Start: 2, End: 2.2, Text: "blink"},
		{Start: 2.5, End: 5, Text: "world"},
	})

	var gotArgs []string
	comp := overlay.NewCompositor(cfg, logging.NewNop())
	comp.WithProber(fakeProbe(1280, 720))
	comp.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotArgs = args
		for i, arg := range args {
			if arg == "-loop" {
				png := args[i+5]
				if _, err := os.Stat(png); err != nil {
					t.Errorf("clip image missing during ffmpeg run: %v", err)
				}
			}
		}
		out := args[len(args)-1]
		if filepath.Ext(out) != ".mp4" {
			t.Errorf("temp output %q lost its extension", out)
		}
		return os.WriteFile(out, []byte("video"), 0o644)
	})

	result, err := comp.Render(context.Background(), video)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.Clips != 2 || result.Dropped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if want := filepath.Join(cfg.Paths.VideoOutputDir, "lecture.mp4"); result.OutputPath != want {
		t.Fatalf("output = %q, want %q", result.OutputPath, want)
	}
	if data, err := os.ReadFile(result.OutputPath); err != nil || string(data) != "video" {
		t.Fatalf("output not finalized: %v", err)
	}
	if got := strings.Count(strings.Join(gotArgs, " "), "-loop 1"); got != 2 {
		t.Fatalf("clip inputs = %d, want 2", got)
	}

	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned: %d entries", len(entries))
	}
	outEntries, _ := os.ReadDir(cfg.Paths.VideoOutputDir)
	if len(outEntries) != 1 {
		t.Fatalf("output dir should only hold the final video, has %d", len(outEntries))
	}
}

func TestRenderWithoutStore(t *testing.T) {
	cfg := newTestConfig(t)
	comp := overlay.NewCompositor(cfg, logging.NewNop())
	comp.WithProber(fakeProbe(1280, 720))
	comp.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("ffmpeg must not run")
		return nil
	})

	_, err := comp.Render(context.Background(), "/videos/missing.mp4")
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestRenderFFmpegFailure(t *testing.T) {
	cfg := newTestConfig(t)
	video := "/videos/lecture.mkv"
	writeStore(t, cfg, video, []captions.Segment{{Start: 0, End: 2, Text: "hello"}})

	comp := overlay.NewCompositor(cfg, logging.NewNop())
	comp.WithProber(fakeProbe(640, 360))
	comp.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		if err := os.WriteFile(args[len(args)-1], []byte("partial"), 0o644); err != nil {
			return err
		}
		return errors.New("encoder exploded")
	})

	_, err := comp.Render(context.Background(), video)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	entries, _ := os.ReadDir(cfg.Paths.VideoOutputDir)
	if len(entries) != 0 {
		t.Fatalf("partial output left behind: %d entries", len(entries))
	}
}

func TestRenderRejectsAudioOnlyInput(t *testing.T) {
	cfg := newTestConfig(t)
	video := "/videos/podcast.m4a"
	writeStore(t, cfg, video, []captions.Segment{{Start: 0, End: 2, Text: "hello"}})

	comp := overlay.NewCompositor(cfg, logging.NewNop())
	comp.WithProber(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}, nil
	})

	_, err := comp.Render(context.Background(), video)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}
