package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"captioner/internal/captions"
	"captioner/internal/config"
	"captioner/internal/deps"
	"captioner/internal/logging"
	"captioner/internal/media/ffprobe"
	"captioner/internal/services"
)

const (
	stageRender   = "render"
	wrapFraction  = 0.9
	diagnosticMax = 2048
)

// Prober inspects a media file.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Result describes one render pass.
type Result struct {
	OutputPath string
	Clips      int
	Dropped    int
	Width      int
	Height     int
	HasAudio   bool
}

// Compositor renders captioned videos.
type Compositor struct {
	captionsDir    string
	videoOutputDir string
	workDir        string
	ffmpegBinary   string
	ffprobeBinary  string
	caption        config.Caption
	encoding       Encoding
	rasterJobs     int
	logger         *slog.Logger

	probe         Prober
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewCompositor constructs a compositor from configuration.
func NewCompositor(cfg *config.Config, logger *slog.Logger) *Compositor {
	return &Compositor{
		captionsDir:    cfg.Paths.CaptionsDir,
		videoOutputDir: cfg.Paths.VideoOutputDir,
		workDir:        cfg.Paths.WorkDir,
		ffmpegBinary:   cfg.FFmpegBinary(),
		ffprobeBinary:  deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.Render.FFprobe),
		caption:        cfg.Caption,
		encoding: Encoding{
			VideoCodec: cfg.Render.VideoCodec,
			Preset:     cfg.Render.Preset,
			AudioCodec: cfg.Render.AudioCodec,
		},
		rasterJobs: cfg.Render.RasterJobs,
		logger:     logging.NewComponentLogger(logger, "overlay"),
		probe:      ffprobe.Inspect,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Compositor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// WithProber replaces the media inspector (for testing).
func (c *Compositor) WithProber(probe Prober) {
	if probe != nil {
		c.probe = probe
	}
}

// OutputPath returns <video_output_dir>/<video basename>.
func (c *Compositor) OutputPath(videoPath string) string {
	return filepath.Join(c.videoOutputDir, filepath.Base(videoPath))
}

// Render composites the video's caption store onto it and writes the result
// to OutputPath.
func (c *Compositor) Render(ctx context.Context, videoPath string) (Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String("video", videoPath))

	stored, err := captions.Load(c.captionsDir, videoPath)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return Result{}, services.Wrap(services.ErrPrecondition, stageRender, "load captions",
				fmt.Sprintf("no caption store for %s; run transcribe first", filepath.Base(videoPath)), err)
		}
		return Result{}, err
	}

	probe, err := c.probe(ctx, c.ffprobeBinary, videoPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageRender, "probe video", videoPath, err)
	}
	frameW, frameH, ok := probe.FrameSize()
	if !ok {
		return Result{}, services.Wrap(services.ErrPrecondition, stageRender, "probe video", "no video stream with known dimensions", nil)
	}

	clips, dropped := Plan(stored.Segments, c.caption.FadeIn, c.caption.FadeOut, c.caption.YPosition)
	result := Result{
		OutputPath: c.OutputPath(videoPath),
		Clips:      len(clips),
		Dropped:    dropped,
		Width:      frameW,
		Height:     frameH,
		HasAudio:   probe.HasAudio(),
	}
	logger.Info("overlay plan ready",
		logging.Int("clips", result.Clips),
		logging.Int("dropped", result.Dropped),
		logging.Int("width", frameW),
		logging.Int("height", frameH),
		logging.Bool("has_audio", result.HasAudio),
	)

	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrPrecondition, stageRender, "prepare work dir", c.workDir, err)
	}
	passDir, err := os.MkdirTemp(c.workDir, "overlay-")
	if err != nil {
		return Result{}, services.Wrap(services.ErrPrecondition, stageRender, "prepare work dir", c.workDir, err)
	}
	defer func() {
		if err := os.RemoveAll(passDir); err != nil {
			logger.Warn("overlay work dir cleanup failed", logging.Error(err))
		}
	}()

	started := time.Now()
	if err := c.rasterize(ctx, clips, float64(frameW)*wrapFraction, passDir); err != nil {
		return Result{}, err
	}
	logger.Debug("caption images rendered",
		logging.Int("clips", len(clips)),
		logging.Duration("elapsed", time.Since(started)),
	)

	if err := os.MkdirAll(c.videoOutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrPrecondition, stageRender, "prepare output dir", c.videoOutputDir, err)
	}
	// ffmpeg picks the muxer from the extension, so the temp name keeps it.
	tmp := filepath.Join(c.videoOutputDir, "."+uuid.NewString()[:8]+"-"+filepath.Base(videoPath))
	args := BuildArgs(videoPath, tmp, clips, frameW, frameH, c.encoding)

	started = time.Now()
	if err := c.run(ctx, c.ffmpegBinary, args...); err != nil {
		_ = os.Remove(tmp)
		return Result{}, services.Wrap(services.ErrExternalTool, stageRender, "composite video", "ffmpeg failed", err)
	}
	if err := os.Rename(tmp, result.OutputPath); err != nil {
		_ = os.Remove(tmp)
		return Result{}, services.Wrap(services.ErrPrecondition, stageRender, "finalize video", result.OutputPath, err)
	}

	logger.Info("captioned video written",
		logging.String("output", result.OutputPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (c *Compositor) rasterize(ctx context.Context, clips []Clip, maxWidth float64, dir string) error {
	style, err := StyleFromConfig(c.caption)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageRender, "load caption style", "", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := c.rasterJobs
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := range clips {
		clip := &clips[i]
		clip.ImagePath = filepath.Join(dir, fmt.Sprintf("clip_%05d.png", clip.Index))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w, h, err := Rasterize(style, clip.Text, maxWidth, clip.ImagePath)
			if err != nil {
				return services.Wrap(services.ErrPrecondition, stageRender, "rasterize caption", fmt.Sprintf("clip %d", clip.Index), err)
			}
			clip.Width, clip.Height = w, h
			return nil
		})
	}
	return g.Wait()
}

func (c *Compositor) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		diagnostic := strings.TrimSpace(string(output))
		if len(diagnostic) > diagnosticMax {
			diagnostic = "..." + diagnostic[len(diagnostic)-diagnosticMax:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, diagnostic)
	}
	return nil
}
