package subtitles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"captioner/internal/captions"
	"captioner/internal/config"
	"captioner/internal/fileutil"
	"captioner/internal/logging"
	"captioner/internal/services"
)

// Result describes a generated subtitle file.
type Result struct {
	Path    string
	Cues    int
	Dropped int
	Skipped int
}

// Generator writes SubRip files for caption stores.
type Generator struct {
	captionsDir  string
	subtitlesDir string
	minSeconds   float64
	logger       *slog.Logger
}

// NewGenerator constructs a generator from configuration.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	return &Generator{
		captionsDir:  cfg.Paths.CaptionsDir,
		subtitlesDir: cfg.Paths.SubtitlesDir,
		minSeconds:   cfg.MinVisibleSeconds(),
		logger:       logging.NewComponentLogger(logger, "subtitles"),
	}
}

// PathFor returns <subtitles_dir>/<video base>.srt.
func (g *Generator) PathFor(videoPath string) string {
	base := filepath.Base(videoPath)
	return filepath.Join(g.subtitlesDir, strings.TrimSuffix(base, filepath.Ext(base))+".srt")
}

// Generate reads the video's caption store and writes its subtitle file.
func (g *Generator) Generate(ctx context.Context, videoPath string) (Result, error) {
	stored, err := captions.Load(g.captionsDir, videoPath)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return Result{}, services.Wrap(services.ErrPrecondition, "subtitles", "load captions",
				fmt.Sprintf("no caption store for %s; run transcribe first", filepath.Base(videoPath)), err)
		}
		return Result{}, err
	}
	return g.Write(ctx, videoPath, stored)
}

// Write renders an already loaded store for videoPath.
func (g *Generator) Write(ctx context.Context, videoPath string, stored captions.ReadResult) (Result, error) {
	logger := logging.WithContext(ctx, g.logger)
	retained, dropped := Retain(stored.Segments, g.minSeconds)
	doc := Build(retained)

	result := Result{
		Path:    g.PathFor(videoPath),
		Cues:    len(doc.Cues),
		Dropped: dropped,
		Skipped: stored.Skipped,
	}
	if err := fileutil.WriteFileAtomic(result.Path, doc.Bytes(), 0o644); err != nil {
		return Result{}, services.Wrap(services.ErrPrecondition, "subtitles", "write srt", result.Path, err)
	}

	if dropped > 0 {
		logger.Debug("short segments dropped",
			logging.Int("dropped", dropped),
			logging.Float64("min_seconds", g.minSeconds),
		)
	}
	logger.Info("subtitle file written",
		logging.String("subtitle_file", result.Path),
		logging.Int("cues", result.Cues),
		logging.Int("dropped", result.Dropped),
	)
	return result, nil
}
