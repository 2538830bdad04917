package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"captioner/internal/fileutil"
	"captioner/internal/logging"
)

// Extractor writes transcription-ready WAV files.
type Extractor struct {
	ffmpegBinary  string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewExtractor creates an extractor using the given ffmpeg executable.
func NewExtractor(ffmpegBinary string, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Extractor{
		ffmpegBinary: ffmpegBinary,
		logger:       logging.NewComponentLogger(logger, "audio"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.commandRunner = runner
}

// BuildArgs returns the ffmpeg arguments extracting stream streamIndex of
// source into dest as mono 16 kHz signed 16-bit PCM.
func BuildArgs(source string, streamIndex int, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dest,
	}
}

// Extract writes the audio to dest unless a non-empty file is already there.
// It reports whether an existing file was reused.
func (e *Extractor) Extract(ctx context.Context, source string, streamIndex int, dest string) (bool, error) {
	if streamIndex < 0 {
		return false, fmt.Errorf("extract audio: invalid stream index %d", streamIndex)
	}
	logger := logging.WithContext(ctx, e.logger).With(logging.String("audio_file", dest))
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		logger.Debug("reusing extracted audio", logging.Int64("size_bytes", info.Size()))
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("extract audio: ensure work dir: %w", err)
	}

	tmp := fileutil.TempPath(dest)
	if err := e.run(ctx, e.ffmpegBinary, BuildArgs(source, streamIndex, tmp)...); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("extract audio: rename: %w", err)
	}
	logger.Info("audio extracted", logging.Int("stream_index", streamIndex))
	return false, nil
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
