package correction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"captioner/internal/captions"
	"captioner/internal/config"
	"captioner/internal/fileutil"
	"captioner/internal/logging"
	"captioner/internal/services"
)

// Request identifies the store to correct and the edited transcript.
type Request struct {
	VideoPath      string
	TranscriptPath string
	// Grouping overrides the configured policy when set.
	Grouping Grouping
}

// Result summarizes one merge.
type Result struct {
	StorePath  string
	BackupPath string
	// BackedUp is false when the backup copy failed; the merge still proceeds.
	BackedUp      bool
	Segments      int
	Lines         int
	MergedEntries int
	Policy        Grouping
}

// Engine applies corrected transcripts to caption stores.
type Engine struct {
	captionsDir string
	grouping    Grouping
	logger      *slog.Logger
}

// NewEngine constructs an engine from configuration.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	grouping, err := ParseGrouping(cfg.Correction.Grouping)
	if err != nil {
		return nil, err
	}
	return &Engine{
		captionsDir: cfg.Paths.CaptionsDir,
		grouping:    grouping,
		logger:      logging.NewComponentLogger(logger, "correction"),
	}, nil
}

// BackupPath returns <dir>/<base>_old.txt for a store at storePath.
func BackupPath(storePath string) string {
	dir := filepath.Dir(storePath)
	base := filepath.Base(storePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"_old.txt")
}

// ReadTranscript returns the non-blank lines of a corrected transcript with
// surrounding whitespace removed.
func ReadTranscript(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "correct", "read transcript", path, err)
		}
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()

	var lines []string
	reader := bufio.NewReader(file)
	first := true
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read transcript %s: %w", path, err)
		}
		if first {
			raw = strings.TrimPrefix(raw, "\ufeff")
			first = false
		}
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
	}
	return lines, nil
}

// Apply merges the transcript into the video's caption store. The store is
// left untouched when the merge precondition fails.
func (e *Engine) Apply(ctx context.Context, req Request) (Result, error) {
	storePath := captions.PathFor(e.captionsDir, req.VideoPath)
	logger := logging.WithContext(ctx, e.logger).With(logging.String("store", storePath))

	stored, err := captions.Read(storePath)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return Result{}, services.Wrap(services.ErrPrecondition, "correct", "load captions",
				fmt.Sprintf("no caption store for %s; run transcribe first", filepath.Base(req.VideoPath)), err)
		}
		return Result{}, err
	}
	if stored.Skipped > 0 {
		logging.WarnWithContext(logger, "caption store contains unreadable lines", "caption_lines_skipped",
			logging.Int("skipped", stored.Skipped),
		)
	}

	lines, err := ReadTranscript(req.TranscriptPath)
	if err != nil {
		return Result{}, err
	}

	grouping := req.Grouping
	if grouping == "" {
		grouping = e.grouping
	}
	merged, used, err := Merge(stored.Segments, lines, grouping)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		StorePath:     storePath,
		BackupPath:    BackupPath(storePath),
		Segments:      len(stored.Segments),
		Lines:         len(lines),
		MergedEntries: len(merged),
		Policy:        used,
	}

	if err := fileutil.CopyFileAtomic(storePath, result.BackupPath); err != nil {
		logging.WarnWithContext(logger, "caption backup failed; continuing without backup", "caption_backup_failed",
			logging.Error(err),
			logging.String("backup", result.BackupPath),
		)
	} else {
		result.BackedUp = true
	}

	if err := captions.Write(storePath, merged); err != nil {
		return Result{}, err
	}

	logger.Info("caption store corrected",
		logging.Int("segments", result.Segments),
		logging.Int("lines", result.Lines),
		logging.Int("entries", result.MergedEntries),
		logging.String("policy", string(result.Policy)),
		logging.Bool("backed_up", result.BackedUp),
	)
	return result, nil
}
