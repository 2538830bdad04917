package pipeline

import (
	"context"
	"log/slog"
	"time"

	"captioner/internal/logging"
	"captioner/internal/services"
)

// Stage names used in logs and error details.
const (
	StageAcquire    = "acquire"
	StageTranscribe = "transcribe"
	StageCorrect    = "correct"
	StageRender     = "render"
)

func runStage(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, logger)

	started := time.Now()
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx, stageLogger); err != nil {
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, Hint(err)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Hint returns a short remediation suggestion for err, or "" when none applies.
func Hint(err error) string {
	switch services.Kind(err) {
	case "not_found":
		return "check the name or path; `captioner model list` shows known models"
	case "download":
		return "check network access to the model host and retry"
	case "integrity":
		return "the model host served a corrupt file twice; retry later with --force-download"
	case "precondition":
		return "check the inputs; correct and render need a caption store from transcribe"
	case "validation":
		return "the caption data is malformed; inspect the store file"
	case "configuration":
		return "check the config file (`captioner config show`)"
	case "external_tool":
		return "check ffmpeg, ffprobe, and uvx (`captioner status`)"
	default:
		return ""
	}
}
