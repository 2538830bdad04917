package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"captioner/internal/captions"
	"captioner/internal/config"
	"captioner/internal/correction"
	"captioner/internal/deps"
	"captioner/internal/logging"
	"captioner/internal/media/audio"
	"captioner/internal/media/ffprobe"
	"captioner/internal/models"
	"captioner/internal/overlay"
	"captioner/internal/services"
	"captioner/internal/services/whisperx"
	"captioner/internal/subtitles"
)

// CommandRunner executes an external program.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Pipeline runs the captioner stages against one configuration.
type Pipeline struct {
	cfg     *config.Config
	base    *slog.Logger
	logger  *slog.Logger
	models  *models.Manager
	probe   overlay.Prober
	runner  CommandRunner
	ffprobe string
}

// New constructs a pipeline. The model manager is owned by the caller.
func New(cfg *config.Config, manager *models.Manager, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		models:  manager,
		probe:   ffprobe.Inspect,
		ffprobe: deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.Render.FFprobe),
	}
}

// WithCommandRunner routes ffmpeg and uvx invocations through runner (for testing).
func (p *Pipeline) WithCommandRunner(runner CommandRunner) *Pipeline {
	p.runner = runner
	return p
}

// WithProber replaces the media inspector (for testing).
func (p *Pipeline) WithProber(probe overlay.Prober) *Pipeline {
	if probe != nil {
		p.probe = probe
	}
	return p
}

// NewRunContext returns ctx tagged with a fresh run identifier.
func NewRunContext(ctx context.Context) context.Context {
	return services.WithRunID(ctx, uuid.NewString())
}

// Acquire makes the named model available locally.
func (p *Pipeline) Acquire(ctx context.Context, name string, force bool) (models.Artifact, error) {
	var artifact models.Artifact
	err := runStage(ctx, p.logger.With(logging.String("model", name)), StageAcquire, func(ctx context.Context, _ *slog.Logger) error {
		var err error
		artifact, err = p.acquire(ctx, name, force)
		return err
	})
	return artifact, err
}

func (p *Pipeline) acquire(ctx context.Context, name string, force bool) (models.Artifact, error) {
	if p.models == nil {
		return models.Artifact{}, services.Wrap(services.ErrConfiguration, StageAcquire, "acquire model", "model manager unavailable", nil)
	}
	return p.models.Acquire(ctx, name, force)
}

// TranscribeRequest selects the video and engine settings for one transcription.
type TranscribeRequest struct {
	VideoPath     string
	Model         string
	Language      string
	ForceDownload bool
}

// TranscribeResult summarizes a transcription run.
type TranscribeResult struct {
	StorePath   string
	Model       models.Artifact
	AudioStream int
	AudioReused bool
	Segments    int
	Dropped     int
}

// Transcribe acquires the model, extracts the best audio track, runs the
// transcription engine, and replaces the video's caption store.
func (p *Pipeline) Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error) {
	var result TranscribeResult
	ctx = services.WithVideo(ctx, req.VideoPath)

	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = p.cfg.Models.Default
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = p.cfg.Transcription.Language
	}

	if _, err := os.Stat(req.VideoPath); err != nil {
		return result, services.Wrap(services.ErrPrecondition, StageTranscribe, "open video", req.VideoPath, err)
	}

	err := runStage(ctx, p.logger.With(logging.String("model", modelName)), StageAcquire, func(ctx context.Context, _ *slog.Logger) error {
		var err error
		result.Model, err = p.acquire(ctx, modelName, req.ForceDownload)
		return err
	})
	if err != nil {
		return result, err
	}

	err = runStage(ctx, p.logger, StageTranscribe, func(ctx context.Context, logger *slog.Logger) error {
		return p.transcribe(ctx, logger, req.VideoPath, modelName, lang, &result)
	})
	return result, err
}

func (p *Pipeline) transcribe(ctx context.Context, logger *slog.Logger, video, modelName, lang string, result *TranscribeResult) error {
	probe, err := p.probe(ctx, p.ffprobe, video)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, StageTranscribe, "probe video", video, err)
	}
	stream, ok := audio.Select(probe.Streams, lang)
	if !ok {
		return services.Wrap(services.ErrPrecondition, StageTranscribe, "select audio", "video has no audio stream", nil)
	}
	result.AudioStream = stream.Index

	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	wavPath := filepath.Join(p.cfg.Paths.WorkDir, base+".wav")
	extractor := audio.NewExtractor(p.cfg.FFmpegBinary(), p.base)
	if p.runner != nil {
		extractor.WithCommandRunner(p.runner)
	}
	result.AudioReused, err = extractor.Extract(ctx, video, stream.Index, wavPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, StageTranscribe, "extract audio", fmt.Sprintf("stream %d", stream.Index), err)
	}
	if !p.cfg.Transcription.KeepAudio {
		defer func() {
			if err := os.Remove(wavPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("audio cleanup failed", logging.Error(err), logging.String("audio_file", wavPath))
			}
		}()
	}

	outDir, err := os.MkdirTemp(p.cfg.Paths.WorkDir, "transcribe-")
	if err != nil {
		return services.Wrap(services.ErrPrecondition, StageTranscribe, "prepare work dir", p.cfg.Paths.WorkDir, err)
	}
	defer os.RemoveAll(outDir)

	svc := whisperx.NewService(whisperx.Config{
		Engine:      engineFor(result.Model),
		Model:       modelName,
		ModelPath:   result.Model.LocalPath,
		CUDAEnabled: p.cfg.Transcription.CUDAEnabled,
		VADMethod:   p.cfg.Transcription.VADMethod,
		HFToken:     p.cfg.Models.HuggingFaceToken,
	})
	if p.runner != nil {
		svc.WithCommandRunner(p.runner)
	}
	logger.Info("transcription started",
		logging.String("engine", svc.Engine()),
		logging.String("model_path", result.Model.LocalPath),
		logging.String("language", lang),
		logging.Bool("cuda", svc.CUDAEnabled()),
		logging.Int("audio_stream", stream.Index),
	)
	transcript, err := svc.TranscribeFile(ctx, wavPath, outDir, lang)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, StageTranscribe, "run "+svc.Engine(), svc.Model(), err)
	}
	if transcript.Dropped > 0 {
		logging.WarnWithContext(logger, "transcription produced unusable segments", "transcript_segments_dropped",
			logging.Int("dropped", transcript.Dropped),
		)
	}
	if len(transcript.Segments) == 0 {
		logging.WarnWithContext(logger, "transcription found no speech", "transcript_empty")
	}

	result.StorePath = captions.PathFor(p.cfg.Paths.CaptionsDir, video)
	if err := captions.Write(result.StorePath, transcript.Segments); err != nil {
		return err
	}
	result.Segments = len(transcript.Segments)
	result.Dropped = transcript.Dropped
	logger.Info("caption store written",
		logging.String("store", result.StorePath),
		logging.Int("segments", result.Segments),
	)
	return nil
}

// engineFor picks the recognizer able to load artifact: snapshot directories
// are CTranslate2 models for WhisperX, single files are OpenAI checkpoints.
func engineFor(artifact models.Artifact) string {
	if artifact.Kind == models.KindDirectory {
		return whisperx.EngineWhisperX
	}
	return whisperx.EngineWhisper
}

// Correct merges a corrected transcript into the video's caption store.
func (p *Pipeline) Correct(ctx context.Context, req correction.Request) (correction.Result, error) {
	var result correction.Result
	ctx = services.WithVideo(ctx, req.VideoPath)
	err := runStage(ctx, p.logger, StageCorrect, func(ctx context.Context, _ *slog.Logger) error {
		engine, err := correction.NewEngine(p.cfg, p.base)
		if err != nil {
			return err
		}
		result, err = engine.Apply(ctx, req)
		return err
	})
	return result, err
}

// RenderRequest selects the outputs of a render pass.
type RenderRequest struct {
	VideoPath     string
	SubtitlesOnly bool
}

// RenderResult reports the subtitle file and, unless skipped, the captioned video.
type RenderResult struct {
	Subtitles subtitles.Result
	Video     *overlay.Result
}

// Render writes the SubRip file and the captioned video from the caption store.
func (p *Pipeline) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	var result RenderResult
	ctx = services.WithVideo(ctx, req.VideoPath)
	err := runStage(ctx, p.logger, StageRender, func(ctx context.Context, _ *slog.Logger) error {
		generated, err := subtitles.NewGenerator(p.cfg, p.base).Generate(ctx, req.VideoPath)
		if err != nil {
			return err
		}
		result.Subtitles = generated
		if req.SubtitlesOnly {
			return nil
		}

		if _, err := os.Stat(req.VideoPath); err != nil {
			return services.Wrap(services.ErrPrecondition, StageRender, "open video", req.VideoPath, err)
		}
		compositor := overlay.NewCompositor(p.cfg, p.base)
		compositor.WithProber(p.probe)
		if p.runner != nil {
			compositor.WithCommandRunner(p.runner)
		}
		rendered, err := compositor.Render(ctx, req.VideoPath)
		if err != nil {
			return err
		}
		result.Video = &rendered
		return nil
	})
	return result, err
}
