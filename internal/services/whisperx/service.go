package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"captioner/internal/captions"
	langpkg "captioner/internal/language"
)

// Service runs one recognizer over WAV files.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Engine returns the recognizer this service runs.
func (s *Service) Engine() string {
	if s.cfg.Engine == EngineWhisper {
		return EngineWhisper
	}
	return EngineWhisperX
}

// modelArg is what the recognizer loads: the acquired artifact when known.
func (s *Service) modelArg() string {
	if s.cfg.ModelPath != "" {
		return s.cfg.ModelPath
	}
	return s.Model()
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 defaults torch.load to weights_only, which rejects the
	// pyannote checkpoints WhisperX ships with.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// TranscribeResult contains the result of a transcription.
type TranscribeResult struct {
	// JSONPath is the engine JSON output.
	JSONPath string
	// Segments are the usable segments rounded to store precision.
	Segments []captions.Segment
	// Dropped counts empty or non-positive-duration segments discarded.
	Dropped int
}

// TranscribeFile transcribes a WAV file. outputDir receives the engine
// output files.
func (s *Service) TranscribeFile(ctx context.Context, source, outputDir, language string) (TranscribeResult, error) {
	var result TranscribeResult

	if source == "" {
		return result, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.BuildArgs(source, outputDir, language)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return result, fmt.Errorf("%s: %w", s.Engine(), err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")

	raw, err := LoadSegments(result.JSONPath)
	if err != nil {
		return result, fmt.Errorf("%s: load output: %w", s.Engine(), err)
	}
	result.Segments, result.Dropped = ToCaptions(raw)
	return result, nil
}

// BuildArgs constructs the uvx command arguments for the configured engine.
func (s *Service) BuildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	if s.Engine() == EngineWhisper {
		return append(args, s.whisperArgs(source, outputDir, language)...)
	}
	return append(args, s.whisperXArgs(source, outputDir, language)...)
}

// whisperArgs drives the openai-whisper CLI. It accepts a checkpoint path as
// --model and loads it without downloading.
func (s *Service) whisperArgs(source, outputDir, language string) []string {
	args := []string{
		"--from", WhisperPackage,
		"whisper",
		source,
		"--model", s.modelArg(),
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--task", "transcribe",
		"--beam_size", BeamSize,
		"--temperature", Temperature,
		"--word_timestamps", "True",
		"--verbose", "False",
	}
	if s.cfg.ModelPath != "" {
		args = append(args, "--model_dir", filepath.Dir(s.cfg.ModelPath))
	}
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--fp16", "False")
	}
	return args
}

// whisperXArgs drives WhisperX. A CTranslate2 model directory passed as
// --model is loaded in place.
func (s *Service) whisperXArgs(source, outputDir, language string) []string {
	args := []string{
		"whisperx",
		source,
		"--model", s.modelArg(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	}

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// Segment represents a transcribed segment from the engine's JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from an engine JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse transcript json: %w", err)
	}
	return payload.Segments, nil
}

// ToCaptions rounds engine segments to store precision and discards those
// with no text or no positive duration after rounding.
func ToCaptions(raw []Segment) ([]captions.Segment, int) {
	out := make([]captions.Segment, 0, len(raw))
	for _, seg := range raw {
		text := captions.CleanText(seg.Text)
		start := captions.Round(math.Max(seg.Start, 0))
		end := captions.Round(seg.End)
		if text == "" || !(end > start) {
			continue
		}
		out = append(out, captions.Segment{Start: start, End: end, Text: text})
	}
	return out, len(raw) - len(out)
}
