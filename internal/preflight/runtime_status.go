package preflight

import (
	"context"
	"strings"

	"captioner/internal/config"
)

// CheckHuggingFaceFromConfig evaluates the configured Hugging Face token. A
// missing token passes unless the VAD method needs gated pyannote weights.
func CheckHuggingFaceFromConfig(ctx context.Context, cfg *config.Config) Result {
	baseURL := HuggingFaceURL
	if cfg != nil && cfg.Models.HuggingFaceURL != "" {
		baseURL = cfg.Models.HuggingFaceURL
	}
	return checkHuggingFaceFromConfig(ctx, cfg, baseURL)
}

func checkHuggingFaceFromConfig(ctx context.Context, cfg *config.Config, baseURL string) Result {
	const name = "Hugging Face token"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Models.HuggingFaceToken) == "" {
		if strings.EqualFold(cfg.Transcription.VADMethod, "pyannote") {
			return Result{Name: name, Detail: "Missing token (required by pyannote VAD)"}
		}
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	return CheckHuggingFace(ctx, baseURL, cfg.Models.HuggingFaceToken)
}
