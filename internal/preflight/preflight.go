package preflight

import (
	"context"

	"captioner/internal/config"
)

const (
	// MinModelSpace is the free space wanted under models_dir for the largest
	// built-in checkpoint.
	MinModelSpace uint64 = 4 << 30
	// MinWorkSpace covers one extracted 16 kHz mono track of a long video.
	MinWorkSpace uint64 = 512 << 20
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory, disk space, and token checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	dirs := []struct {
		name string
		path string
	}{
		{"Captions directory", cfg.Paths.CaptionsDir},
		{"Subtitles directory", cfg.Paths.SubtitlesDir},
		{"Video output directory", cfg.Paths.VideoOutputDir},
		{"Models directory", cfg.Paths.ModelsDir},
		{"Work directory", cfg.Paths.WorkDir},
		{"State directory", cfg.Paths.StateDir},
	}
	results := make([]Result, 0, len(dirs)+3)
	for _, dir := range dirs {
		results = append(results, CheckDirectoryAccess(dir.name, dir.path))
	}

	results = append(results,
		CheckDiskSpace("Models disk space", cfg.Paths.ModelsDir, MinModelSpace),
		CheckDiskSpace("Work disk space", cfg.Paths.WorkDir, MinWorkSpace),
		CheckHuggingFaceFromConfig(ctx, cfg),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
