package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary to run. An explicitly configured
// command wins. Otherwise an ffprobe sitting next to the resolved ffmpeg is
// preferred so both tools come from the same build, falling back to "ffprobe"
// on PATH.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	if configured := strings.TrimSpace(ffprobeCommand); configured != "" && configured != "ffprobe" {
		return configured
	}

	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				return candidate
			}
		}
	}
	return "ffprobe"
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
