// Package preflight provides readiness checks for the filesystem, external
// binaries, and remote services captioner depends on.
//
// The CLI "captioner status" command renders RunAll and CheckSystemDeps as a
// table. The transcribe command runs CheckSystemDeps before starting so a
// missing uvx or ffmpeg fails fast instead of after the model download.
package preflight
