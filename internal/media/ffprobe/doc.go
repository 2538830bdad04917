// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes its streams and format sections; helper
// methods on Result answer the questions the render and transcription stages
// ask: the frame size of the first video stream, whether any audio exists,
// and the container duration.
package ffprobe
