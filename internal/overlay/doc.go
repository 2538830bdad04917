// Package overlay burns caption text into a video.
//
// Each retained caption segment becomes a clip: its text is rasterized to a
// transparent PNG with the configured TrueType face, fill, and stroke, then
// ffmpeg loops the PNG for the clip's duration, fades its alpha in and out,
// shifts it to the segment start, and overlays it centered at the configured
// distance from the bottom edge. Clip planning uses subtitles.Retain, so the
// rendered video and the subtitle file always show the same captions.
package overlay
