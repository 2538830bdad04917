package overlay

import (
	"captioner/internal/captions"
	"captioner/internal/subtitles"
)

// Clip is one timed caption image composited onto the video.
type Clip struct {
	Index   int
	Start   float64
	End     float64
	Text    string
	FadeIn  float64
	FadeOut float64
	// YOffset is the distance in pixels from the bottom edge to the clip's top.
	YOffset int

	ImagePath string
	Width     int
	Height    int
}

// Duration returns the on-screen time in seconds.
func (c Clip) Duration() float64 {
	return c.End - c.Start
}

// Plan turns retained segments into clips in chronological order and reports
// how many segments were too short to show.
func Plan(segments []captions.Segment, fadeIn, fadeOut float64, yOffset int) ([]Clip, int) {
	retained, dropped := subtitles.Retain(segments, fadeIn+fadeOut)
	clips := make([]Clip, 0, len(retained))
	for i, seg := range retained {
		clips = append(clips, Clip{
			Index:   i,
			Start:   seg.Start,
			End:     seg.End,
			Text:    captions.CleanText(seg.Text),
			FadeIn:  fadeIn,
			FadeOut: fadeOut,
			YOffset: yOffset,
		})
	}
	return clips, dropped
}

// Position returns the top-left corner for a clip of size w×h on a frame of
// size frameW×frameH: centered horizontally, top edge YOffset pixels above
// the bottom, clamped so the clip stays inside the frame.
func (c Clip) Position(frameW, frameH int) (int, int) {
	x := (frameW - c.Width) / 2
	if x < 0 {
		x = 0
	}
	y := frameH - c.YOffset
	if y+c.Height > frameH {
		y = frameH - c.Height
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
