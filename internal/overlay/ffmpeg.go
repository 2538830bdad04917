package overlay

import (
	"fmt"
	"strconv"
	"strings"
)

// Encoding selects the output codecs.
type Encoding struct {
	VideoCodec string
	Preset     string
	AudioCodec string
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FilterGraph builds the filter_complex expression compositing clips onto
// input 0 in order. Clip i is read from input i+1. It returns the graph and
// the label of the final video stream.
func FilterGraph(clips []Clip, frameW, frameH int) (string, string) {
	if len(clips) == 0 {
		return "", "0:v"
	}
	var parts []string
	prev := "0:v"
	for i, clip := range clips {
		input := i + 1
		chain := []string{"format=rgba"}
		if clip.FadeIn > 0 {
			chain = append(chain, fmt.Sprintf("fade=t=in:st=0:d=%s:alpha=1", seconds(clip.FadeIn)))
		}
		if clip.FadeOut > 0 {
			chain = append(chain, fmt.Sprintf("fade=t=out:st=%s:d=%s:alpha=1",
				seconds(clip.Duration()-clip.FadeOut), seconds(clip.FadeOut)))
		}
		chain = append(chain, fmt.Sprintf("setpts=PTS+%s/TB", seconds(clip.Start)))
		parts = append(parts, fmt.Sprintf("[%d:v]%s[c%d]", input, strings.Join(chain, ","), input))

		x, y := clip.Position(frameW, frameH)
		out := fmt.Sprintf("v%d", input)
		parts = append(parts, fmt.Sprintf("[%s][c%d]overlay=x=%d:y=%d:enable='between(t,%s,%s)'[%s]",
			prev, input, x, y, seconds(clip.Start), seconds(clip.End), out))
		prev = out
	}
	return strings.Join(parts, ";"), prev
}

// BuildArgs returns the ffmpeg command line rendering clips onto input and
// writing output. Audio is copied through the configured encoder when present.
func BuildArgs(input, output string, clips []Clip, frameW, frameH int, enc Encoding) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input}
	for _, clip := range clips {
		args = append(args, "-loop", "1", "-t", seconds(clip.Duration()), "-i", clip.ImagePath)
	}

	graph, final := FilterGraph(clips, frameW, frameH)
	if graph != "" {
		args = append(args, "-filter_complex", graph, "-map", "["+final+"]")
	} else {
		args = append(args, "-map", final)
	}
	args = append(args, "-map", "0:a?")

	if enc.VideoCodec != "" {
		args = append(args, "-c:v", enc.VideoCodec)
	}
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	args = append(args, "-pix_fmt", "yuv420p")
	if enc.AudioCodec != "" {
		args = append(args, "-c:a", enc.AudioCodec)
	}
	return append(args, output)
}
