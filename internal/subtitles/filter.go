package subtitles

import (
	"math"

	"captioner/internal/captions"
)

// Retain returns the segments long enough to display, in their original
// order, and the number dropped. A segment is dropped when End-Start is less
// than minSeconds. Durations compare at millisecond precision so two-decimal
// store values are not lost to float error.
func Retain(segments []captions.Segment, minSeconds float64) ([]captions.Segment, int) {
	minMillis := math.Round(minSeconds * 1000)
	kept := make([]captions.Segment, 0, len(segments))
	for _, seg := range segments {
		if math.Round(seg.Duration()*1000) < minMillis {
			continue
		}
		kept = append(kept, seg)
	}
	return kept, len(segments) - len(kept)
}
