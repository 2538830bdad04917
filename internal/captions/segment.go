package captions

import (
	"fmt"
	"math"
	"strings"
)

// Segment is one timestamped unit of transcribed speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Duration returns End-Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate reports whether the segment has a positive duration.
func (s Segment) Validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) {
		return fmt.Errorf("segment %q has a NaN timestamp", s.Text)
	}
	if s.Start < 0 {
		return fmt.Errorf("segment %q starts before zero (%.2f)", s.Text, s.Start)
	}
	if !(s.End > s.Start) {
		return fmt.Errorf("segment %q ends at %.2f, not after its start %.2f", s.Text, s.End, s.Start)
	}
	return nil
}

// Round returns the value rounded to the store's two-decimal precision.
func Round(seconds float64) float64 {
	return math.Round(seconds*100) / 100
}

// CleanText trims text and collapses any internal line breaks to spaces so a
// segment always occupies exactly one store line.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.ContainsAny(text, "\r\n") {
		return text
	}
	return strings.Join(strings.Fields(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)), " ")
}
