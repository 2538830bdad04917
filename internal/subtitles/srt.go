package subtitles

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"captioner/internal/captions"
)

// Cue is one indexed SubRip item.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Document is an ordered SubRip cue list.
type Document struct {
	Cues []Cue
}

// Build indexes segments from 1 in the order given.
func Build(segments []captions.Segment) Document {
	doc := Document{Cues: make([]Cue, 0, len(segments))}
	for i, seg := range segments {
		doc.Cues = append(doc.Cues, Cue{
			Index: i + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  captions.CleanText(seg.Text),
		})
	}
	return doc
}

// Bytes renders the document in SubRip format.
func (d Document) Bytes() []byte {
	var buf bytes.Buffer
	for i, cue := range d.Cues {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n", cue.Index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text)
	}
	return buf.Bytes()
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp converts HH:MM:SS,mmm (or with a period separator) to seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// CountCues counts non-empty cue blocks in a SubRip file.
func CountCues(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return 0, nil
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count, nil
}

// Validate checks a SubRip file for structural problems. An empty result
// means the file passed.
func Validate(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("read_error: %v", err)}
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return []string{"empty_subtitle_file"}
	}

	var issues []string
	previousEnd := -1.0
	for n, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			issues = append(issues, fmt.Sprintf("cue %d: incomplete block", n+1))
			continue
		}
		if index, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil || index != n+1 {
			issues = append(issues, fmt.Sprintf("cue %d: bad index %q", n+1, lines[0]))
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			issues = append(issues, fmt.Sprintf("cue %d: missing timing arrow", n+1))
			continue
		}
		start, errStart := ParseTimestamp(parts[0])
		end, errEnd := ParseTimestamp(parts[1])
		if errStart != nil || errEnd != nil {
			issues = append(issues, fmt.Sprintf("cue %d: timestamp_parse_error", n+1))
			continue
		}
		if end <= start {
			issues = append(issues, fmt.Sprintf("cue %d: non_positive_duration", n+1))
		}
		if start < previousEnd {
			issues = append(issues, fmt.Sprintf("cue %d: overlaps previous cue", n+1))
		}
		previousEnd = end
	}
	return issues
}
