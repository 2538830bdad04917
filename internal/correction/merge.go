package correction

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"captioner/internal/captions"
	"captioner/internal/services"
)

// Grouping selects how segments are partitioned when the transcript has fewer
// lines than the store has segments.
type Grouping string

const (
	GroupingAlign Grouping = "align"
	GroupingEven  Grouping = "even"
	// GroupingPairwise is reported when line and segment counts match.
	GroupingPairwise Grouping = "pairwise"
)

// ParseGrouping validates a configured policy name. Empty selects align.
func ParseGrouping(value string) (Grouping, error) {
	switch Grouping(strings.ToLower(strings.TrimSpace(value))) {
	case "", GroupingAlign:
		return GroupingAlign, nil
	case GroupingEven:
		return GroupingEven, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "correct", "parse grouping", fmt.Sprintf("unknown grouping %q (want align or even)", value), nil)
	}
}

// Merge applies corrected lines to segments and returns the new segment list
// together with the policy that produced it. The input slice is not modified.
func Merge(segments []captions.Segment, lines []string, grouping Grouping) ([]captions.Segment, Grouping, error) {
	n, m := len(segments), len(lines)
	if m == 0 {
		return nil, "", services.Wrap(services.ErrPrecondition, "correct", "merge", "corrected transcript has no lines", nil)
	}
	if m > n {
		return nil, "", services.Wrap(
			services.ErrPrecondition,
			"correct",
			"merge",
			fmt.Sprintf("corrected transcript has %d lines but the caption store has only %d segments", m, n),
			nil,
		)
	}

	if m == n {
		out := make([]captions.Segment, n)
		for i, seg := range segments {
			out[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(lines[i])}
		}
		return out, GroupingPairwise, nil
	}

	var sizes []int
	used := grouping
	switch grouping {
	case GroupingEven:
		sizes = evenSizes(n, m)
	case GroupingAlign, "":
		used = GroupingAlign
		var ok bool
		sizes, ok = alignSizes(segments, lines)
		if !ok {
			sizes = evenSizes(n, m)
			used = GroupingEven
		}
	default:
		return nil, "", services.Wrap(services.ErrConfiguration, "correct", "merge", fmt.Sprintf("unknown grouping %q", grouping), nil)
	}

	out := make([]captions.Segment, 0, m)
	next := 0
	for j, size := range sizes {
		first := segments[next]
		last := segments[next+size-1]
		out = append(out, captions.Segment{Start: first.Start, End: last.End, Text: strings.TrimSpace(lines[j])})
		next += size
	}
	return out, used, nil
}

// evenSizes splits n items into m contiguous groups; the first n mod m groups
// take one extra item.
func evenSizes(n, m int) []int {
	sizes := make([]int, m)
	base, extra := n/m, n%m
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// maxAlignCells bounds the alignment table. Larger inputs fall back to even.
const maxAlignCells = 32 << 20

// alignSizes chooses group boundaries minimizing the summed difference between
// each line's normalized length and its group's normalized length. A group
// spans at most a few times the even group size. Returns false when there is
// no content to align on or the input is too large to align.
func alignSizes(segments []captions.Segment, lines []string) ([]int, bool) {
	n, m := len(segments), len(lines)

	prefix := make([]int, n+1)
	for i, seg := range segments {
		prefix[i+1] = prefix[i] + contentLength(seg.Text)
	}
	targets := make([]int, m)
	lineTotal := 0
	for j, line := range lines {
		targets[j] = contentLength(line)
		lineTotal += targets[j]
	}
	if prefix[n] == 0 || lineTotal == 0 {
		return nil, false
	}

	maxGroup := min(2*((n+m-1)/m)+4, n-m+1)
	if maxGroup > math.MaxUint16 {
		return nil, false
	}

	// Row j covers the segment counts the first j lines can end on while
	// leaving room for the rest.
	lo := make([]int, m+1)
	hi := make([]int, m+1)
	cells := 0
	for j := 1; j <= m; j++ {
		lo[j] = max(j, n-(m-j)*maxGroup)
		hi[j] = min(n-(m-j), j*maxGroup)
		cells += hi[j] - lo[j] + 1
	}
	if cells > maxAlignCells {
		return nil, false
	}

	const inf = int(^uint(0) >> 1)
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	prev[0] = 0
	// choice[j][i-lo[j]] is the size of line j's group when the first j lines
	// cover i segments.
	choice := make([][]uint16, m+1)
	for j := 1; j <= m; j++ {
		choice[j] = make([]uint16, hi[j]-lo[j]+1)
		for i := lo[j]; i <= hi[j]; i++ {
			best, size := inf, 0
			// Ascending k keeps the earliest boundary on ties.
			for k := max(lo[j-1], i-maxGroup); k <= min(hi[j-1], i-1); k++ {
				if prev[k] == inf {
					continue
				}
				c := prev[k] + abs(targets[j-1]-(prefix[i]-prefix[k]))
				if c < best {
					best, size = c, i-k
				}
			}
			cur[i] = best
			choice[j][i-lo[j]] = uint16(size)
		}
		prev, cur = cur, prev
	}
	if prev[n] == inf {
		return nil, false
	}

	sizes := make([]int, m)
	i := n
	for j := m; j > 0; j-- {
		sizes[j-1] = int(choice[j][i-lo[j]])
		i -= sizes[j-1]
	}
	return sizes, true
}

// contentLength counts letters and digits after NFKC normalization and case
// folding, so punctuation and spacing edits do not move boundaries.
func contentLength(text string) int {
	normalized := cases.Fold().String(norm.NFKC.String(text))
	count := 0
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			count++
		}
	}
	return count
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
