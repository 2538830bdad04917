package captions

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"captioner/internal/fileutil"
	"captioner/internal/services"
)

var lineRE = regexp.MustCompile(`^(\d+(?:\.\d+)?)-(\d+(?:\.\d+)?): (.+)$`)

// ReadResult is the outcome of a lossy store read.
type ReadResult struct {
	Segments []Segment
	// Skipped counts non-blank lines that did not match the store format.
	Skipped int
}

// PathFor derives the store path for a source video:
// <dir>/<video basename without extension>.txt.
func PathFor(dir, videoPath string) string {
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".txt")
}

// Exists reports whether a store file is present at path.
func Exists(path string) bool {
	return fileutil.FileExists(path)
}

// Format renders segments in store format without validating them.
func Format(segments []Segment) []byte {
	var buf bytes.Buffer
	for _, seg := range segments {
		fmt.Fprintf(&buf, "%.2f-%.2f: %s\n", Round(seg.Start), Round(seg.End), CleanText(seg.Text))
	}
	return buf.Bytes()
}

// Write replaces the store at path with segments. Every segment is validated
// at store precision before anything touches disk, so a span that collapses
// when rounded is rejected. The file is replaced atomically.
func Write(path string, segments []Segment) error {
	for i, seg := range segments {
		rounded := Segment{Start: Round(seg.Start), End: Round(seg.End), Text: seg.Text}
		if err := rounded.Validate(); err != nil {
			return services.Wrap(services.ErrValidation, "captions", "write store", fmt.Sprintf("segment %d", i+1), err)
		}
		if CleanText(seg.Text) == "" {
			return services.Wrap(services.ErrValidation, "captions", "write store", fmt.Sprintf("segment %d has empty text", i+1), nil)
		}
	}
	if err := fileutil.WriteFileAtomic(path, Format(segments), 0o644); err != nil {
		return services.Wrap(services.ErrPrecondition, "captions", "write store", path, err)
	}
	return nil
}

// Read loads the store at path. A missing file yields services.ErrNotFound.
func Read(path string) (ReadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ReadResult{}, services.Wrap(services.ErrNotFound, "captions", "read store", path, err)
		}
		return ReadResult{}, fmt.Errorf("open caption store: %w", err)
	}
	defer file.Close()

	result, err := Parse(file)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read caption store %s: %w", path, err)
	}
	return result, nil
}

// Load reads the store belonging to videoPath under dir.
func Load(dir, videoPath string) (ReadResult, error) {
	return Read(PathFor(dir, videoPath))
}

// Parse decodes store lines from r. Lines have no length limit.
func Parse(r io.Reader) (ReadResult, error) {
	var result ReadResult
	reader := bufio.NewReader(r)
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return ReadResult{}, err
		}
		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) != "" {
			if seg, ok := parseLine(line); ok {
				result.Segments = append(result.Segments, seg)
			} else {
				result.Skipped++
			}
		}
		if err != nil {
			return result, nil
		}
	}
}

func parseLine(line string) (Segment, bool) {
	match := lineRE.FindStringSubmatch(line)
	if match == nil {
		return Segment{}, false
	}
	start, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Segment{}, false
	}
	end, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Segment{}, false
	}
	return Segment{Start: start, End: end, Text: match[3]}, true
}
