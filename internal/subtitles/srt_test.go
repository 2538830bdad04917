package subtitles

import (
	"os"
	"path/filepath"
	"testing"

	"captioner/internal/captions"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.01, "00:01:01,010"},
		{3723.456, "01:02:03,456"},
		{-3, "00:00:00,000"},
		{59.9996, "00:01:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		value   string
		want    float64
		wantErr bool
	}{
		{"00:00:01,500", 1.5, false},
		{"01:02:03.500", 3723.5, false},
		{"", 0, true},
		{"1:2", 0, true},
		{"aa:bb:cc,ddd", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) err = %v", tt.value, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestBuildAndRender(t *testing.T) {
	doc := Build([]captions.Segment{
		{Start: 0, End: 1.25, Text: "first"},
		{Start: 2, End: 3.5, Text: "second\nline"},
	})
	want := "1\n00:00:00,000 --> 00:00:01,250\nfirst\n\n2\n00:00:02,000 --> 00:00:03,500\nsecond line\n"
	if got := string(doc.Bytes()); got != want {
		t.Fatalf("rendered =\n%q\nwant\n%q", got, want)
	}
}

func TestCountCuesAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	doc := Build([]captions.Segment{{Start: 0, End: 1, Text: "a"}, {Start: 1, End: 2, Text: "b"}, {Start: 2, End: 3, Text: "c"}})
	if err := os.WriteFile(path, doc.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	count, err := CountCues(path)
	if err != nil || count != 3 {
		t.Fatalf("CountCues = %d, %v", count, err)
	}
	if issues := Validate(path); len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}

	bad := "1\n00:00:02,000 --> 00:00:01,000\nbackwards\n\n3\n00:00:00,500 --> 00:00:03,000\noverlap\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if issues := Validate(path); len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %v", issues)
	}
}

func TestRetain(t *testing.T) {
	segments := []captions.Segment{
		{Start: 0, End: 0.3, Text: "too short"},
		{Start: 1, End: 1.4, Text: "exactly the fade sum"},
		{Start: 2, End: 5, Text: "long"},
		{Start: 5, End: 5.39, Text: "just short"},
	}
	kept, dropped := Retain(segments, 0.2+0.2)
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	if len(kept) != 2 || kept[0].Text != "exactly the fade sum" || kept[1].Text != "long" {
		t.Fatalf("kept = %+v", kept)
	}

	all, none := Retain(segments, 0)
	if none != 0 || len(all) != len(segments) {
		t.Fatalf("zero threshold dropped %d", none)
	}
}
