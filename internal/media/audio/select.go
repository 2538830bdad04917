package audio

import (
	"sort"

	"captioner/internal/language"
	"captioner/internal/media/ffprobe"
)

// Select returns the audio stream to transcribe. Streams tagged with the
// hinted language win, then the default-disposition stream, then the stream
// with the most channels. Ties keep container order.
func Select(streams []ffprobe.Stream, hint string) (ffprobe.Stream, bool) {
	var audio []ffprobe.Stream
	for _, stream := range streams {
		if stream.CodecType == "audio" {
			audio = append(audio, stream)
		}
	}
	if len(audio) == 0 {
		return ffprobe.Stream{}, false
	}

	want := language.ToISO2(hint)
	score := func(s ffprobe.Stream) int {
		points := 0
		if want != "" && language.ToISO2(language.ExtractFromTags(s.Tags)) == want {
			points += 4
		}
		if s.IsDefault() {
			points += 2
		}
		return points
	}
	sort.SliceStable(audio, func(i, j int) bool {
		si, sj := score(audio[i]), score(audio[j])
		if si != sj {
			return si > sj
		}
		return audio[i].Channels > audio[j].Channels
	})
	return audio[0], true
}
