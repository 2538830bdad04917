// Package language normalizes language identifiers.
//
// Configuration accepts English names ("Chinese"), ISO 639 codes, and BCP 47
// tags. The transcription adapter needs ISO 639-1 codes and the media probe
// reports ISO 639-2 stream tags, so conversions between the forms live here.
package language
