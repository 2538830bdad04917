// Package subtitles derives a SubRip document from a caption store.
//
// Segments too short to show both overlay fades are dropped by Retain, which
// the overlay compositor shares so the subtitle file and the burned-in
// captions always carry the same cues.
package subtitles
