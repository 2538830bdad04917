// Package captions persists timestamped caption segments for one source video.
//
// The on-disk format is plain UTF-8 text with one segment per line:
//
//	<start>-<end>: <text>
//
// where start and end are seconds with two decimals. Reads are lossy by
// policy: lines that do not match the format are skipped and counted so
// callers can surface the loss.
package captions
