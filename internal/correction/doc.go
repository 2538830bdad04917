// Package correction reconciles a human-edited transcript with the timing of
// an existing caption store.
//
// The edited transcript is plain text with one utterance per line. When it has
// as many lines as the store has segments, texts are replaced pairwise. When it
// has fewer, the segments are partitioned into contiguous groups, one per line,
// and each group collapses into a single segment spanning the group. Two
// grouping policies exist: "align" matches groups to lines by normalized
// character count, "even" splits by index alone. A transcript with more lines
// than segments cannot be merged and leaves the store untouched.
package correction
