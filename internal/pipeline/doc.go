// Package pipeline sequences the captioner stages for one video: model
// acquisition, transcription into the caption store, correction merge, and
// rendering of subtitles and the captioned video.
//
// Each stage runs through runStage, which tags the context with the stage
// name, logs start/completion/failure with a shared event vocabulary, and
// attaches an operator hint to failures. Stages never retry on their own;
// bounded retry lives in the model manager where the failure occurs.
package pipeline
