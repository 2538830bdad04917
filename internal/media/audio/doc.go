// Package audio picks the audio stream to transcribe and extracts it with
// ffmpeg as mono 16 kHz PCM, the input format the transcription engine expects.
package audio
