// Package whisperx runs speech recognition through uvx and converts its JSON
// output into caption segments.
//
// Two recognizers are supported. OpenAI checkpoints (.pt files) run under the
// openai-whisper CLI, which loads the acquired file directly. CTranslate2
// snapshot directories run under WhisperX, whose faster-whisper backend
// loads a model directory passed as --model. Both write the same
// segments JSON.
//
// The engine runs as a subprocess; Service.WithCommandRunner swaps the
// subprocess for a fake in tests.
package whisperx
