package whisperx

// Config captures runtime settings for a transcription run.
type Config struct {
	// Engine selects the recognizer; empty means EngineWhisperX.
	Engine string
	// Model is the registry name (e.g., "turbo"), used for logging and as the
	// model argument when ModelPath is empty.
	Model string
	// ModelPath is the acquired artifact: a checkpoint file for EngineWhisper
	// or a model directory for EngineWhisperX.
	ModelPath string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
}

// WhisperX configuration constants.
const (
	DefaultModel      = "turbo"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Recognizers.
const (
	EngineWhisper  = "whisper"
	EngineWhisperX = "whisperx"
)

// UVXCommand launches the recognizer in an ephemeral environment.
const UVXCommand = "uvx"

// WhisperPackage provides the whisper entrypoint for EngineWhisper.
const WhisperPackage = "openai-whisper"
