// Package engine adapts the bundled speech-to-text engine behind narrow
// interfaces so the rest of the bridge never touches process execution
// directly.
package engine

import "context"

// LoadConfig fixes compute placement for a loaded model.
type LoadConfig struct {
	Device      string
	ComputeType string
}

// DefaultLoadConfig returns the bridge-wide compute configuration: CPU
// execution with reduced-precision arithmetic.
func DefaultLoadConfig() LoadConfig {
	return LoadConfig{
		Device:      "cpu",
		ComputeType: "int8",
	}
}

// TranscribeOptions tunes one transcription call. An empty Language means
// auto-detection.
type TranscribeOptions struct {
	BeamSize      int
	Language      string
	InitialPrompt string
}

// Segment is one decoded span of speech. Texts carry their own leading
// spacing as produced by the engine.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the full output of one transcription call.
type Result struct {
	Segments []Segment
	Language string
}

// Model is a loaded, ready-to-transcribe model handle.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (Result, error)
}

// Engine constructs Model handles for model identifiers.
type Engine interface {
	Load(ctx context.Context, model string, cfg LoadConfig) (Model, error)
}
