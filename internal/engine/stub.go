package engine

import (
	"context"
	"fmt"
	"sync"
)

// StubEngine produces deterministic Model handles without touching the real
// engine. It records every load and transcription call for assertions.
type StubEngine struct {
	mu sync.Mutex

	// LoadErr, when set, fails every Load call.
	LoadErr error
	// FailModels fails Load for specific identifiers.
	FailModels map[string]error
	// Segments is returned from every transcription; defaults apply when nil.
	Segments []Segment
	// Language is reported as the detected language.
	Language string

	loads      []string
	transcribe []TranscribeOptions
}

// NewStubEngine returns a stub with a single-segment default transcript.
func NewStubEngine() *StubEngine {
	return &StubEngine{Language: "en"}
}

// Load returns a stub handle or the configured failure.
func (e *StubEngine) Load(_ context.Context, model string, cfg LoadConfig) (Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.LoadErr != nil {
		return nil, e.LoadErr
	}
	if err, ok := e.FailModels[model]; ok {
		return nil, err
	}

	e.loads = append(e.loads, model)
	return &stubModel{engine: e, model: model, cfg: cfg}, nil
}

// Loads returns the identifiers passed to successful Load calls, in order.
func (e *StubEngine) Loads() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.loads...)
}

// TranscribeCalls returns the options captured from every transcription.
func (e *StubEngine) TranscribeCalls() []TranscribeOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TranscribeOptions(nil), e.transcribe...)
}

// stubModel records transcription options and yields canned segments.
type stubModel struct {
	engine *StubEngine
	model  string
	cfg    LoadConfig
}

// Transcribe captures opts and returns the configured canned result.
func (m *stubModel) Transcribe(_ context.Context, audioPath string, opts TranscribeOptions) (Result, error) {
	m.engine.mu.Lock()
	defer m.engine.mu.Unlock()

	m.engine.transcribe = append(m.engine.transcribe, opts)

	segments := m.engine.Segments
	if segments == nil {
		segments = []Segment{
			{Start: 0, End: 1, Text: fmt.Sprintf(" stub transcript for %s", audioPath)},
		}
	}
	return Result{
		Segments: append([]Segment(nil), segments...),
		Language: m.engine.Language,
	}, nil
}
