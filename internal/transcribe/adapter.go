// Package transcribe turns one audio file into a transcript through a cached
// model handle.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"whisper-bridge/internal/domain"
	"whisper-bridge/internal/engine"
)

// modelProvider is the slice of the model cache the adapter needs.
type modelProvider interface {
	GetOrLoad(ctx context.Context, model string) (engine.Model, error)
}

// Request carries one transcription invocation.
type Request struct {
	AudioPath     string
	Model         string
	Language      string
	InitialPrompt string
}

// Adapter validates inputs, selects decoding parameters, and assembles the
// transcript text.
type Adapter struct {
	cache modelProvider
	log   zerolog.Logger

	stat func(string) (os.FileInfo, error)
}

// NewAdapter builds the production adapter on top of the model cache.
func NewAdapter(cache modelProvider, log zerolog.Logger) *Adapter {
	return &Adapter{
		cache: cache,
		log:   log.With().Str("component", "transcribe").Logger(),
		stat:  os.Stat,
	}
}

// Transcribe runs one request end to end. All failures surface as a result
// record; no error crosses this boundary.
func (a *Adapter) Transcribe(ctx context.Context, req Request) domain.TranscriptionResult {
	if _, err := a.stat(req.AudioPath); err != nil {
		return domain.TranscriptionResult{
			Error: fmt.Sprintf("Audio file not found: %s", req.AudioPath),
		}
	}

	model, err := a.cache.GetOrLoad(ctx, req.Model)
	if err != nil {
		return domain.TranscriptionResult{
			Error: fmt.Sprintf("Failed to load Whisper model: %v", err),
		}
	}

	result, err := model.Transcribe(ctx, req.AudioPath, engine.TranscribeOptions{
		BeamSize:      beamSizeFor(req.Model),
		Language:      req.Language,
		InitialPrompt: req.InitialPrompt,
	})
	if err != nil {
		return domain.TranscriptionResult{Error: err.Error()}
	}

	a.log.Debug().Str("model", req.Model).Str("language", result.Language).
		Int("segments", len(result.Segments)).Msg("transcription complete")

	return domain.TranscriptionResult{
		Text:     joinSegments(result.Segments),
		Language: result.Language,
		Success:  true,
	}
}

// beamSizeFor selects beam search width by model tier. Small models gain
// little from wide search and should answer fast; large models justify the
// extra cost.
func beamSizeFor(model string) int {
	switch model {
	case "tiny", "base":
		return 1
	case "small":
		return 3
	default: // medium, large, turbo and everything else
		return 5
	}
}

// joinSegments concatenates segment texts with a space separator and trims
// the ends. Segment texts keep whatever leading spacing the engine produced.
func joinSegments(segments []engine.Segment) string {
	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}
