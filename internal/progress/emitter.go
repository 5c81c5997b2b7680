// Package progress implements the line-prefixed JSON progress protocol the
// bridge emits on stderr during model downloads.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// EventType classifies progress protocol messages.
type EventType string

const (
	EventTypeProgress EventType = "progress"
	EventTypeComplete EventType = "complete"
)

// Event is one protocol message. Stage is omitted on completion events.
type Event struct {
	Type       EventType `json:"type"`
	Model      string    `json:"model"`
	Percentage int       `json:"percentage"`
	Stage      string    `json:"stage,omitempty"`
}

// Emitter serializes events as PROGRESS:<json> lines on a single writer.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter creates an emitter bound to the given writer, stderr in
// production.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Stage emits an intermediate progress event.
func (e *Emitter) Stage(model string, percentage int, stage string) {
	e.emit(Event{
		Type:       EventTypeProgress,
		Model:      model,
		Percentage: percentage,
		Stage:      stage,
	})
}

// Complete emits the terminal 100% event for a model download.
func (e *Emitter) Complete(model string) {
	e.emit(Event{
		Type:       EventTypeComplete,
		Model:      model,
		Percentage: 100,
	})
}

// emit writes one protocol line. Write failures are swallowed: progress is a
// best-effort side channel and must not fail the operation it reports on.
func (e *Emitter) emit(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = fmt.Fprintf(e.w, "PROGRESS:%s\n", data)
}
