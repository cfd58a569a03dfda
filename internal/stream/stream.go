// Package stream implements the progress protocol for long-running
// recommendation requests: a strictly ordered sequence of stage events
// followed by exactly one terminal result or error event.
package stream

import (
	"errors"
	"sync"

	"github.com/dosewise/dosewise/internal/logger"
)

// Stage names one step of the recommendation pipeline. The client-side
// "idle" state is never emitted by the server.
type Stage string

const (
	StageGatheringData   Stage = "gathering-data"
	StageBuildingPrompt  Stage = "building-prompt"
	StageWaitingForModel Stage = "waiting-for-model"
	StageParsingResponse Stage = "parsing-response"
	StageComplete        Stage = "complete"
)

// stageOrder gives each working stage its position in the pipeline.
// StageComplete is reached through Result, never through Progress.
var stageOrder = map[Stage]int{
	StageGatheringData:   1,
	StageBuildingPrompt:  2,
	StageWaitingForModel: 3,
	StageParsingResponse: 4,
}

// Event is one discrete JSON message on the progress stream.
type Event struct {
	Type    string `json:"type"` // "progress", "error" or "result"
	Step    Stage  `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventWriter delivers events to the caller. The HTTP layer implements it
// over SSE; tests implement it over a slice.
type EventWriter interface {
	WriteEvent(event Event) error
}

var (
	// ErrClosed is returned for any emission after the terminal event.
	ErrClosed = errors.New("stream already terminated")
	// ErrStageOrder is returned when a stage would move backward or skip
	// ahead.
	ErrStageOrder = errors.New("stage emitted out of order")
)

// Stream enforces the progress protocol over an EventWriter: stages advance
// strictly forward one at a time, exactly one terminal event is written, and
// nothing is written after it. A transport write failure (client gone) stops
// further emission without failing the pipeline.
type Stream struct {
	mu           sync.Mutex
	w            EventWriter
	current      int
	terminated   bool
	disconnected bool
}

// New creates a stream over the given writer.
func New(w EventWriter) *Stream {
	return &Stream{w: w}
}

// Progress emits the next stage event. The stage must be exactly one step
// ahead of the last emitted stage.
func (s *Stream) Progress(stage Stage, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return ErrClosed
	}
	ord, ok := stageOrder[stage]
	if !ok || ord != s.current+1 {
		return ErrStageOrder
	}
	s.current = ord

	s.write(Event{Type: "progress", Step: stage, Message: message})
	return nil
}

// Result emits the terminal success event and seals the stream.
func (s *Stream) Result(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return ErrClosed
	}
	s.terminated = true
	s.current = len(stageOrder) + 1

	s.write(Event{Type: "result", Data: data})
	return nil
}

// Fail emits the terminal error event and seals the stream. Reachable from
// any stage.
func (s *Stream) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return ErrClosed
	}
	s.terminated = true

	s.write(Event{Type: "error", Error: message})
	return nil
}

// Terminated reports whether a terminal event has been emitted.
func (s *Stream) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// write delivers an event unless the transport already failed. Transport
// failures only stop emission: the pipeline keeps running and persists its
// result regardless of whether anyone is still listening.
func (s *Stream) write(event Event) {
	if s.disconnected {
		return
	}
	if err := s.w.WriteEvent(event); err != nil {
		s.disconnected = true
		logger.Warn("Progress stream write failed, caller likely disconnected", "error", err)
	}
}
