package main

import (
	"log"
	"sync"
)

// EventType enumerates every frame a council run can stream.
type EventType string

const (
	EventStage1Start    EventType = "stage1_start"
	EventStage1Complete EventType = "stage1_complete"
	EventStage2Start    EventType = "stage2_start"
	EventStage2Complete EventType = "stage2_complete"
	EventStage3Start    EventType = "stage3_start"
	EventStage3Complete EventType = "stage3_complete"
	EventTitleComplete  EventType = "title_complete"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// StreamEvent is one frame of run progress. Seq is run-relative, assigned by
// the emitter at emission time; frames are never mutated afterwards.
type StreamEvent struct {
	Type     EventType   `json:"type"`
	Data     interface{} `json:"data,omitempty"`
	Metadata interface{} `json:"metadata,omitempty"`
	Message  string      `json:"message,omitempty"` // error events only
	Seq      int         `json:"-"`
}

// EventSink receives already-ordered frames. Transport framing (SSE "data:"
// lines, a test buffer) lives behind this interface, outside the pipeline.
type EventSink interface {
	Send(event StreamEvent) error
}

// EventEmitter serializes one run's events: it assigns sequence numbers,
// keeps emission ordered under concurrent callers (title generation
// interleaves with the stage sequence), and goes silent after a terminal
// complete or error frame so a stream ends with exactly one of the two.
type EventEmitter struct {
	mu       sync.Mutex
	sink     EventSink
	seq      int
	terminal bool
}

// NewEventEmitter wraps a sink for a single run. Not reusable across runs.
func NewEventEmitter(sink EventSink) *EventEmitter {
	return &EventEmitter{sink: sink}
}

// Emit assigns the next sequence number and forwards the frame to the sink.
// Frames emitted after a terminal event are dropped. Sink failures are logged,
// not propagated; a dead consumer must not fail the run.
func (e *EventEmitter) Emit(event StreamEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminal {
		log.Printf("Dropping %s event after terminal event", event.Type)
		return
	}

	e.seq++
	event.Seq = e.seq
	if event.Type == EventComplete || event.Type == EventError {
		e.terminal = true
	}

	if err := e.sink.Send(event); err != nil {
		log.Printf("Failed to send %s event: %v", event.Type, err)
	}
}

// Error emits the terminal error frame for a fatal abort.
func (e *EventEmitter) Error(message string) {
	e.Emit(StreamEvent{Type: EventError, Message: message})
}

// BufferedSink collects frames in memory. Used by tests and anywhere the full
// event history is wanted after the fact.
type BufferedSink struct {
	mu     sync.Mutex
	events []StreamEvent
}

// NewBufferedSink returns an empty in-memory sink.
func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

// Send appends the frame to the buffer.
func (b *BufferedSink) Send(event StreamEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// Events returns a copy of everything sent so far, in emission order.
func (b *BufferedSink) Events() []StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]StreamEvent, len(b.events))
	copy(events, b.events)
	return events
}

// NullSink discards every frame. Used by the non-streaming message path,
// which only cares about the final run result.
type NullSink struct{}

// Send drops the frame.
func (NullSink) Send(StreamEvent) error { return nil }
