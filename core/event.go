package core

import "time"

// EventKind discriminates the wire-level frame types. The set is closed:
// every frame a client ever sees is a fragment, an error, or a done marker.
type EventKind string

const (
	// EventFragment carries a chunk of incrementally produced output.
	EventFragment EventKind = "fragment"
	// EventError carries a terminal error description. An error frame ends
	// the stream; no done frame follows it.
	EventError EventKind = "error"
	// EventDone marks successful or cancelled termination of a run.
	EventDone EventKind = "done"
)

// StreamEvent is the unit delivered to stream subscribers. Events are tagged
// with the generation of the run that produced them and a per-run sequence
// number that is strictly increasing with no gaps. Consumers must treat an
// event whose generation does not match the session's current generation as
// stale; the transport adapter filters these before delivery.
type StreamEvent struct {
	Generation uint64    `json:"generation"`
	Seq        uint64    `json:"seq"`
	Type       EventKind `json:"type"`
	Content    string    `json:"content,omitempty"`
	Status     RunStatus `json:"status,omitempty"`
	Node       string    `json:"node,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewFragmentEvent builds a fragment frame produced by the named node.
func NewFragmentEvent(generation, seq uint64, node, content string) StreamEvent {
	return StreamEvent{
		Generation: generation,
		Seq:        seq,
		Type:       EventFragment,
		Content:    content,
		Node:       node,
		Timestamp:  time.Now().UTC(),
	}
}

// NewErrorEvent builds the terminal error frame for a failed run.
func NewErrorEvent(generation, seq uint64, detail string) StreamEvent {
	return StreamEvent{
		Generation: generation,
		Seq:        seq,
		Type:       EventError,
		Content:    detail,
		Status:     RunErrored,
		Timestamp:  time.Now().UTC(),
	}
}

// NewDoneEvent builds the terminal done frame carrying the final run status
// (completed or cancelled).
func NewDoneEvent(generation, seq uint64, status RunStatus) StreamEvent {
	return StreamEvent{
		Generation: generation,
		Seq:        seq,
		Type:       EventDone,
		Status:     status,
		Timestamp:  time.Now().UTC(),
	}
}

// Terminal reports whether this frame ends its stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventError || e.Type == EventDone
}
