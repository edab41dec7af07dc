// Package stream fans run events out to subscribers. The Broadcaster is the
// delivery-side guard of the one-live-run rule: events carry the generation
// that produced them, and only events from a session's current generation
// reach subscribers. When a run is superseded, subscribers of the old
// generation get a synthesized cancelled terminal frame instead of silence.
package stream

import (
	"sync"

	"github.com/studyarch/tutorflow/core"
)

// subscriber is one event consumer pinned to a generation. nextSeq is the
// sequence number a synthesized terminal frame must carry to keep the
// subscriber's view strictly increasing: one past the last delivered event.
type subscriber struct {
	id         uint64
	generation uint64
	nextSeq    uint64
	ch         chan core.StreamEvent
}

// channel holds the per-session fanout state.
type channel struct {
	generation  uint64
	subscribers map[uint64]*subscriber
}

// Broadcaster routes StreamEvents to per-session subscribers with
// generation-based stale filtering. Thread-safe; Publish never blocks on a
// slow subscriber (the subscriber is dropped instead, so the engine cannot
// stall behind a dead client).
type Broadcaster struct {
	mu       sync.Mutex
	sessions map[string]*channel
	nextID   uint64
	bufSize  int
}

// Options configures the Broadcaster.
type Options struct {
	// BufferSize is the per-subscriber channel capacity.
	BufferSize int
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(optFns ...func(o *Options)) *Broadcaster {
	opts := Options{BufferSize: 256}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Broadcaster{sessions: make(map[string]*channel), bufSize: opts.BufferSize}
}

func (b *Broadcaster) session(sessionID string) *channel {
	ch, ok := b.sessions[sessionID]
	if !ok {
		ch = &channel{subscribers: make(map[uint64]*subscriber)}
		b.sessions[sessionID] = ch
	}
	return ch
}

// Supersede promotes newGen to the session's current generation. Every
// subscriber pinned to an older generation receives a synthesized cancelled
// terminal frame and is closed; their run will keep executing briefly but
// none of its events pass the filter anymore.
func (b *Broadcaster) Supersede(sessionID string, newGen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := b.session(sessionID)
	if newGen <= ch.generation {
		return
	}
	for id, sub := range ch.subscribers {
		if sub.generation >= newGen {
			continue
		}
		terminal := core.NewDoneEvent(sub.generation, sub.nextSeq, core.RunCancelled)
		select {
		case sub.ch <- terminal:
		default:
		}
		close(sub.ch)
		delete(ch.subscribers, id)
	}
	ch.generation = newGen
}

// Subscribe registers a consumer for one generation of a session. The
// returned channel closes after the terminal frame (or immediately with a
// synthesized cancelled frame if gen is already stale). The unsubscribe
// function is idempotent.
func (b *Broadcaster) Subscribe(sessionID string, gen uint64) (<-chan core.StreamEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := b.session(sessionID)
	out := make(chan core.StreamEvent, b.bufSize)

	if gen < ch.generation {
		out <- core.NewDoneEvent(gen, 0, core.RunCancelled)
		close(out)
		return out, func() {}
	}

	id := b.nextID
	b.nextID++
	ch.subscribers[id] = &subscriber{id: id, generation: gen, ch: out}

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		sess, ok := b.sessions[sessionID]
		if !ok {
			return
		}
		if sub, ok := sess.subscribers[id]; ok {
			delete(sess.subscribers, id)
			close(sub.ch)
		}
	}
	return out, unsub
}

// Publish delivers an event to subscribers of its session. Events from a
// generation other than the session's current one are dropped: a superseded
// run can keep emitting, but nothing it says is visible. Terminal events
// close their subscribers after delivery.
func (b *Broadcaster) Publish(sessionID string, ev core.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.sessions[sessionID]
	if !ok || ev.Generation != ch.generation {
		return
	}

	for id, sub := range ch.subscribers {
		if sub.generation != ev.Generation {
			continue
		}
		select {
		case sub.ch <- ev:
			sub.nextSeq = ev.Seq + 1
		default:
			// Slow subscriber: drop to keep the engine from blocking.
			close(sub.ch)
			delete(ch.subscribers, id)
			continue
		}
		if ev.Terminal() {
			close(sub.ch)
			delete(ch.subscribers, id)
		}
	}
}

// Forget drops all bookkeeping for a session, closing any remaining
// subscribers without a terminal frame. Intended for session deletion.
func (b *Broadcaster) Forget(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.sessions[sessionID]
	if !ok {
		return
	}
	for id, sub := range ch.subscribers {
		close(sub.ch)
		delete(ch.subscribers, id)
	}
	delete(b.sessions, sessionID)
}
