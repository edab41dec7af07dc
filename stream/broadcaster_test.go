package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarch/tutorflow/core"
)

func drain(ch <-chan core.StreamEvent) []core.StreamEvent {
	var out []core.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 1)

	events, unsub := b.Subscribe("s1", 1)
	defer unsub()

	b.Publish("s1", core.NewFragmentEvent(1, 0, "explain", "a"))
	b.Publish("s1", core.NewFragmentEvent(1, 1, "explain", "b"))
	b.Publish("s1", core.NewDoneEvent(1, 2, core.RunCompleted))

	got := drain(events)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
	assert.Equal(t, core.EventDone, got[2].Type)
	// Seq is gapless and increasing.
	for i, ev := range got {
		assert.Equal(t, uint64(i), ev.Seq)
	}
}

func TestPublishDropsStaleGeneration(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 2)

	events, unsub := b.Subscribe("s1", 2)
	defer unsub()

	// Events from the superseded run must not be visible.
	b.Publish("s1", core.NewFragmentEvent(1, 5, "explain", "stale"))
	b.Publish("s1", core.NewFragmentEvent(2, 0, "explain", "fresh"))
	b.Publish("s1", core.NewDoneEvent(2, 1, core.RunCompleted))

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, "fresh", got[0].Content)
}

func TestSupersedeSynthesizesCancelledTerminal(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 1)

	events, unsub := b.Subscribe("s1", 1)
	defer unsub()

	b.Publish("s1", core.NewFragmentEvent(1, 0, "explain", "partial"))
	b.Publish("s1", core.NewFragmentEvent(1, 1, "explain", "output"))
	b.Supersede("s1", 2)

	got := drain(events)
	require.Len(t, got, 3)
	assert.Equal(t, "partial", got[0].Content)
	assert.Equal(t, core.EventDone, got[2].Type)
	assert.Equal(t, core.RunCancelled, got[2].Status)
	assert.Equal(t, uint64(1), got[2].Generation)
	// The synthesized terminal continues the subscriber's sequence.
	assert.Equal(t, uint64(2), got[2].Seq)
}

func TestSubscribeToStaleGenerationClosesImmediately(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 3)

	events, _ := b.Subscribe("s1", 1)
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, core.EventDone, got[0].Type)
	assert.Equal(t, core.RunCancelled, got[0].Status)
	// Nothing was delivered before, so the stream starts and ends at 0.
	assert.Equal(t, uint64(0), got[0].Seq)
}

func TestTerminalEventClosesSubscribers(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 1)

	events, _ := b.Subscribe("s1", 1)
	b.Publish("s1", core.NewErrorEvent(1, 0, "provider exhausted"))

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, core.EventError, got[0].Type)
	assert.Equal(t, core.RunErrored, got[0].Status)

	// Nothing after a terminal frame: channel is closed, later publishes
	// find no subscribers.
	b.Publish("s1", core.NewFragmentEvent(1, 1, "explain", "late"))
}

func TestSlowSubscriberDropped(t *testing.T) {
	b := NewBroadcaster(func(o *Options) { o.BufferSize = 1 })
	b.Supersede("s1", 1)

	events, _ := b.Subscribe("s1", 1)

	b.Publish("s1", core.NewFragmentEvent(1, 0, "explain", "a"))
	// Buffer full: this publish drops the subscriber instead of blocking.
	b.Publish("s1", core.NewFragmentEvent(1, 1, "explain", "b"))

	got := drain(events)
	assert.Len(t, got, 1)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 1)

	_, unsub := b.Subscribe("s1", 1)
	unsub()
	unsub()
}

func TestForgetClosesSubscribers(t *testing.T) {
	b := NewBroadcaster()
	b.Supersede("s1", 1)

	events, _ := b.Subscribe("s1", 1)
	b.Forget("s1")
	assert.Empty(t, drain(events))
}
