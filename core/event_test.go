package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEventTerminal(t *testing.T) {
	assert.False(t, NewFragmentEvent(1, 0, "explain", "hi").Terminal())
	assert.True(t, NewErrorEvent(1, 1, "boom").Terminal())
	assert.True(t, NewDoneEvent(1, 2, RunCompleted).Terminal())
}

func TestStreamEventWireFormat(t *testing.T) {
	ev := NewDoneEvent(3, 7, RunCancelled)

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))

	assert.Equal(t, "done", frame["type"])
	assert.Equal(t, "cancelled", frame["status"])
	assert.Equal(t, float64(3), frame["generation"])
	assert.Equal(t, float64(7), frame["seq"])
	// Fragments omit status; done frames omit content.
	_, hasContent := frame["content"]
	assert.False(t, hasContent)
}

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunPending.Terminal())
	assert.False(t, RunRunning.Terminal())
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunErrored.Terminal())
	assert.True(t, RunCancelled.Terminal())
}
