package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarch/tutorflow/core"
)

func TestInMemoryStoreLazyCreate(t *testing.T) {
	s := NewInMemoryStore()

	rec, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.ID)
	assert.NotNil(t, rec.State)
	assert.Equal(t, core.DifficultyIntermediate, rec.State.Difficulty)
}

func TestInMemoryStoreReturnsClones(t *testing.T) {
	s := NewInMemoryStore()

	rec, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	rec.State.Topic = "mutated"
	rec.State.History.Append(core.RoleUser, "hi", "")

	again, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, again.State.Topic)
	assert.Equal(t, 0, again.State.History.Len())
}

func TestInMemoryStoreSaveCheckpoint(t *testing.T) {
	s := NewInMemoryStore()

	st := core.NewTutorState()
	st.Topic = "sorting"
	st.History.Append(core.RoleUser, "teach me sorting", "")

	cp := Checkpoint{Generation: 2, Node: "explain", Status: core.RunRunning}
	require.NoError(t, s.SaveCheckpoint(context.Background(), "s1", cp, st))

	rec, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "sorting", rec.State.Topic)
	assert.Equal(t, 1, rec.State.History.Len())
	assert.Equal(t, uint64(2), rec.Checkpoint.Generation)
	assert.Equal(t, "explain", rec.Checkpoint.Node)

	// Later mutations of the caller's state do not leak into the store.
	st.History.Append(core.RoleAssistant, "sure", "explain")
	rec, err = s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.State.History.Len())
}

func TestInMemoryStoreDelete(t *testing.T) {
	s := NewInMemoryStore()

	rec, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	rec.State.Topic = "graphs"
	require.NoError(t, s.Save(context.Background(), rec))

	require.NoError(t, s.Delete(context.Background(), "s1"))

	fresh, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, fresh.State.Topic)
}
