package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryAppendAssignsStableIndices(t *testing.T) {
	h := &History{}

	i0 := h.Append(RoleUser, "what is recursion?", "")
	i1 := h.Append(RoleAssistant, "recursion is ...", "explain")

	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "explain", h.Entries[1].Node)
}

func TestHistorySliceClampsBounds(t *testing.T) {
	h := &History{}
	h.Append(RoleUser, "a", "")
	h.Append(RoleAssistant, "b", "")
	h.Append(RoleUser, "c", "")

	assert.Len(t, h.Slice(-5, 99), 3)
	assert.Empty(t, h.Slice(2, 1))

	mid := h.Slice(1, 2)
	assert.Len(t, mid, 1)
	assert.Equal(t, "b", mid[0].Text)

	// Mutating the returned slice must not touch the arena.
	mid[0].Text = "mutated"
	assert.Equal(t, "b", h.Entries[1].Text)
}

func TestHistoryTail(t *testing.T) {
	h := &History{}
	for _, s := range []string{"a", "b", "c", "d"} {
		h.Append(RoleUser, s, "")
	}

	tail := h.Tail(2)
	assert.Len(t, tail, 2)
	assert.Equal(t, "c", tail[0].Text)
	assert.Equal(t, "d", tail[1].Text)

	assert.Len(t, h.Tail(100), 4)
}

func TestHistoryMessagesFiltersRoles(t *testing.T) {
	h := &History{}
	h.Append(RoleSystem, "instructions", "")
	h.Append(RoleUser, "question", "")
	h.Append(RoleAssistant, "answer", "explain")

	msgs := h.Messages(0, h.Len())
	assert.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestTutorStateCloneIsolatesMutations(t *testing.T) {
	st := NewTutorState()
	st.Topic = "graphs"
	st.ContentRefs = []ContentRef{{ID: "c1"}}
	st.Artifacts["plan"] = "v1"

	c := st.Clone()
	c.Topic = "trees"
	c.ContentRefs[0].ID = "c2"
	c.Artifacts["plan"] = "v2"

	assert.Equal(t, "graphs", st.Topic)
	assert.Equal(t, "c1", st.ContentRefs[0].ID)
	assert.Equal(t, "v1", st.Artifacts["plan"])

	// The history arena is shared: appends through the clone are visible
	// from the original.
	c.History.Append(RoleUser, "shared", "")
	assert.Equal(t, 1, st.History.Len())
}

func TestAdaptDifficulty(t *testing.T) {
	st := NewTutorState()
	assert.Equal(t, DifficultyIntermediate, st.Difficulty)

	st.AdaptDifficulty(0.95)
	assert.Equal(t, DifficultyAdvanced, st.Difficulty)

	st.AdaptDifficulty(0.95)
	assert.Equal(t, DifficultyAdvanced, st.Difficulty)

	st.AdaptDifficulty(0.3)
	assert.Equal(t, DifficultyIntermediate, st.Difficulty)

	st.AdaptDifficulty(0.3)
	assert.Equal(t, DifficultyBeginner, st.Difficulty)

	// Mid-range scores leave the level unchanged.
	st.AdaptDifficulty(0.7)
	assert.Equal(t, DifficultyBeginner, st.Difficulty)
}
