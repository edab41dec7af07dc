package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunAssignsMonotonicGenerations(t *testing.T) {
	c := NewController()

	gen1, _, prev := c.StartRun(context.Background(), "s1")
	assert.Equal(t, uint64(1), gen1)
	assert.Nil(t, prev)

	gen2, _, prev := c.StartRun(context.Background(), "s1")
	assert.Equal(t, uint64(2), gen2)
	assert.NotNil(t, prev)

	// Generations are per session.
	genOther, _, _ := c.StartRun(context.Background(), "s2")
	assert.Equal(t, uint64(1), genOther)
}

func TestStartRunSupersedesPrevious(t *testing.T) {
	c := NewController()

	_, ctx1, _ := c.StartRun(context.Background(), "s1")
	_, ctx2, prevCancel := c.StartRun(context.Background(), "s1")

	require.NotNil(t, prevCancel)
	assert.NoError(t, ctx1.Err())

	prevCancel()
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())
}

func TestCancelStopsLiveRun(t *testing.T) {
	c := NewController()

	_, ctx, _ := c.StartRun(context.Background(), "s1")
	assert.True(t, c.Cancel("s1"))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.False(t, c.Cancel("never-started"))
}

func TestCancelGenerationTargetsOnlyLiveRun(t *testing.T) {
	c := NewController()

	gen1, ctx1, _ := c.StartRun(context.Background(), "s1")
	assert.False(t, c.CancelGeneration("s1", gen1+1))
	assert.NoError(t, ctx1.Err())

	gen2, ctx2, prevCancel := c.StartRun(context.Background(), "s1")
	prevCancel()

	// A caller holding the superseded generation cannot touch the new run.
	assert.False(t, c.CancelGeneration("s1", gen1))
	assert.NoError(t, ctx2.Err())

	assert.True(t, c.CancelGeneration("s1", gen2))
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)

	assert.False(t, c.CancelGeneration("never-started", 1))
}

func TestReleaseKeepsGenerationSequence(t *testing.T) {
	c := NewController()

	gen1, _, _ := c.StartRun(context.Background(), "s1")
	c.Release("s1", gen1)

	// Cancel after release is a no-op.
	assert.False(t, c.Cancel("s1"))

	gen2, _, _ := c.StartRun(context.Background(), "s1")
	assert.Equal(t, gen1+1, gen2)
}

func TestReleaseIgnoresStaleGeneration(t *testing.T) {
	c := NewController()

	gen1, _, _ := c.StartRun(context.Background(), "s1")
	gen2, ctx2, _ := c.StartRun(context.Background(), "s1")

	c.Release("s1", gen1)
	assert.NoError(t, ctx2.Err())
	assert.True(t, c.IsCurrent("s1", gen2))
	assert.False(t, c.IsCurrent("s1", gen1))
	assert.Equal(t, gen2, c.Current("s1"))
}
