package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/dispatch"
)

func passthrough(id string) Node {
	return &NodeFunc{
		NodeID: id,
		Fn: func(_ context.Context, s *core.TutorState, _ *dispatch.Dispatcher, _ EmitFunc) (*core.TutorState, Decision, error) {
			return s, Continue, nil
		},
	}
}

func TestBuildValidGraph(t *testing.T) {
	g, err := NewBuilder().
		AddNode(passthrough("intent")).
		AddNode(passthrough("explain")).
		AddNode(passthrough("practice")).
		SetEntry("intent").
		AddEdge("intent", func(s *core.TutorState) bool { return s.Intent == core.IntentPractice }, "practice").
		SetDefault("intent", "explain").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "intent", g.Entry())
	assert.NotNil(t, g.Node("explain"))
	assert.Nil(t, g.Node("missing"))
}

func TestBuildRejectsMissingEntry(t *testing.T) {
	_, err := NewBuilder().AddNode(passthrough("a")).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry node")
}

func TestBuildRejectsUnknownEdgeTarget(t *testing.T) {
	_, err := NewBuilder().
		AddNode(passthrough("a")).
		SetEntry("a").
		AddEdge("a", func(*core.TutorState) bool { return true }, "ghost").
		SetDefault("a", "a").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuildRejectsEdgesWithoutDefault(t *testing.T) {
	_, err := NewBuilder().
		AddNode(passthrough("a")).
		AddNode(passthrough("b")).
		SetEntry("a").
		AddEdge("a", func(*core.TutorState) bool { return true }, "b").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default")
}

func TestBuildRejectsDuplicateNode(t *testing.T) {
	_, err := NewBuilder().
		AddNode(passthrough("a")).
		AddNode(passthrough("a")).
		SetEntry("a").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRouteFirstMatchWins(t *testing.T) {
	g, err := NewBuilder().
		AddNode(passthrough("intent")).
		AddNode(passthrough("explain")).
		AddNode(passthrough("practice")).
		AddNode(passthrough("plan")).
		SetEntry("intent").
		AddEdge("intent", func(s *core.TutorState) bool { return s.Intent == core.IntentPractice }, "practice").
		AddEdge("intent", func(s *core.TutorState) bool { return s.Intent == core.IntentPlan }, "plan").
		SetDefault("intent", "explain").
		Build()
	require.NoError(t, err)

	st := core.NewTutorState()
	assert.Equal(t, "explain", g.Route("intent", st))

	st.Intent = core.IntentPractice
	assert.Equal(t, "practice", g.Route("intent", st))

	st.Intent = core.IntentPlan
	assert.Equal(t, "plan", g.Route("intent", st))
}
