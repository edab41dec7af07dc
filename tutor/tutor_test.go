package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarch/tutorflow/content"
	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/dispatch"
	"github.com/studyarch/tutorflow/graph"
	"github.com/studyarch/tutorflow/provider"
)

func seededContent(t *testing.T) content.Store {
	t.Helper()
	s := content.NewInMemoryStore()
	_, err := s.Add(context.Background(), content.Item{
		ID:    "rec-1",
		Title: "Recursion basics",
		Topic: "recursion",
		Body:  "every recursive function needs a base case",
	})
	require.NoError(t, err)
	return s
}

func stateWithMessage(text string) *core.TutorState {
	st := core.NewTutorState()
	st.History.Append(core.RoleUser, text, "")
	return st
}

func collect(emitted *[]string) graph.EmitFunc {
	return func(text string) { *emitted = append(*emitted, text) }
}

func TestIntentNodeClassifies(t *testing.T) {
	local := provider.NewLocal("local")
	local.AddResponse("teach me recursion", "explain")
	d := dispatch.New([]provider.Client{local})

	st := stateWithMessage("teach me recursion")
	next, decision, err := IntentNode().Execute(context.Background(), st, d, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.Continue, decision)
	assert.Equal(t, core.IntentExplain, next.Intent)
	assert.Equal(t, "teach me recursion", next.Topic)
}

func TestIntentNodeUnknownFallsBackToGeneral(t *testing.T) {
	local := provider.NewLocal("local")
	local.AddResponse("hello", "I think the student wants ...")
	d := dispatch.New([]provider.Client{local})

	st := stateWithMessage("hello")
	next, _, err := IntentNode().Execute(context.Background(), st, d, nil)
	require.NoError(t, err)
	assert.Equal(t, core.IntentGeneral, next.Intent)
}

func TestRetrieveNodeAttachesRefs(t *testing.T) {
	store := seededContent(t)

	st := stateWithMessage("teach me recursion")
	st.Topic = "recursion"
	next, decision, err := RetrieveNode(store, 3).Execute(context.Background(), st, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.Continue, decision)
	require.NotEmpty(t, next.ContentRefs)
	assert.Equal(t, "rec-1", next.ContentRefs[0].ID)
}

func TestExplainNodeStreamsAndRecordsHistory(t *testing.T) {
	local := provider.NewLocal("local")
	local.AddResponse("teach me recursion", "recursion needs a base case")
	d := dispatch.New([]provider.Client{local})

	st := stateWithMessage("teach me recursion")
	var emitted []string
	next, decision, err := ExplainNode(seededContent(t)).Execute(context.Background(), st, d, collect(&emitted))
	require.NoError(t, err)
	assert.Equal(t, graph.Stop, decision)
	assert.NotEmpty(t, emitted)

	var full string
	for _, f := range emitted {
		full += f
	}
	assert.Equal(t, "recursion needs a base case", full)

	last := next.History.Tail(1)
	require.Len(t, last, 1)
	assert.Equal(t, core.RoleAssistant, last[0].Role)
	assert.Equal(t, NodeExplain, last[0].Node)
	assert.Equal(t, "recursion needs a base case", last[0].Text)
}

func TestPracticeNodeMarksAwaitingAnswer(t *testing.T) {
	local := provider.NewLocal("local")
	local.AddResponse("quiz me on sorting", "1. ...\n2. ...\n3. ...")
	d := dispatch.New([]provider.Client{local})

	st := stateWithMessage("quiz me on sorting")
	var emitted []string
	next, decision, err := PracticeNode().Execute(context.Background(), st, d, collect(&emitted))
	require.NoError(t, err)
	assert.Equal(t, graph.Stop, decision)
	assert.Len(t, emitted, 1)
	assert.Equal(t, "true", next.Artifacts[artifactAwaitingAnswer])
	assert.NotEmpty(t, next.Artifacts["practice"])
}

func TestFeedbackNodeGradesAndAdaptsDifficulty(t *testing.T) {
	local := provider.NewLocal("local")
	local.AddResponse(
		"Questions:\n1. what is a base case?\n\nStudent answer:\nthe stopping condition",
		"0.95\nCorrect, well done.",
	)
	d := dispatch.New([]provider.Client{local})

	st := stateWithMessage("the stopping condition")
	st.Topic = "recursion"
	st.Artifacts["practice"] = "1. what is a base case?"
	st.Artifacts[artifactAwaitingAnswer] = "true"

	var emitted []string
	next, decision, err := FeedbackNode().Execute(context.Background(), st, d, collect(&emitted))
	require.NoError(t, err)
	assert.Equal(t, graph.Stop, decision)
	assert.Equal(t, core.DifficultyAdvanced, next.Difficulty)
	assert.NotContains(t, next.Artifacts, artifactAwaitingAnswer)
	assert.Contains(t, next.Completed, "recursion")
	require.Len(t, emitted, 1)
	assert.Equal(t, "Correct, well done.", emitted[0])
}

func TestParseScore(t *testing.T) {
	score, rest, ok := parseScore("0.8\ngood answer")
	assert.True(t, ok)
	assert.Equal(t, 0.8, score)
	assert.Equal(t, "good answer", rest)

	_, _, ok = parseScore("no score here")
	assert.False(t, ok)

	_, _, ok = parseScore("1.5\nout of range")
	assert.False(t, ok)
}

func TestBuildGraphRouting(t *testing.T) {
	g, err := BuildGraph(seededContent(t))
	require.NoError(t, err)
	assert.Equal(t, NodeIntent, g.Entry())

	st := core.NewTutorState()
	st.Intent = core.IntentPractice
	assert.Equal(t, NodePractice, g.Route(NodeRetrieve, st))

	st.Intent = core.IntentPlan
	assert.Equal(t, NodePlan, g.Route(NodeRetrieve, st))

	st.Intent = core.IntentExplain
	assert.Equal(t, NodeExplain, g.Route(NodeRetrieve, st))

	// Outstanding practice takes precedence over intent.
	st.Artifacts[artifactAwaitingAnswer] = "true"
	assert.Equal(t, NodeFeedback, g.Route(NodeRetrieve, st))
}
