package tutor

import (
	"github.com/studyarch/tutorflow/content"
	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/graph"
)

// GraphOptions configures graph assembly.
type GraphOptions struct {
	// RetrieveLimit caps how many content references the retrieve node
	// attaches to the state.
	RetrieveLimit int
}

// BuildGraph assembles the tutoring graph:
//
//	intent -> retrieve -> feedback   (ungraded practice outstanding)
//	                   -> practice   (intent: practice)
//	                   -> plan       (intent: plan)
//	                   -> explain    (default)
//
// All leaf nodes stop the run. The graph is validated at build time, so a
// routing mistake is a construction error, not a runtime surprise.
func BuildGraph(store content.Store, optFns ...func(o *GraphOptions)) (*graph.Graph, error) {
	opts := GraphOptions{RetrieveLimit: 3}
	for _, fn := range optFns {
		fn(&opts)
	}

	return graph.NewBuilder().
		AddNode(IntentNode()).
		AddNode(RetrieveNode(store, opts.RetrieveLimit)).
		AddNode(ExplainNode(store)).
		AddNode(PracticeNode()).
		AddNode(PlanNode()).
		AddNode(FeedbackNode()).
		SetEntry(NodeIntent).
		SetDefault(NodeIntent, NodeRetrieve).
		AddEdge(NodeRetrieve, awaitingAnswer, NodeFeedback).
		AddEdge(NodeRetrieve, intentIs(core.IntentPractice), NodePractice).
		AddEdge(NodeRetrieve, intentIs(core.IntentPlan), NodePlan).
		SetDefault(NodeRetrieve, NodeExplain).
		Build()
}

func intentIs(intent core.Intent) graph.Predicate {
	return func(s *core.TutorState) bool { return s.Intent == intent }
}

func awaitingAnswer(s *core.TutorState) bool {
	return s.Artifacts[artifactAwaitingAnswer] == "true"
}
