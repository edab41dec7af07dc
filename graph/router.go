package graph

import "github.com/studyarch/tutorflow/core"

// Predicate inspects state to decide whether an edge fires. Predicates must
// be pure: routing is replayed from checkpointed state after a restart.
type Predicate func(state *core.TutorState) bool

// Edge is one conditional transition out of a node. Edges are evaluated in
// registration order; the first matching predicate wins.
type Edge struct {
	When Predicate
	To   string
}

// routes holds the outgoing edges of one node plus its mandatory default.
type routes struct {
	edges      []Edge
	defaultTo  string
	hasDefault bool
}

// Route returns the successor of nodeID for the given state. The default
// edge guarantees totality, so Route never fails on a validated graph.
func (g *Graph) Route(nodeID string, state *core.TutorState) string {
	r := g.routing[nodeID]
	for _, e := range r.edges {
		if e.When(state) {
			return e.To
		}
	}
	return r.defaultTo
}
