// Package graph defines the directed execution graph the engine walks: nodes
// that transform tutoring state, and a routing table that picks each node's
// successor from state predicates. Routing is resolved entirely from the
// table; nodes only report whether the walk continues, never where it goes.
package graph

import (
	"context"

	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/dispatch"
)

// Decision is the closed set of outcomes a node can report.
type Decision string

const (
	// Continue hands control to the routing table for successor selection.
	Continue Decision = "continue"
	// Stop ends the run successfully after this node.
	Stop Decision = "stop"
)

// EmitFunc delivers one streaming fragment to the run's subscribers.
type EmitFunc func(text string)

// Node is a unit of tutoring work. Execute receives a private clone of the
// state, may call providers through the dispatcher, and streams visible
// output through emit. It returns the (possibly replaced) state and a
// Decision; a non-nil error aborts the run.
type Node interface {
	ID() string
	Execute(ctx context.Context, state *core.TutorState, d *dispatch.Dispatcher, emit EmitFunc) (*core.TutorState, Decision, error)
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc struct {
	NodeID string
	Fn     func(ctx context.Context, state *core.TutorState, d *dispatch.Dispatcher, emit EmitFunc) (*core.TutorState, Decision, error)
}

// ID implements Node.
func (n *NodeFunc) ID() string { return n.NodeID }

// Execute implements Node.
func (n *NodeFunc) Execute(ctx context.Context, state *core.TutorState, d *dispatch.Dispatcher, emit EmitFunc) (*core.TutorState, Decision, error) {
	return n.Fn(ctx, state, d, emit)
}
