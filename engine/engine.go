// Package engine executes one tutoring run: a walk over the validated graph
// that streams fragments, checkpoints state after every node, and always ends
// with exactly one terminal frame.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/dispatch"
	"github.com/studyarch/tutorflow/graph"
	"github.com/studyarch/tutorflow/logging"
	"github.com/studyarch/tutorflow/session"
)

// Publisher receives run events for fanout. Satisfied by stream.Broadcaster.
type Publisher interface {
	Publish(sessionID string, ev core.StreamEvent)
}

// Run is the outcome of one engine execution.
type Run struct {
	SessionID  string         `json:"session_id"`
	Generation uint64         `json:"generation"`
	Status     core.RunStatus `json:"status"`
	NodeLog    []string       `json:"node_log"`
	Fragments  int            `json:"fragments"`
	Err        error          `json:"-"`
}

// Options configures the Engine.
type Options struct {
	// MaxSteps bounds the walk so a routing cycle cannot spin forever.
	MaxSteps int
	Logger   *logging.TutorLogger
	// IsCurrent reports whether gen is still the session's live generation.
	// A superseded run stops checkpointing so its partial state never
	// clobbers the newer run's writes. Nil means always current.
	IsCurrent func(sessionID string, gen uint64) bool
}

// Engine drives graph execution for runs admitted by the session controller.
// It holds no per-run state; one Engine serves all sessions.
type Engine struct {
	graph      *graph.Graph
	dispatcher *dispatch.Dispatcher
	store      session.Store
	publisher  Publisher
	opts       Options
}

// New constructs an Engine.
func New(g *graph.Graph, d *dispatch.Dispatcher, store session.Store, pub Publisher, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxSteps: 32,
		Logger:   logging.NewLogger(nil),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{graph: g, dispatcher: d, store: store, publisher: pub, opts: opts}
}

// Execute walks the graph for one admitted run. It publishes fragments as
// nodes emit them, tagged with the run's generation and a strictly
// increasing seq starting at 0, and finishes with exactly one terminal
// frame: done(completed), done(cancelled) or error. State and a checkpoint
// are persisted after every node so a restart resumes from durable data.
func (e *Engine) Execute(ctx context.Context, sessionID string, gen uint64, state *core.TutorState) *Run {
	log := e.opts.Logger.WithComponent("engine").WithSession(sessionID, gen)

	run := &Run{SessionID: sessionID, Generation: gen, Status: core.RunRunning}
	seq := uint64(0)

	emit := func(node string) graph.EmitFunc {
		return func(text string) {
			e.publisher.Publish(sessionID, core.NewFragmentEvent(gen, seq, node, text))
			seq++
			run.Fragments++
		}
	}

	finish := func(ev core.StreamEvent, status core.RunStatus) *Run {
		run.Status = status
		e.publisher.Publish(sessionID, ev)
		e.checkpoint(sessionID, gen, "", status, state, log)
		return run
	}

	nodeID := e.graph.Entry()
	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			log.Info("run cancelled before node %s", nodeID)
			return finish(core.NewDoneEvent(gen, seq, core.RunCancelled), core.RunCancelled)
		}
		if step >= e.opts.MaxSteps {
			err := fmt.Errorf("step budget exhausted after %d nodes", step)
			run.Err = err
			return finish(core.NewErrorEvent(gen, seq, err.Error()), core.RunErrored)
		}

		node := e.graph.Node(nodeID)
		if node == nil {
			err := fmt.Errorf("routing reached unknown node %q", nodeID)
			run.Err = err
			return finish(core.NewErrorEvent(gen, seq, err.Error()), core.RunErrored)
		}

		start := time.Now()
		before := run.Fragments
		next, decision, err := node.Execute(ctx, state.Clone(), e.dispatcher, emit(nodeID))
		log.LogNodeStep(nodeID, run.Fragments-before, time.Since(start), err)

		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return finish(core.NewDoneEvent(gen, seq, core.RunCancelled), core.RunCancelled)
			}
			wrapped := fmt.Errorf("node %s: %w", nodeID, err)
			run.Err = wrapped
			return finish(core.NewErrorEvent(gen, seq, wrapped.Error()), core.RunErrored)
		}

		state = next
		run.NodeLog = append(run.NodeLog, nodeID)
		e.checkpoint(sessionID, gen, nodeID, core.RunRunning, state, log)

		if decision == graph.Stop {
			return finish(core.NewDoneEvent(gen, seq, core.RunCompleted), core.RunCompleted)
		}
		nodeID = e.graph.Route(nodeID, state)
	}
}

// checkpoint persists state and progress; failures are logged, not fatal.
// A run that cannot checkpoint still streams correctly.
func (e *Engine) checkpoint(sessionID string, gen uint64, node string, status core.RunStatus, state *core.TutorState, log *logging.TutorLogger) {
	if e.opts.IsCurrent != nil && !e.opts.IsCurrent(sessionID, gen) {
		log.Debug("superseded run skips checkpoint at node %s", node)
		return
	}
	cp := session.Checkpoint{
		Generation: gen,
		Node:       node,
		Status:     status,
		UpdatedAt:  time.Now().UTC(),
	}
	// Detached context: checkpoints of a cancelled run must still land.
	cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.SaveCheckpoint(cctx, sessionID, cp, state); err != nil {
		log.Warn("checkpoint failed at node %s: %v", node, err)
	}
}
