// Package tutorflow provides a high-level façade over the execution engine
// and its services (sessions, content, streaming, dispatch & logging) for
// building an interactive tutoring backend. Most applications interact with
// this package by:
//  1. Creating a TutorFlow via New() (optionally overriding the default
//     in-memory services and the local provider chain)
//  2. Starting runs with StartRun, which supersedes any live run of the
//     same session and returns the new run's event channel
//  3. Subscribing additional consumers with Subscribe, or cancelling with
//     Cancel
//
// All defaults are safe for local development and testing; production
// deployments typically supply API-backed providers, a Redis session store
// and a structured logger.
package tutorflow

import (
	"context"
	"fmt"
	"time"

	"github.com/studyarch/tutorflow/content"
	"github.com/studyarch/tutorflow/core"
	"github.com/studyarch/tutorflow/dispatch"
	"github.com/studyarch/tutorflow/engine"
	"github.com/studyarch/tutorflow/graph"
	"github.com/studyarch/tutorflow/internal/util"
	"github.com/studyarch/tutorflow/logging"
	"github.com/studyarch/tutorflow/provider"
	"github.com/studyarch/tutorflow/session"
	"github.com/studyarch/tutorflow/stream"
	"github.com/studyarch/tutorflow/tutor"
)

// Options configures the TutorFlow instance.
type Options struct {
	// Providers is the chain in fallback order. Defaults to a single local
	// deterministic provider.
	Providers []provider.Client

	// Graph overrides the default tutoring graph.
	Graph *graph.Graph

	// Stores (default to in-memory implementations if not provided).
	SessionStore session.Store
	ContentStore content.Store

	// Dispatch configures retry and backoff.
	Dispatch func(o *dispatch.Options)

	// MaxSteps bounds one run's graph walk.
	MaxSteps int

	// RetrieveLimit caps content references per run.
	RetrieveLimit int

	// Logger (defaults to a JSON slog logger if nil).
	Logger *logging.TutorLogger
}

// TutorFlow is the high-level façade aggregating the engine and services.
type TutorFlow struct {
	opts        Options
	controller  *session.Controller
	broadcaster *stream.Broadcaster
	engine      *engine.Engine
	dispatcher  *dispatch.Dispatcher
	store       session.Store
	content     content.Store
	logger      *logging.TutorLogger
}

// RunHandle identifies a started run and carries its event channel. Events
// end with exactly one terminal frame; the channel closes after it.
type RunHandle struct {
	SessionID  string
	Generation uint64
	Events     <-chan core.StreamEvent
}

// New creates a TutorFlow instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*TutorFlow, error) {
	opts := Options{
		SessionStore:  session.NewInMemoryStore(),
		ContentStore:  content.NewInMemoryStore(),
		MaxSteps:      32,
		RetrieveLimit: 3,
		Logger:        logging.NewLogger(nil),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if len(opts.Providers) == 0 {
		opts.Providers = []provider.Client{provider.NewLocal("local")}
	}

	g := opts.Graph
	if g == nil {
		var err error
		g, err = tutor.BuildGraph(opts.ContentStore, func(o *tutor.GraphOptions) {
			o.RetrieveLimit = opts.RetrieveLimit
		})
		if err != nil {
			return nil, fmt.Errorf("build tutoring graph: %w", err)
		}
	}

	controller := session.NewController()
	broadcaster := stream.NewBroadcaster()

	d := dispatch.New(opts.Providers, func(o *dispatch.Options) {
		o.Logger = opts.Logger.WithComponent("dispatch")
		if opts.Dispatch != nil {
			opts.Dispatch(o)
		}
	})

	eng := engine.New(g, d, opts.SessionStore, broadcaster, func(o *engine.Options) {
		o.MaxSteps = opts.MaxSteps
		o.Logger = opts.Logger
		o.IsCurrent = controller.IsCurrent
	})

	return &TutorFlow{
		opts:        opts,
		controller:  controller,
		broadcaster: broadcaster,
		engine:      eng,
		dispatcher:  d,
		store:       opts.SessionStore,
		content:     opts.ContentStore,
		logger:      opts.Logger,
	}, nil
}

// ContentStore exposes the content index for seeding study material.
func (t *TutorFlow) ContentStore() content.Store { return t.content }

// SessionStore exposes the session persistence layer.
func (t *TutorFlow) SessionStore() session.Store { return t.store }

// StartRun admits a new run for the session with the student's message and
// returns its handle. Any live run of the same session is superseded: its
// context is cancelled and its subscribers receive a cancelled terminal
// frame. The returned channel belongs to the new generation only.
func (t *TutorFlow) StartRun(ctx context.Context, sessionID, message string) (*RunHandle, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id must not be empty")
	}

	rec, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	state := rec.State
	if message != "" {
		state.History.Append(core.RoleUser, message, "")
	}

	gen, runCtx, prevCancel := t.controller.StartRun(context.Background(), sessionID)

	// Promote the new generation first so old subscribers get their
	// terminal frame before the old run observes cancellation.
	t.broadcaster.Supersede(sessionID, gen)
	if prevCancel != nil {
		prevCancel()
	}

	events, _ := t.broadcaster.Subscribe(sessionID, gen)

	// The run is admitted but the engine has not started yet; persist that
	// window so a crash between admission and execution is visible.
	pending := session.Checkpoint{Generation: gen, Status: core.RunPending, UpdatedAt: time.Now().UTC()}
	if err := t.store.SaveCheckpoint(ctx, sessionID, pending, state); err != nil {
		t.logger.WithComponent("tutorflow").WithSession(sessionID, gen).
			Warn("pending checkpoint failed: %v", err)
	}

	t.logger.WithComponent("tutorflow").WithSession(sessionID, gen).
		Debug("run admitted for message %q", util.Truncate(message, 80))

	go func() {
		defer t.controller.Release(sessionID, gen)
		run := t.engine.Execute(runCtx, sessionID, gen, state)
		t.logger.WithComponent("tutorflow").WithSession(sessionID, gen).
			Info("run finished with status %s after %d nodes", run.Status, len(run.NodeLog))
	}()

	return &RunHandle{SessionID: sessionID, Generation: gen, Events: events}, nil
}

// Subscribe attaches an additional consumer to a run. Subscribing to a
// superseded generation yields an immediate cancelled terminal frame.
func (t *TutorFlow) Subscribe(sessionID string, gen uint64) (<-chan core.StreamEvent, func()) {
	return t.broadcaster.Subscribe(sessionID, gen)
}

// Cancel stops the live run of a session, if any. Its subscribers receive a
// cancelled terminal frame from the run itself.
func (t *TutorFlow) Cancel(sessionID string) bool {
	return t.controller.Cancel(sessionID)
}

// CancelRun stops the run of one specific generation, but only while it is
// still the session's live generation. Transport-side aborts use this so a
// disconnecting client of an already superseded run cannot touch the newer
// one.
func (t *TutorFlow) CancelRun(sessionID string, gen uint64) bool {
	return t.controller.CancelGeneration(sessionID, gen)
}

// Generation returns the session's current run generation (0 if none).
func (t *TutorFlow) Generation(sessionID string) uint64 {
	return t.controller.Current(sessionID)
}

// RunSync starts a run and drains it, returning the collected events. The
// final event is the terminal frame. Intended for tests and CLI usage.
func (t *TutorFlow) RunSync(ctx context.Context, sessionID, message string) ([]core.StreamEvent, error) {
	handle, err := t.StartRun(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}
	var events []core.StreamEvent
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case ev, ok := <-handle.Events:
			if !ok {
				return events, nil
			}
			events = append(events, ev)
		}
	}
}
