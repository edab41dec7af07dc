// Package core defines the shared data model of the TutorFlow engine:
// stream events tagged with generation and sequence numbers, the run status
// machine, conversation messages and the TutorState threaded through graph
// nodes. The package holds data types only; behavior lives in the engine,
// session, dispatch and stream packages.
package core
