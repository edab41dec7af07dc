package core

// RunStatus is the lifecycle state of a run. All terminal states are
// absorbing: once a run leaves Running it never transitions again.
type RunStatus string

const (
	// RunPending indicates the run has been admitted but not started.
	RunPending RunStatus = "pending"
	// RunRunning indicates the engine loop is executing nodes.
	RunRunning RunStatus = "running"
	// RunCompleted indicates the run reached a terminal node successfully.
	RunCompleted RunStatus = "completed"
	// RunErrored indicates a node or router error terminated the run.
	RunErrored RunStatus = "errored"
	// RunCancelled indicates the run was cancelled (superseded or explicit).
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is absorbing.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunErrored, RunCancelled:
		return true
	default:
		return false
	}
}
