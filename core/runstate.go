package core

// RunState models the coordinator's finite-state machine. Terminal states
// are sinks: no worker invocation or SharedContext mutation may follow.
type RunState int

const (
	// RunPending is the initial state before the entry worker is selected.
	RunPending RunState = iota
	// RunRunning covers the whole handoff loop.
	RunRunning
	// RunCompleted means the terminal-result slot was set.
	RunCompleted
	// RunFailed means a worker produced a Failure outcome.
	RunFailed
	// RunAbortedLoop means the loop detector tripped.
	RunAbortedLoop
	// RunAbortedTimeout means the run deadline or handoff budget was hit.
	RunAbortedTimeout
	// RunCancelled means the run was cancelled externally. Downstream
	// consumers should treat it like RunAbortedTimeout.
	RunCancelled
)

// String returns the wire label for the state.
func (s RunState) String() string {
	switch s {
	case RunPending:
		return "PENDING"
	case RunRunning:
		return "RUNNING"
	case RunCompleted:
		return "COMPLETED"
	case RunFailed:
		return "FAILED"
	case RunAbortedLoop:
		return "ABORTED_LOOP"
	case RunAbortedTimeout:
		return "ABORTED_TIMEOUT"
	case RunCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state is a sink.
func (s RunState) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunAbortedLoop, RunAbortedTimeout, RunCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a legal FSM edge.
func (s RunState) CanTransition(next RunState) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case RunPending:
		return next == RunRunning || next == RunCancelled
	case RunRunning:
		return next.Terminal()
	default:
		return false
	}
}
