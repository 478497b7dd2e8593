package coordinator

import (
	"context"
	"sync"

	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/stream"
)

// RunHandle is the caller's view of one run: the ordered event stream, the
// terminal state and result, and cancellation. A handle stays valid after
// the run terminates so results and audit data can be read.
type RunHandle struct {
	runID   string
	adapter *stream.Adapter
	sctx    *core.SharedContext
	ledger  *core.HandoffLedger
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.RWMutex
	state  core.RunState
	reason string
}

// RunID returns the unique identifier of this run.
func (h *RunHandle) RunID() string { return h.runID }

// Events returns the ordered observer stream. The channel closes after the
// RunTerminated event. A caller that requests the stream must drain it.
// Consumers must tolerate gaps marked by EventsDropped and must not assume
// every sequence number is present.
func (h *RunHandle) Events() <-chan core.ExecutionEvent { return h.adapter.Events() }

// Done returns a channel closed when the run reaches a terminal state.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run terminates or ctx is cancelled.
func (h *RunHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return nil
	}
}

// State returns the current run state.
func (h *RunHandle) State() core.RunState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Reason returns the human-readable termination reason, empty while the
// run is still live.
func (h *RunHandle) Reason() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reason
}

// Result returns the terminal result and whether it was set. Aborted and
// failed runs leave the slot unset; accumulated findings remain readable
// through Context as diagnostic context.
func (h *RunHandle) Result() (string, bool) { return h.sctx.Result() }

// Context returns the run's shared context for reading findings and
// diagnostics.
func (h *RunHandle) Context() *core.SharedContext { return h.sctx }

// Ledger returns a copy of the run's handoff history.
func (h *RunHandle) Ledger() []core.HandoffRecord { return h.ledger.Records() }

// Cancel requests termination. It takes effect at the next iteration
// checkpoint; an in-flight invocation is bounded by its own deadline.
// Cancelling an already-terminal run is a no-op.
func (h *RunHandle) Cancel() { h.cancel() }

// setState performs a guarded FSM transition; illegal edges are ignored so
// a terminal state can never be overwritten.
func (h *RunHandle) setState(next core.RunState, reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.CanTransition(next) {
		return false
	}
	h.state = next
	if next.Terminal() {
		h.reason = reason
	}
	return true
}
