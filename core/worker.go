package core

import (
	"context"
	"fmt"
)

// Well-known capability tags. Workers are resolved by exact name first and
// by capability second, so these act as routing labels rather than types.
const (
	CapabilityCoordination = "coordination"
	CapabilityCatalog      = "catalog"
	CapabilitySQL          = "sql"
	CapabilityRetrieval    = "retrieval"
)

// Worker is a unit of specialized capability invoked by the coordinator.
// Exactly one worker is active at a time per run; Invoke receives a scoped
// ContextView whose staged mutations the coordinator commits atomically
// after the invocation returns. Implementations must respect ctx
// cancellation since the per-invocation deadline is enforced through it.
//
// A panic inside Invoke does not crash the coordinator: it is recovered at
// the invocation boundary and converted to a Failure with kind
// FailureWorkerInternal.
type Worker interface {
	Name() string
	Capability() string
	Invoke(ctx context.Context, view *ContextView) (Outcome, error)
}

// Outcome is the closed set of results a worker invocation can produce:
// Completion, Handoff or Failure.
type Outcome interface{ isOutcome() }

// Completion carries the run's final answer. Once applied, the run's
// terminal-result slot is set and never overwritten.
type Completion struct {
	Result string
}

func (Completion) isOutcome() {}

// Handoff requests transfer of control to another worker, either by exact
// name (Target) or by capability tag (Capability). When both are set the
// name wins. Reason is an audit tag recorded in the ledger.
type Handoff struct {
	Target     string
	Capability string
	Reason     string
}

func (Handoff) isOutcome() {}

// FailureKind classifies worker and collaborator failures.
type FailureKind string

const (
	// FailureWorkerTimeout marks an invocation that exceeded its deadline.
	FailureWorkerTimeout FailureKind = "WorkerTimeout"
	// FailureCollaborator marks an external collaborator (LLM, catalog,
	// retrieval) error surfaced by the worker.
	FailureCollaborator FailureKind = "ExternalCollaboratorError"
	// FailureHandoffResolution marks a handoff whose target or capability
	// has no registered worker.
	FailureHandoffResolution FailureKind = "HandoffResolutionError"
	// FailureWorkerInternal marks a recovered panic or other unhandled
	// worker-side error.
	FailureWorkerInternal FailureKind = "WorkerInternalError"
)

// Failure ends the run with a classified error. Workers do not self-retry;
// retry policy belongs to the caller starting a new run.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (Failure) isOutcome() {}

// Error renders the failure as a single diagnostic line.
func (f Failure) Error() string { return fmt.Sprintf("%s: %s", f.Kind, f.Detail) }
