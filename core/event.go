package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind labels the lifecycle stages an observer can see.
type EventKind string

const (
	// EventWorkerStarted marks the beginning of a worker invocation.
	EventWorkerStarted EventKind = "WorkerStarted"
	// EventWorkerFinished marks the end of a worker invocation.
	EventWorkerFinished EventKind = "WorkerFinished"
	// EventHandoffOccurred marks an applied control transfer.
	EventHandoffOccurred EventKind = "HandoffOccurred"
	// EventDiagnosticEmitted surfaces a non-fatal diagnostic to observers.
	EventDiagnosticEmitted EventKind = "DiagnosticEmitted"
	// EventEventsDropped marks a gap where buffered events were evicted
	// under backpressure. Dropped carries the count; the marker keeps the
	// sequence number of the first evicted event so consumers can account
	// for the gap without renumbering.
	EventEventsDropped EventKind = "EventsDropped"
	// EventRunTerminated is emitted exactly once per run with the terminal
	// state and reason.
	EventRunTerminated EventKind = "RunTerminated"
)

// ExecutionEvent is the normalized unit of the observer stream. Seq is
// strictly increasing per run and assigned by the stream adapter; consumers
// must tolerate gaps explicitly marked by EventEventsDropped.
type ExecutionEvent struct {
	RunID     string    `json:"run_id"`
	Seq       uint64    `json:"seq"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Payload fields; which are set depends on Kind.
	Worker  string   `json:"worker,omitempty"`
	Target  string   `json:"target,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	State   RunState `json:"state,omitempty"`
	Dropped int      `json:"dropped,omitempty"`
}

// NewRunID generates a unique identifier for a run.
func NewRunID() string { return uuid.NewString() }

func newEvent(runID string, kind EventKind) ExecutionEvent {
	return ExecutionEvent{RunID: runID, Kind: kind, Timestamp: time.Now().UTC()}
}

// NewWorkerStartedEvent reports that worker is about to be invoked.
func NewWorkerStartedEvent(runID, worker string) ExecutionEvent {
	ev := newEvent(runID, EventWorkerStarted)
	ev.Worker = worker
	return ev
}

// NewWorkerFinishedEvent reports that worker's invocation returned; detail
// names the outcome variant.
func NewWorkerFinishedEvent(runID, worker, detail string) ExecutionEvent {
	ev := newEvent(runID, EventWorkerFinished)
	ev.Worker = worker
	ev.Detail = detail
	return ev
}

// NewHandoffEvent reports an applied control transfer.
func NewHandoffEvent(runID, from, to, reason string) ExecutionEvent {
	ev := newEvent(runID, EventHandoffOccurred)
	ev.Worker = from
	ev.Target = to
	ev.Reason = reason
	return ev
}

// NewDiagnosticEvent surfaces a committed diagnostic.
func NewDiagnosticEvent(runID, worker, message string) ExecutionEvent {
	ev := newEvent(runID, EventDiagnosticEmitted)
	ev.Worker = worker
	ev.Detail = message
	return ev
}

// NewRunTerminatedEvent reports the run's terminal state and reason.
func NewRunTerminatedEvent(runID string, state RunState, reason string) ExecutionEvent {
	ev := newEvent(runID, EventRunTerminated)
	ev.State = state
	ev.Reason = reason
	return ev
}
