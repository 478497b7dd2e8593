// Package core defines the leaf types of the swarmsql coordination model:
// the Worker contract and its Outcome variants, the versioned SharedContext
// with its scoped ContextView, the append-only HandoffLedger, the RunState
// machine, ExecutionEvents and the run-level configuration. Higher layers
// (coordinator, stream, worker) depend on core; core depends on nothing
// above it.
package core
