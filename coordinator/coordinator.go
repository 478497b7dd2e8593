// Package coordinator drives a run from PENDING to a terminal state: it
// selects the active worker, invokes it under timeout supervision, applies
// its outcome to the shared context and the handoff ledger, consults the
// loop detector, and emits lifecycle events through the stream adapter.
// Control is cooperative, never parallel: exactly one worker is active at a
// time per run, so the shared context needs no fine-grained locking between
// workers.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/logging"
	"github.com/lumenlake/swarmsql/stream"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Config carries the run-level limits applied to every run started
	// through this coordinator.
	Config core.RunConfig
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// Sink, if set, receives every run's events on a drain goroutine.
	Sink stream.Sink
	// WorkerLabels maps worker names to display labels shown in event
	// payloads. The ledger keeps the raw names.
	WorkerLabels map[string]string
}

// Coordinator owns the handoff state machine. Public methods are safe for
// concurrent use; distinct runs are fully independent.
type Coordinator struct {
	registry *core.Registry
	cfg      core.RunConfig
	logger   logging.Logger
	sink     stream.Sink
	labels   map[string]string

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New constructs a Coordinator over a worker registry.
func New(registry *core.Registry, optFns ...func(o *Options)) (*Coordinator, error) {
	opts := Options{
		Config: core.DefaultRunConfig(""),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.EntryWorker == "" {
		names := registry.Names()
		if len(names) == 0 {
			return nil, fmt.Errorf("registry has no workers")
		}
		opts.Config.EntryWorker = names[0]
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	return &Coordinator{
		registry:   registry,
		cfg:        opts.Config,
		logger:     opts.Logger,
		sink:       opts.Sink,
		labels:     opts.WorkerLabels,
		activeRuns: make(map[string]context.CancelFunc),
	}, nil
}

// Start begins an asynchronous run for one user request and returns the
// handle through which the caller observes events and the terminal result.
func (c *Coordinator) Start(ctx context.Context, request string) (*RunHandle, error) {
	entry, ok := c.registry.Get(c.cfg.EntryWorker)
	if !ok {
		return nil, fmt.Errorf("%w: entry worker %q", core.ErrWorkerNotFound, c.cfg.EntryWorker)
	}

	runID := core.NewRunID()
	runCtx, cancel := context.WithCancel(ctx)

	adapter := stream.NewAdapter(runID, func(o *stream.Options) {
		o.Buffer = c.cfg.EventBuffer
		o.Sink = c.sink
		o.Labels = c.labels
		o.Logger = c.logger
	})

	h := &RunHandle{
		runID:   runID,
		adapter: adapter,
		sctx:    core.NewSharedContext(request),
		ledger:  core.NewHandoffLedger(),
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   core.RunPending,
	}

	c.mu.Lock()
	c.activeRuns[runID] = cancel
	c.mu.Unlock()

	h.setState(core.RunRunning, "")
	c.logger.Info("run started", "run_id", runID, "entry", entry.Name())

	go c.runLoop(runCtx, h, entry)

	return h, nil
}

// Cancel cancels a live run by ID.
func (c *Coordinator) Cancel(runID string) error {
	c.mu.Lock()
	cancel, exists := c.activeRuns[runID]
	c.mu.Unlock()
	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}
	cancel()
	return nil
}

func (c *Coordinator) runLoop(ctx context.Context, h *RunHandle, entry core.Worker) {
	defer func() {
		c.mu.Lock()
		delete(c.activeRuns, h.runID)
		c.mu.Unlock()
	}()

	supervisor := NewTimeoutSupervisor(c.cfg.InvocationTimeout, c.cfg.RunTimeout, c.logger)
	detector := NewLoopDetector(c.cfg.LoopWindow, c.cfg.MinUniqueWorkers)
	current := entry

	for {
		// Iteration checkpoint: cancellation, run deadline, handoff budget.
		if ctx.Err() != nil {
			c.terminate(h, core.RunCancelled, "run cancelled")
			return
		}
		if supervisor.RunExpired() {
			c.terminate(h, core.RunAbortedTimeout, fmt.Sprintf("run exceeded %s deadline", c.cfg.RunTimeout))
			return
		}
		if h.ledger.Len() >= c.cfg.MaxHandoffs {
			c.terminate(h, core.RunAbortedTimeout, fmt.Sprintf("handoff budget of %d exhausted", c.cfg.MaxHandoffs))
			return
		}

		view := h.sctx.NewView(current.Name())
		h.adapter.Emit(core.NewWorkerStartedEvent(h.runID, current.Name()))

		outcome := supervisor.Invoke(ctx, current, view)
		h.adapter.Emit(core.NewWorkerFinishedEvent(h.runID, current.Name(), outcomeLabel(outcome)))

		if ctx.Err() != nil {
			// Cancelled mid-invocation; the staged view is discarded.
			c.terminate(h, core.RunCancelled, "run cancelled")
			return
		}

		switch o := outcome.(type) {
		case core.Completion:
			c.commit(h, view)
			h.sctx.SetResult(o.Result)
			c.terminate(h, core.RunCompleted, "completed")
			return

		case core.Handoff:
			next := c.applyHandoff(h, current, o, view)
			if next == nil {
				return
			}
			if detector.Looping(h.ledger) {
				c.terminate(h, core.RunAbortedLoop, fmt.Sprintf(
					"fewer than %d distinct workers over the last %d handoffs", c.cfg.MinUniqueWorkers, c.cfg.LoopWindow))
				return
			}
			current = next

		case core.Failure:
			// All-or-nothing: a failed invocation contributes no findings,
			// only the failure diagnostic.
			h.sctx.AddDiagnostic(current.Name(), o.Error())
			h.adapter.Emit(core.NewDiagnosticEvent(h.runID, current.Name(), o.Error()))
			c.terminate(h, core.RunFailed, o.Error())
			return

		default:
			c.terminate(h, core.RunFailed, fmt.Sprintf("worker %s produced unknown outcome %T", current.Name(), outcome))
			return
		}
	}
}

// applyHandoff resolves the target, commits the issuing worker's delta and
// records the transfer. It returns the next worker, or nil if the run was
// terminated (unresolvable target).
func (c *Coordinator) applyHandoff(h *RunHandle, from core.Worker, o core.Handoff, view *core.ContextView) core.Worker {
	target := o.Target
	if target == "" {
		target = o.Capability
	}
	next, ok := c.registry.Resolve(target)
	if !ok {
		failure := core.Failure{Kind: core.FailureHandoffResolution, Detail: fmt.Sprintf("no worker registered for target %q", target)}
		h.sctx.AddDiagnostic(from.Name(), failure.Error())
		h.adapter.Emit(core.NewDiagnosticEvent(h.runID, from.Name(), failure.Error()))
		c.terminate(h, core.RunFailed, failure.Error())
		return nil
	}

	c.commit(h, view)
	h.ledger.Append(from.Name(), target, next.Name(), o.Reason)
	h.adapter.Emit(core.NewHandoffEvent(h.runID, from.Name(), next.Name(), o.Reason))
	c.logger.Debug("handoff", "run_id", h.runID, "from", from.Name(), "to", next.Name(), "reason", o.Reason)
	return next
}

// commit applies the view's staged delta atomically and surfaces every
// committed diagnostic as an event.
func (c *Coordinator) commit(h *RunHandle, view *core.ContextView) {
	for _, d := range h.sctx.Apply(view) {
		h.adapter.Emit(core.NewDiagnosticEvent(h.runID, d.Worker, d.Message))
	}
}

// terminate performs the guarded transition to a terminal state, emits the
// single RunTerminated event and releases the stream. Repeated calls are
// no-ops thanks to the FSM guard.
func (c *Coordinator) terminate(h *RunHandle, state core.RunState, reason string) {
	if !h.setState(state, reason) {
		return
	}
	h.adapter.Emit(core.NewRunTerminatedEvent(h.runID, state, reason))
	h.adapter.Close()
	close(h.done)
	c.logger.Info("run terminated", "run_id", h.runID, "state", state.String(), "reason", reason)
}

func outcomeLabel(o core.Outcome) string {
	switch v := o.(type) {
	case core.Completion:
		return "completion"
	case core.Handoff:
		return "handoff"
	case core.Failure:
		return string(v.Kind)
	default:
		return "unknown"
	}
}
