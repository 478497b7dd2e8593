// Package swarmsql provides a high-level façade over the coordinator and its
// worker registry, enabling rapid construction of handoff-driven
// question-answering systems. Most applications interact with this package by:
//  1. Creating a Swarm via New() (optionally overriding config, logger, sink)
//  2. Registering one or more workers (lead, data expert, SQL runner, custom)
//  3. Starting runs asynchronously (Start) or synchronously (Run)
//
// The façade delegates orchestration to coordinator.Coordinator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing.
package swarmsql

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenlake/swarmsql/coordinator"
	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/logging"
	"github.com/lumenlake/swarmsql/store"
	"github.com/lumenlake/swarmsql/stream"
)

// Options configures the Swarm instance.
type Options struct {
	// Config carries the run limits (timeouts, handoff budget, loop window).
	Config core.RunConfig
	// Logger defaults to the NoOp logger if nil.
	Logger logging.Logger
	// Sink, if set, receives every run's events on a drain goroutine.
	Sink stream.Sink
	// WorkerLabels maps worker names to display labels shown in event
	// payloads.
	WorkerLabels map[string]string
	// Store, if set, receives a RunRecord for every run finished through
	// Run.
	Store store.Store
}

// Swarm is the high-level façade aggregating the registry and coordinator.
// All methods are safe for concurrent use; every run started through one
// Swarm shares a single coordinator.
type Swarm struct {
	opts     Options
	registry *core.Registry

	mu    sync.Mutex
	coord *coordinator.Coordinator
}

// New creates a new Swarm instance with optional overrides.
func New(optFns ...func(o *Options)) *Swarm {
	opts := Options{
		Config: core.DefaultRunConfig(""),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Swarm{opts: opts, registry: core.NewRegistry()}
}

// Register adds a worker. All workers must be registered before the first
// run starts; registration order doubles as the capability tie-break order.
func (s *Swarm) Register(w core.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coord != nil {
		return fmt.Errorf("cannot register workers after the first run has started")
	}
	return s.registry.Register(w)
}

// Start begins an asynchronous run and returns its handle.
func (s *Swarm) Start(ctx context.Context, request string) (*coordinator.RunHandle, error) {
	coord, err := s.coordinator()
	if err != nil {
		return nil, err
	}
	return coord.Start(ctx, request)
}

// coordinator returns the shared coordinator, building it on first use.
// The same lock gates Register, so the worker set is frozen the moment the
// coordinator exists.
func (s *Swarm) coordinator() (*coordinator.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coord != nil {
		return s.coord, nil
	}
	coord, err := coordinator.New(s.registry, func(o *coordinator.Options) {
		o.Config = s.opts.Config
		o.Logger = s.opts.Logger
		o.Sink = s.opts.Sink
		o.WorkerLabels = s.opts.WorkerLabels
	})
	if err != nil {
		return nil, err
	}
	s.coord = coord
	return s.coord, nil
}

// Run is a synchronous helper: it starts a run, drains its events and
// returns the terminal result together with everything observed.
func (s *Swarm) Run(ctx context.Context, request string) (RunResult, error) {
	h, err := s.Start(ctx, request)
	if err != nil {
		return RunResult{}, err
	}

	var events []core.ExecutionEvent
	for {
		select {
		case <-ctx.Done():
			h.Cancel()
			for ev := range h.Events() {
				events = append(events, ev)
			}
			return s.collect(h, events), ctx.Err()
		case ev, ok := <-h.Events():
			if !ok {
				return s.collect(h, events), nil
			}
			events = append(events, ev)
		}
	}
}

// RunResult is the synchronous view of a finished run.
type RunResult struct {
	RunID     string
	State     core.RunState
	Reason    string
	Result    string
	HasResult bool
	Events    []core.ExecutionEvent
	Handoffs  []core.HandoffRecord
}

func (s *Swarm) collect(h *coordinator.RunHandle, events []core.ExecutionEvent) RunResult {
	result, ok := h.Result()
	res := RunResult{
		RunID:     h.RunID(),
		State:     h.State(),
		Reason:    h.Reason(),
		Result:    result,
		HasResult: ok,
		Events:    events,
		Handoffs:  h.Ledger(),
	}
	if s.opts.Store != nil && res.State.Terminal() {
		rec := store.RunRecord{
			RunID:      res.RunID,
			Request:    h.Context().Request(),
			State:      res.State,
			Reason:     res.Reason,
			Result:     res.Result,
			HasResult:  res.HasResult,
			Handoffs:   res.Handoffs,
			FinishedAt: time.Now().UTC(),
		}
		if err := s.opts.Store.Save(rec); err != nil {
			s.opts.Logger.Warn("failed to persist run record", "run_id", res.RunID, "error", err.Error())
		}
	}
	return res
}
