package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlake/swarmsql/core"
)

// scriptedWorker runs an arbitrary function, letting tests script outcomes.
type scriptedWorker struct {
	name       string
	capability string
	fn         func(ctx context.Context, view *core.ContextView) (core.Outcome, error)
}

func (w *scriptedWorker) Name() string       { return w.name }
func (w *scriptedWorker) Capability() string { return w.capability }
func (w *scriptedWorker) Invoke(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
	return w.fn(ctx, view)
}

func newTestCoordinator(t *testing.T, cfg core.RunConfig, workers ...core.Worker) *Coordinator {
	t.Helper()
	reg := core.NewRegistry()
	for _, w := range workers {
		require.NoError(t, reg.Register(w))
	}
	c, err := New(reg, func(o *Options) { o.Config = cfg })
	require.NoError(t, err)
	return c
}

func drainRun(t *testing.T, h *RunHandle) []core.ExecutionEvent {
	t.Helper()
	var events []core.ExecutionEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("run did not terminate in time")
		}
	}
}

func kinds(events []core.ExecutionEvent) []core.EventKind {
	out := make([]core.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestRun_ImmediateCompletion(t *testing.T) {
	entry := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Completion{Result: "42 rows"}, nil
		}}
	c := newTestCoordinator(t, core.DefaultRunConfig("lead"), entry)

	h, err := c.Start(context.Background(), "how many rows?")
	require.NoError(t, err)
	events := drainRun(t, h)

	assert.Equal(t, core.RunCompleted, h.State())
	result, ok := h.Result()
	require.True(t, ok)
	assert.Equal(t, "42 rows", result)
	assert.Empty(t, h.Ledger())
	assert.Equal(t, []core.EventKind{
		core.EventWorkerStarted,
		core.EventWorkerFinished,
		core.EventRunTerminated,
	}, kinds(events))
	assert.Equal(t, core.RunCompleted, events[2].State)
}

func TestRun_PingPongAbortsAsLoop(t *testing.T) {
	a := &scriptedWorker{name: "a", capability: "x",
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Handoff{Target: "b", Reason: "ask"}, nil
		}}
	b := &scriptedWorker{name: "b", capability: "y",
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Handoff{Target: "a", Reason: "answer"}, nil
		}}
	cfg := core.DefaultRunConfig("a")
	cfg.LoopWindow = 8
	cfg.MinUniqueWorkers = 3
	c := newTestCoordinator(t, cfg, a, b)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	drainRun(t, h)

	assert.Equal(t, core.RunAbortedLoop, h.State())
	// The loop verdict lands at the 8th handoff, not later.
	assert.Len(t, h.Ledger(), 8)
	_, ok := h.Result()
	assert.False(t, ok, "aborted run must leave the result slot unset")
}

func TestRun_WorkerTimeoutFailsRunWithoutMutations(t *testing.T) {
	entry := &scriptedWorker{name: "slow", capability: core.CapabilitySQL,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			view.SetFinding("partial", "work")
			<-ctx.Done()
			return core.Completion{Result: "too late"}, nil
		}}
	cfg := core.DefaultRunConfig("slow")
	cfg.InvocationTimeout = 20 * time.Millisecond
	c := newTestCoordinator(t, cfg, entry)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	drainRun(t, h)

	assert.Equal(t, core.RunFailed, h.State())
	assert.Contains(t, h.Reason(), string(core.FailureWorkerTimeout))
	assert.EqualValues(t, 0, h.Context().Version(), "timed-out invocation must not mutate the context")
	_, ok := h.Result()
	assert.False(t, ok)
	require.NotEmpty(t, h.Context().Diagnostics())
}

func TestRun_HandoffByCapability(t *testing.T) {
	lead := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			view.SetFinding("intent", "lookup")
			return core.Handoff{Capability: core.CapabilitySQL, Reason: "needs query"}, nil
		}}
	sqlA := &scriptedWorker{name: "sql-primary", capability: core.CapabilitySQL,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Completion{Result: "done"}, nil
		}}
	sqlB := &scriptedWorker{name: "sql-secondary", capability: core.CapabilitySQL,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Failure{Kind: core.FailureWorkerInternal, Detail: "should not run"}, nil
		}}
	c := newTestCoordinator(t, core.DefaultRunConfig("lead"), lead, sqlA, sqlB)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	drainRun(t, h)

	assert.Equal(t, core.RunCompleted, h.State())
	ledger := h.Ledger()
	require.Len(t, ledger, 1)
	assert.Equal(t, "sql-primary", ledger[0].To, "first registered capability match wins")
	v, ok := h.Context().Finding("intent")
	require.True(t, ok, "issuing worker's delta commits with the handoff")
	assert.Equal(t, "lookup", v)
}

func TestRun_UnresolvableHandoffFails(t *testing.T) {
	entry := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Handoff{Target: "ghost"}, nil
		}}
	c := newTestCoordinator(t, core.DefaultRunConfig("lead"), entry)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	events := drainRun(t, h)

	assert.Equal(t, core.RunFailed, h.State())
	assert.Contains(t, h.Reason(), string(core.FailureHandoffResolution))
	assert.Empty(t, h.Ledger())
	assert.Contains(t, kinds(events), core.EventDiagnosticEmitted)
}

func TestRun_HandoffBudgetExhaustion(t *testing.T) {
	var workers []core.Worker
	// Three workers cycling keeps the loop detector quiet (U=3) so the
	// budget is what trips.
	names := []string{"a", "b", "c"}
	for i, n := range names {
		next := names[(i+1)%len(names)]
		workers = append(workers, &scriptedWorker{name: n, capability: n + "-cap",
			fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
				return core.Handoff{Target: next}, nil
			}})
	}
	cfg := core.DefaultRunConfig("a")
	cfg.MaxHandoffs = 5
	c := newTestCoordinator(t, cfg, workers...)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	drainRun(t, h)

	assert.Equal(t, core.RunAbortedTimeout, h.State())
	assert.Len(t, h.Ledger(), 5)
}

func TestRun_RunDeadlineObservedAtCheckpoint(t *testing.T) {
	a := &scriptedWorker{name: "a", capability: "x",
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			time.Sleep(30 * time.Millisecond)
			return core.Handoff{Target: "b"}, nil
		}}
	b := &scriptedWorker{name: "b", capability: "y",
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Handoff{Target: "a"}, nil
		}}
	cfg := core.DefaultRunConfig("a")
	cfg.RunTimeout = 10 * time.Millisecond
	c := newTestCoordinator(t, cfg, a, b)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	drainRun(t, h)

	// No invocation timed out, yet the run deadline is honored at the next
	// checkpoint.
	assert.Equal(t, core.RunAbortedTimeout, h.State())
	assert.Contains(t, h.Reason(), "deadline")
}

func TestRun_CancellationIsIdempotent(t *testing.T) {
	entry := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			<-ctx.Done()
			return core.Failure{Kind: core.FailureWorkerInternal, Detail: "interrupted"}, nil
		}}
	cfg := core.DefaultRunConfig("lead")
	cfg.InvocationTimeout = time.Second
	c := newTestCoordinator(t, cfg, entry)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	h.Cancel()
	drainRun(t, h)

	assert.Equal(t, core.RunCancelled, h.State())
	h.Cancel() // terminal run: no-op, no panic
	assert.Equal(t, core.RunCancelled, h.State())
}

func TestRun_WorkerPanicBecomesFailure(t *testing.T) {
	entry := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			panic("boom")
		}}
	c := newTestCoordinator(t, core.DefaultRunConfig("lead"), entry)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	drainRun(t, h)

	assert.Equal(t, core.RunFailed, h.State())
	assert.Contains(t, h.Reason(), string(core.FailureWorkerInternal))
}

func TestRun_EventSequencesAreStrictlyIncreasing(t *testing.T) {
	lead := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			return core.Handoff{Target: "sql"}, nil
		}}
	sql := &scriptedWorker{name: "sql", capability: core.CapabilitySQL,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			view.AddDiagnostic("cache miss")
			return core.Completion{Result: "ok"}, nil
		}}
	c := newTestCoordinator(t, core.DefaultRunConfig("lead"), lead, sql)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	events := drainRun(t, h)

	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}
	assert.Equal(t, core.EventRunTerminated, events[len(events)-1].Kind)
	assert.Contains(t, kinds(events), core.EventDiagnosticEmitted)
	assert.Contains(t, kinds(events), core.EventHandoffOccurred)
}

func TestCoordinator_CancelByRunID(t *testing.T) {
	entry := &scriptedWorker{name: "lead", capability: core.CapabilityCoordination,
		fn: func(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
			<-ctx.Done()
			return core.Completion{Result: "late"}, nil
		}}
	cfg := core.DefaultRunConfig("lead")
	cfg.InvocationTimeout = time.Second
	c := newTestCoordinator(t, cfg, entry)

	h, err := c.Start(context.Background(), "q")
	require.NoError(t, err)
	require.NoError(t, c.Cancel(h.RunID()))
	drainRun(t, h)
	assert.Equal(t, core.RunCancelled, h.State())

	assert.Error(t, c.Cancel(h.RunID()), "finished run is no longer tracked")
	assert.Error(t, c.Cancel("missing"))
}
