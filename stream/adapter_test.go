package stream

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/lumenlake/swarmsql/core"
)

func collect(a *Adapter) []core.ExecutionEvent {
	var out []core.ExecutionEvent
	for ev := range a.Events() {
		out = append(out, ev)
	}
	return out
}

func TestAdapter_SequenceStrictlyIncreasing(t *testing.T) {
	a := NewAdapter("run-1", func(o *Options) { o.Buffer = 16 })
	for i := 0; i < 10; i++ {
		a.Emit(core.NewWorkerStartedEvent("", "lead"))
	}
	a.Close()

	events := collect(a)
	if len(events) != 10 {
		t.Fatalf("got %d events, want 10", len(events))
	}
	for i, ev := range events {
		if ev.Seq != uint64(i) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		if ev.RunID != "run-1" {
			t.Fatalf("event missing run id: %+v", ev)
		}
	}
}

func TestAdapter_OverflowDropsOldestWithMarker(t *testing.T) {
	a := NewAdapter("run-1", func(o *Options) { o.Buffer = 4 })
	for i := 0; i < 10; i++ {
		a.Emit(core.NewWorkerStartedEvent("", "lead"))
	}
	a.Close()

	events := collect(a)
	if len(events) == 0 {
		t.Fatal("no events delivered")
	}
	// Delivery stays in strictly increasing seq order, with every evicted
	// event accounted for by a gap marker.
	dropped, delivered := 0, 0
	for i, ev := range events {
		if i > 0 && ev.Seq <= events[i-1].Seq {
			t.Fatalf("sequence not strictly increasing: %d after %d", ev.Seq, events[i-1].Seq)
		}
		if ev.Kind == core.EventEventsDropped {
			if ev.Dropped == 0 {
				t.Fatal("marker must carry a non-zero dropped count")
			}
			dropped += ev.Dropped
			continue
		}
		delivered++
	}
	if dropped == 0 {
		t.Fatal("overflow must surface at least one gap marker")
	}
	if dropped+delivered != 10 {
		t.Fatalf("dropped (%d) + delivered (%d) != emitted (10)", dropped, delivered)
	}
}

func TestAdapter_EmitAfterCloseIsNoOp(t *testing.T) {
	a := NewAdapter("run-1", func(o *Options) { o.Buffer = 4 })
	a.Emit(core.NewWorkerStartedEvent("", "lead"))
	a.Close()
	a.Emit(core.NewWorkerStartedEvent("", "lead")) // must not panic on closed channel
	a.Close()                                      // idempotent

	if got := len(collect(a)); got != 1 {
		t.Fatalf("got %d events, want 1", got)
	}
}

func TestAdapter_SinkReceivesAllEventsInOrder(t *testing.T) {
	var got []core.ExecutionEvent
	sink := SinkFunc(func(ev core.ExecutionEvent) { got = append(got, ev) })

	a := NewAdapter("run-1", func(o *Options) {
		o.Buffer = 32
		o.Sink = sink
	})
	for i := 0; i < 5; i++ {
		a.Emit(core.NewDiagnosticEvent("", "lead", "msg"))
	}
	a.Close()
	a.Wait()

	if len(got) != 5 {
		t.Fatalf("sink saw %d events, want 5", len(got))
	}
	for i, ev := range got {
		if ev.Seq != uint64(i) {
			t.Fatalf("sink event %d has seq %d", i, ev.Seq)
		}
	}
}

func TestAdapter_SinkAndEventsBothSeeEveryEvent(t *testing.T) {
	var mu sync.Mutex
	var sunk []core.ExecutionEvent
	sink := SinkFunc(func(ev core.ExecutionEvent) {
		mu.Lock()
		sunk = append(sunk, ev)
		mu.Unlock()
	})

	a := NewAdapter("run-1", func(o *Options) {
		o.Buffer = 32
		o.Sink = sink
	})
	for i := 0; i < 6; i++ {
		a.Emit(core.NewWorkerStartedEvent("", "lead"))
	}
	a.Close()

	got := collect(a)
	a.Wait()

	if len(got) != 6 {
		t.Fatalf("channel consumer saw %d events, want 6", len(got))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(sunk) != 6 {
		t.Fatalf("sink saw %d events, want 6", len(sunk))
	}
	for i := range sunk {
		if sunk[i].Seq != uint64(i) {
			t.Fatalf("sink event %d has seq %d", i, sunk[i].Seq)
		}
		if got[i].Seq != uint64(i) {
			t.Fatalf("channel event %d has seq %d", i, got[i].Seq)
		}
	}
}

func TestAdapter_UnclaimedStreamLeavesNoGoroutine(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		a := NewAdapter("run-1", func(o *Options) { o.Buffer = 4 })
		for j := 0; j < 10; j++ {
			a.Emit(core.NewWorkerStartedEvent("", "lead"))
		}
		a.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines grew from %d to %d for unclaimed streams", before, runtime.NumGoroutine())
}

func TestAdapter_WorkerLabelsAppliedToPayloads(t *testing.T) {
	a := NewAdapter("run-1", func(o *Options) {
		o.Buffer = 8
		o.Labels = map[string]string{"lead": "Lead Analyst", "sql_runner": "SQL Runner"}
	})
	a.Emit(core.NewWorkerStartedEvent("", "lead"))
	a.Emit(core.NewHandoffEvent("", "lead", "sql_runner", "delegate"))
	a.Emit(core.NewWorkerStartedEvent("", "unmapped"))
	a.Close()

	events := collect(a)
	if events[0].Worker != "Lead Analyst" {
		t.Fatalf("worker label = %q", events[0].Worker)
	}
	if events[1].Worker != "Lead Analyst" || events[1].Target != "SQL Runner" {
		t.Fatalf("handoff labels = %q -> %q", events[1].Worker, events[1].Target)
	}
	if events[2].Worker != "unmapped" {
		t.Fatalf("unmapped worker rewritten to %q", events[2].Worker)
	}
}

func TestAdapter_NoConsumerDoesNotBlockProducer(t *testing.T) {
	a := NewAdapter("run-1", func(o *Options) { o.Buffer = 2 })
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			a.Emit(core.NewWorkerStartedEvent("", "lead"))
		}
		close(done)
	}()
	<-done // would deadlock if Emit ever blocked
	a.Close()
}
