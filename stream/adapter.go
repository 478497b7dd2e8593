// Package stream decouples event production (the coordinator's synchronous
// control flow) from event consumption (observers that may be slow, absent,
// or gone). The Adapter buffers ExecutionEvents per consumer in a bounded
// queue; when a consumer falls too far behind, the oldest unconsumed events
// are folded into an EventsDropped marker that takes their place, so each
// consumer's delivery order stays strictly increasing and the gap is
// explicit. Emission never blocks the producer.
package stream

import (
	"sync"

	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/logging"
)

// Sink receives normalized events, e.g. a UI bridge or log forwarder.
// Consume is called from the adapter's drain goroutine, never from the
// coordinator's control loop.
type Sink interface {
	Consume(ev core.ExecutionEvent)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev core.ExecutionEvent)

// Consume implements Sink.
func (f SinkFunc) Consume(ev core.ExecutionEvent) { f(ev) }

// Options configures an Adapter.
type Options struct {
	// Buffer bounds the number of unconsumed events held per consumer.
	Buffer int
	// Sink, if set, is fed every event from a dedicated drain goroutine,
	// independently of the Events channel.
	Sink Sink
	// Labels maps worker names to display labels substituted into event
	// payloads. The ledger and shared context keep the raw names.
	Labels map[string]string
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Adapter converts coordinator lifecycle events into ordered observer
// streams for one run. Emit assigns strictly increasing sequence numbers;
// the Events channel and the sink each receive the full stream, buffered
// and folded independently, so a slow sink never starves the channel
// consumer or vice versa.
type Adapter struct {
	runID  string
	logger logging.Logger
	labels map[string]string

	mu     sync.Mutex
	seq    uint64
	closed bool

	obs *eventQueue
	snk *eventQueue

	out       chan core.ExecutionEvent
	claimOnce sync.Once
	drainDone chan struct{}
}

// NewAdapter creates an adapter for a run. The sink drain goroutine (if any)
// starts immediately; channel delivery starts when Events is first called.
func NewAdapter(runID string, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Buffer: core.DefaultEventBuffer,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	// A gap marker occupies a slot alongside the newest event.
	if opts.Buffer < 2 {
		opts.Buffer = core.DefaultEventBuffer
	}

	a := &Adapter{
		runID:  runID,
		logger: opts.Logger,
		labels: opts.Labels,
		obs:    newEventQueue(opts.Buffer),
		out:    make(chan core.ExecutionEvent),
	}
	if opts.Sink != nil {
		a.snk = newEventQueue(opts.Buffer)
		a.drainDone = make(chan struct{})
		go a.drain(opts.Sink)
	}
	return a
}

// Events returns the ordered event stream. Delivery starts on the first
// call; a caller that requests the stream must drain it. The channel is
// closed once the adapter is closed and the remaining buffer has been
// delivered. An adapter whose stream is never requested holds at most
// Buffer events and starts no delivery goroutine.
func (a *Adapter) Events() <-chan core.ExecutionEvent {
	a.claimOnce.Do(func() { go a.pump() })
	return a.out
}

// Emit stamps the event with the run id and next sequence number and
// buffers it for every consumer without ever blocking. If a consumer's
// buffer is full its oldest unconsumed events are folded into an
// EventsDropped marker that keeps the first gap's sequence number and the
// total evicted count.
func (a *Adapter) Emit(ev core.ExecutionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	ev.RunID = a.runID
	ev.Seq = a.seq
	a.seq++
	if lbl, ok := a.labels[ev.Worker]; ok {
		ev.Worker = lbl
	}
	if lbl, ok := a.labels[ev.Target]; ok {
		ev.Target = lbl
	}

	if n := a.obs.push(ev); n > 0 {
		a.logger.Debug("events evicted under backpressure", "run_id", a.runID, "count", n)
	}
	if a.snk != nil {
		if n := a.snk.push(ev); n > 0 {
			a.logger.Debug("sink events evicted under backpressure", "run_id", a.runID, "count", n)
		}
	}
}

// Close stops accepting events. Already-buffered events are still delivered
// before each consumer's stream ends. Idempotent and never blocks the
// caller.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.obs.close()
	if a.snk != nil {
		a.snk.close()
	}
}

// Wait blocks until the sink drain goroutine (if any) has consumed the
// stream to completion. Without a sink it returns immediately.
func (a *Adapter) Wait() {
	if a.drainDone != nil {
		<-a.drainDone
	}
}

// pump moves the channel consumer's queue to the out channel in order. It
// owns the out channel's lifecycle: once the adapter is closed and the
// queue is drained the channel is closed.
func (a *Adapter) pump() {
	for {
		ev, ok := a.obs.pop()
		if !ok {
			close(a.out)
			return
		}
		a.out <- ev
	}
}

func (a *Adapter) drain(sink Sink) {
	defer close(a.drainDone)
	for {
		ev, ok := a.snk.pop()
		if !ok {
			return
		}
		sink.Consume(ev)
	}
}

// eventQueue is a bounded evict-oldest buffer for one consumer. On
// overflow the oldest entries fold into an EventsDropped marker that keeps
// the first gap's sequence number, so the consumer always reads a strictly
// increasing, gap-marked stream.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []core.ExecutionEvent
	max    int
	closed bool
}

func newEventQueue(max int) *eventQueue {
	q := &eventQueue{max: max}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends ev, evicting and folding the oldest entries when full. It
// returns the number of real events dropped by this call.
func (q *eventQueue) push(ev core.ExecutionEvent) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}

	dropped := 0
	if len(q.ring) >= q.max {
		marker, ok := core.ExecutionEvent{}, false
		for len(q.ring) > q.max-2 {
			head := q.ring[0]
			q.ring = q.ring[1:]
			switch {
			case head.Kind == core.EventEventsDropped && !ok:
				marker, ok = head, true
			case head.Kind == core.EventEventsDropped:
				marker.Dropped += head.Dropped
			case !ok:
				marker = core.ExecutionEvent{RunID: ev.RunID, Kind: core.EventEventsDropped, Seq: head.Seq, Dropped: 1}
				ok = true
				dropped++
			default:
				marker.Dropped++
				dropped++
			}
		}
		q.ring = append([]core.ExecutionEvent{marker}, q.ring...)
	}
	q.ring = append(q.ring, ev)
	q.cond.Signal()
	return dropped
}

// pop blocks until an event is available or the queue is closed and empty.
func (q *eventQueue) pop() (core.ExecutionEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.ring) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.ring) == 0 {
		return core.ExecutionEvent{}, false
	}
	ev := q.ring[0]
	q.ring = q.ring[1:]
	return ev, true
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
