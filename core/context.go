package core

import (
	"sync"
	"time"
)

// Finding is a single worker-contributed entry in the shared context.
// Insertion order is preserved so replays are deterministic.
type Finding struct {
	Key    string
	Value  any
	Worker string
}

// Diagnostic is a non-fatal message accumulated during a run.
type Diagnostic struct {
	Worker  string
	Message string
	Time    time.Time
}

// SharedContext is the mutable state visible across a run's workers. It is
// owned by exactly one coordinator run; the coordinator guarantees that only
// one worker mutates it at a time, and mutations arrive as a ContextView
// delta applied as a whole. The mutex only guards against observers (the
// run handle) reading concurrently with the control loop.
//
// Invariants:
//   - Version increases by one for every applied finding and for the
//     terminal result. Diagnostics are advisory and do not count as state
//     mutations: a timed-out invocation leaves the version untouched even
//     though its failure is recorded as a diagnostic.
//   - The terminal-result slot, once set, is never overwritten.
type SharedContext struct {
	request string

	mu          sync.RWMutex
	findings    []Finding
	index       map[string]int
	version     uint64
	result      string
	resultSet   bool
	diagnostics []Diagnostic
}

// NewSharedContext creates a context at version 0 for the given request.
func NewSharedContext(request string) *SharedContext {
	return &SharedContext{request: request, index: map[string]int{}}
}

// Request returns the original request text.
func (s *SharedContext) Request() string { return s.request }

// Version returns the mutation counter.
func (s *SharedContext) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Finding returns the value stored under key.
func (s *SharedContext) Finding(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.findings[i].Value, true
}

// Findings returns a defensive copy of all findings in insertion order.
func (s *SharedContext) Findings() []Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// Result returns the terminal result and whether it has been set.
func (s *SharedContext) Result() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.resultSet
}

// SetResult writes the terminal-result slot. The first write wins; later
// calls are no-ops returning false.
func (s *SharedContext) SetResult(result string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resultSet {
		return false
	}
	s.result = result
	s.resultSet = true
	s.version++
	return true
}

// AddDiagnostic appends a non-fatal diagnostic message.
func (s *SharedContext) AddDiagnostic(worker, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, Diagnostic{Worker: worker, Message: message, Time: time.Now().UTC()})
}

// Diagnostics returns a defensive copy of accumulated diagnostics.
func (s *SharedContext) Diagnostics() []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// NewView creates a scoped read/write handle for one worker invocation.
// Mutations stage in the view until the coordinator applies them with Apply;
// a timed-out or failed invocation's view is simply discarded, leaving the
// context untouched.
func (s *SharedContext) NewView(worker string) *ContextView {
	return &ContextView{parent: s, worker: worker}
}

// Apply commits a view's staged findings and diagnostics as one atomic
// delta and returns the diagnostics that were committed (so the caller can
// emit one event per diagnostic).
func (s *SharedContext) Apply(v *ContextView) []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range v.staged {
		if i, ok := s.index[f.Key]; ok {
			s.findings[i] = f
		} else {
			s.index[f.Key] = len(s.findings)
			s.findings = append(s.findings, f)
		}
		s.version++
	}
	committed := make([]Diagnostic, len(v.diags))
	copy(committed, v.diags)
	s.diagnostics = append(s.diagnostics, v.diags...)
	v.staged = nil
	v.diags = nil
	return committed
}

// ContextView is the restricted handle a worker mutates during a single
// invocation. Reads see staged values first, then the committed context.
// A view must not outlive its invocation.
type ContextView struct {
	parent *SharedContext
	worker string
	staged []Finding
	diags  []Diagnostic
}

// Worker returns the name of the worker the view was issued to.
func (v *ContextView) Worker() string { return v.worker }

// Request returns the original request text.
func (v *ContextView) Request() string { return v.parent.Request() }

// Finding reads a value, preferring the staged delta over committed state.
func (v *ContextView) Finding(key string) (any, bool) {
	for i := len(v.staged) - 1; i >= 0; i-- {
		if v.staged[i].Key == key {
			return v.staged[i].Value, true
		}
	}
	return v.parent.Finding(key)
}

// Findings returns the committed findings; staged entries are not included
// since they are not yet part of the run's state.
func (v *ContextView) Findings() []Finding { return v.parent.Findings() }

// Diagnostics returns the committed diagnostics.
func (v *ContextView) Diagnostics() []Diagnostic { return v.parent.Diagnostics() }

// SetFinding stages a key/value contribution attributed to this worker.
func (v *ContextView) SetFinding(key string, value any) {
	v.staged = append(v.staged, Finding{Key: key, Value: value, Worker: v.worker})
}

// AddDiagnostic stages a non-fatal diagnostic message.
func (v *ContextView) AddDiagnostic(message string) {
	v.diags = append(v.diags, Diagnostic{Worker: v.worker, Message: message, Time: time.Now().UTC()})
}
