package core

import (
	"errors"
	"fmt"
	"sync"
)

// Registration errors.
var (
	ErrEmptyWorkerName = errors.New("worker name must not be empty")
	ErrDuplicateWorker = errors.New("worker already registered")
	ErrWorkerNotFound  = errors.New("worker not found")
)

// Registry maps worker names and capability tags to registered workers.
// Registration order is significant: when a handoff targets a capability
// shared by several workers, the first registered match wins.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Worker
	order  []Worker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Worker)}
}

// Register adds a worker. Duplicate names are rejected so resolution stays
// unambiguous.
func (r *Registry) Register(w Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.Name() == "" {
		return ErrEmptyWorkerName
	}
	if _, exists := r.byName[w.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateWorker, w.Name())
	}
	r.byName[w.Name()] = w
	r.order = append(r.order, w)
	return nil
}

// Get returns a worker by exact name.
func (r *Registry) Get(name string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byName[name]
	return w, ok
}

// Resolve finds the worker for a handoff target: exact name first, then
// capability tag in registration order.
func (r *Registry) Resolve(target string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.byName[target]; ok {
		return w, true
	}
	for _, w := range r.order {
		if w.Capability() == target {
			return w, true
		}
	}
	return nil, false
}

// ByCapability returns all workers declaring the tag, in registration order.
func (r *Registry) ByCapability(tag string) []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Worker
	for _, w := range r.order {
		if w.Capability() == tag {
			out = append(out, w)
		}
	}
	return out
}

// Names returns the registered worker names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	for i, w := range r.order {
		names[i] = w.Name()
	}
	return names
}
