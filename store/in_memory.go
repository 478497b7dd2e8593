// Package store persists terminal run records for later inspection: audit
// of handoff chains, replay of event logs, and answering "what did run X
// conclude" after the handle is gone.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lumenlake/swarmsql/core"
)

// RunRecord is the durable snapshot of one finished run.
type RunRecord struct {
	RunID      string
	Request    string
	State      core.RunState
	Reason     string
	Result     string
	HasResult  bool
	Handoffs   []core.HandoffRecord
	FinishedAt time.Time
}

// Store persists terminal run records.
type Store interface {
	Save(rec RunRecord) error
	Get(runID string) (RunRecord, error)
	List() ([]RunRecord, error)
}

// InMemoryStore is a volatile Store implementation keeping records in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Records are copied on the way in and out
// to prevent external mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]RunRecord
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory run store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]RunRecord)}
}

// Save stores a copy of the record, overwriting any previous snapshot of the
// same run.
func (s *InMemoryStore) Save(rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run record missing run id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RunID] = cloneRecord(rec)
	return nil
}

// Get returns the record for a run id.
func (s *InMemoryStore) Get(runID string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[runID]
	if !ok {
		return RunRecord{}, fmt.Errorf("run %s not found", runID)
	}
	return cloneRecord(rec), nil
}

// List returns all records ordered by finish time.
func (s *InMemoryStore) List() ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].FinishedAt.Before(out[b].FinishedAt) })
	return out, nil
}

func cloneRecord(rec RunRecord) RunRecord {
	out := rec
	out.Handoffs = make([]core.HandoffRecord, len(rec.Handoffs))
	copy(out.Handoffs, rec.Handoffs)
	return out
}
