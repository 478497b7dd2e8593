package core

import (
	"sync"
	"time"
)

// HandoffRecord documents one control transfer. Records are immutable once
// appended; Target is the worker's requested destination (name or
// capability tag) while To is the resolved worker name.
type HandoffRecord struct {
	Seq       int
	From      string
	Target    string
	To        string
	Reason    string
	Timestamp time.Time
}

// HandoffLedger is the append-only history of handoffs within a run, used
// for loop detection and audit. It is created at run start and released
// with the run; there is no cross-run persistence.
type HandoffLedger struct {
	mu      sync.RWMutex
	records []HandoffRecord
}

// NewHandoffLedger creates an empty ledger.
func NewHandoffLedger() *HandoffLedger { return &HandoffLedger{} }

// Append records a handoff, assigning the next sequence number, and returns
// the stored record.
func (l *HandoffLedger) Append(from, target, to, reason string) HandoffRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := HandoffRecord{
		Seq:       len(l.records),
		From:      from,
		Target:    target,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	l.records = append(l.records, rec)
	return rec
}

// Len returns the number of recorded handoffs.
func (l *HandoffLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a defensive copy of the full history.
func (l *HandoffLedger) Records() []HandoffRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]HandoffRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Window returns a copy of the trailing n records (fewer if the ledger is
// shorter).
func (l *HandoffLedger) Window(n int) []HandoffRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.records) {
		n = len(l.records)
	}
	out := make([]HandoffRecord, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}
