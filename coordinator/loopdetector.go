package coordinator

import "github.com/lumenlake/swarmsql/core"

// LoopDetector flags unproductive cycling among workers. It inspects the
// trailing window of the handoff ledger: a loop is declared when the window
// is full and the number of distinct resolved targets in it falls below the
// configured minimum. Short back-and-forth (a clarifying question and its
// answer) passes; sustained ping-pong or self-handoff storms do not. The
// detector never looks at task semantics.
type LoopDetector struct {
	window    int
	minUnique int
}

// NewLoopDetector creates a detector with window size W and minimum
// distinct-target count U.
func NewLoopDetector(window, minUnique int) *LoopDetector {
	return &LoopDetector{window: window, minUnique: minUnique}
}

// Looping reports whether the ledger's trailing window shows a loop. With
// fewer than W records no verdict is possible and the run continues.
func (d *LoopDetector) Looping(ledger *core.HandoffLedger) bool {
	if ledger.Len() < d.window {
		return false
	}
	distinct := map[string]struct{}{}
	for _, rec := range ledger.Window(d.window) {
		distinct[rec.To] = struct{}{}
	}
	return len(distinct) < d.minUnique
}
