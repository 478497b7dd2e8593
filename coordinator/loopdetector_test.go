package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenlake/swarmsql/core"
)

func ledgerWithTargets(targets ...string) *core.HandoffLedger {
	l := core.NewHandoffLedger()
	for _, to := range targets {
		l.Append("src", to, to, "")
	}
	return l
}

func TestLoopDetector_NoVerdictBelowWindow(t *testing.T) {
	d := NewLoopDetector(8, 3)
	// 7 handoffs between just two workers: window not yet full.
	l := ledgerWithTargets("a", "b", "a", "b", "a", "b", "a")
	assert.False(t, d.Looping(l))
}

func TestLoopDetector_PingPongTripsAtFullWindow(t *testing.T) {
	d := NewLoopDetector(8, 3)
	l := ledgerWithTargets("a", "b", "a", "b", "a", "b", "a", "b")
	assert.True(t, d.Looping(l))
}

func TestLoopDetector_SelfHandoffStormTrips(t *testing.T) {
	d := NewLoopDetector(8, 3)
	l := ledgerWithTargets("a", "a", "a", "a", "a", "a", "a", "a")
	assert.True(t, d.Looping(l))
}

func TestLoopDetector_DiverseWindowPasses(t *testing.T) {
	d := NewLoopDetector(8, 3)
	l := ledgerWithTargets("a", "b", "c", "a", "b", "c", "a", "b")
	assert.False(t, d.Looping(l))
}

func TestLoopDetector_OnlyTrailingWindowCounts(t *testing.T) {
	d := NewLoopDetector(4, 3)
	// Early diversity, then the last 4 records collapse to two targets.
	l := ledgerWithTargets("a", "b", "c", "d", "a", "b", "a", "b")
	assert.True(t, d.Looping(l))

	// And the reverse: an old ping-pong that recovered.
	l2 := ledgerWithTargets("a", "b", "a", "b", "a", "c", "d", "e")
	assert.False(t, d.Looping(l2))
}
