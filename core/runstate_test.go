package core

import "testing"

func TestRunState_TerminalStatesAreSinks(t *testing.T) {
	terminals := []RunState{RunCompleted, RunFailed, RunAbortedLoop, RunAbortedTimeout, RunCancelled}
	for _, s := range terminals {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		for _, next := range []RunState{RunPending, RunRunning, RunCompleted, RunFailed} {
			if s.CanTransition(next) {
				t.Errorf("%s -> %s should be illegal", s, next)
			}
		}
	}
}

func TestRunState_LegalEdges(t *testing.T) {
	if !RunPending.CanTransition(RunRunning) {
		t.Error("PENDING -> RUNNING should be legal")
	}
	if RunPending.CanTransition(RunCompleted) {
		t.Error("PENDING -> COMPLETED should be illegal")
	}
	for _, term := range []RunState{RunCompleted, RunFailed, RunAbortedLoop, RunAbortedTimeout, RunCancelled} {
		if !RunRunning.CanTransition(term) {
			t.Errorf("RUNNING -> %s should be legal", term)
		}
	}
	if RunRunning.CanTransition(RunPending) {
		t.Error("RUNNING -> PENDING should be illegal")
	}
}

func TestRunState_String(t *testing.T) {
	if RunAbortedLoop.String() != "ABORTED_LOOP" {
		t.Fatalf("String = %s", RunAbortedLoop)
	}
	if RunState(99).String() != "UNKNOWN" {
		t.Fatal("unknown state label")
	}
}
