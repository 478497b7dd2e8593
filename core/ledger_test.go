package core

import "testing"

func TestHandoffLedger_AppendAssignsSequence(t *testing.T) {
	l := NewHandoffLedger()
	r0 := l.Append("lead", "catalog", "dataexpert", "needs table metadata")
	r1 := l.Append("dataexpert", "sql", "sqlrunner", "tables identified")
	if r0.Seq != 0 || r1.Seq != 1 {
		t.Fatalf("sequence numbers = %d, %d", r0.Seq, r1.Seq)
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
}

func TestHandoffLedger_RecordsAreDefensiveCopies(t *testing.T) {
	l := NewHandoffLedger()
	l.Append("a", "b", "b", "r")
	recs := l.Records()
	recs[0].To = "mutated"
	if l.Records()[0].To != "b" {
		t.Fatal("ledger records must be immutable from outside")
	}
}

func TestHandoffLedger_Window(t *testing.T) {
	l := NewHandoffLedger()
	for i := 0; i < 5; i++ {
		l.Append("a", "b", "b", "r")
	}
	if got := len(l.Window(3)); got != 3 {
		t.Fatalf("Window(3) length = %d", got)
	}
	if got := len(l.Window(10)); got != 5 {
		t.Fatalf("Window(10) on 5 records length = %d", got)
	}
	w := l.Window(2)
	if w[0].Seq != 3 || w[1].Seq != 4 {
		t.Fatalf("trailing window seqs = %d, %d", w[0].Seq, w[1].Seq)
	}
}
