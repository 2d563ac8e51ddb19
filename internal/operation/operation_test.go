package operation

import (
	"testing"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/store"
)

func TestAddOperationAndDefiningClauses(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)

	if err := m.AddOperation(And, 3, clause.Lit(1), clause.Lit(2), 1); err != nil {
		t.Fatalf("AddOperation(AND) failed: %v", err)
	}
	if s.LiveClauseCount() != 3 {
		t.Fatalf("expected 3 defining clauses live, got %d", s.LiveClauseCount())
	}
	c, err := s.Find(1)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equal(clauseOf(t, 3, -1, -2)) {
		t.Errorf("defining clause 0 = %v, want (3 -1 -2)", c)
	}
}

func TestAddOperationRejectsReusedVar(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)
	must(t, m.AddOperation(Or, 3, clause.Lit(1), clause.Lit(2), 1))
	if err := m.AddOperation(And, 3, clause.Lit(1), clause.Lit(-2), 4); err == nil {
		t.Error("expected error reusing out-variable")
	}
}

func TestAddOperationRejectsInputVarCollision(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)
	if err := m.AddOperation(And, 2, clause.Lit(1), clause.Lit(-1), 1); err == nil {
		t.Error("expected error defining an input variable as an out-variable")
	}
}

func TestAndRequiresDisjointDependencySets(t *testing.T) {
	s := store.New(3, false)
	m := New(s, 3)
	// 4 = 1 AND 2: disjoint, ok.
	must(t, m.AddOperation(And, 4, clause.Lit(1), clause.Lit(2), 1))
	// 5 = 4 AND 3: depSet(4) = {1,2}, depSet(3) = {3}: disjoint, ok.
	must(t, m.AddOperation(And, 5, clause.Lit(4), clause.Lit(3), 4))
	// 6 = 4 AND 2: depSet(4) = {1,2} overlaps depSet(2) = {2}: must fail.
	if err := m.AddOperation(And, 6, clause.Lit(4), clause.Lit(2), 7); err == nil {
		t.Error("expected disjointness failure")
	}
}

func TestOrAllowsOverlappingDependencySets(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)
	if err := m.AddOperation(Or, 3, clause.Lit(1), clause.Lit(1), 1); err != nil {
		t.Fatalf("OR should not enforce disjointness: %v", err)
	}
}

func TestDeleteOperation(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)
	must(t, m.AddOperation(And, 3, clause.Lit(1), clause.Lit(2), 1))
	if err := m.DeleteOperation(3); err != nil {
		t.Fatalf("DeleteOperation failed: %v", err)
	}
	if s.LiveClauseCount() != 0 {
		t.Errorf("expected all 3 defining clauses deleted, got %d live", s.LiveClauseCount())
	}
	if err := m.DeleteOperation(3); err == nil {
		t.Error("expected error deleting already-deleted operation")
	}
}

func TestEntriesReturnsCreationOrder(t *testing.T) {
	s := store.New(3, false)
	m := New(s, 3)
	must(t, m.AddOperation(And, 4, clause.Lit(1), clause.Lit(2), 1))
	must(t, m.AddOperation(Or, 5, clause.Lit(3), clause.Lit(3), 4))

	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() returned %d records, want 2", len(entries))
	}
	if entries[0].OutVar != 4 || entries[0].Kind != And || entries[0].BaseID != 1 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].OutVar != 5 || entries[1].Kind != Or || entries[1].BaseID != 4 {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestCountUnweightedAnd(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)
	must(t, m.AddOperation(And, 3, clause.Lit(1), clause.Lit(2), 1))
	// both vars unweighted (0.5 each): w(3) = 0.25, beta = 2^2 = 4 -> count = 1.
	got, err := m.Count(clause.Lit(3), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("Count = %v, want 1", got)
	}
}

func TestCountWeighted(t *testing.T) {
	s := store.New(2, false)
	m := New(s, 2)
	must(t, m.AddOperation(Or, 3, clause.Lit(1), clause.Lit(2), 1))
	weights := map[int32]float64{1: 0.5, 2: 0.5}
	got, err := m.Count(clause.Lit(3), weights)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.5 + 0.5 // both weighted, beta = 2^0 = 1
	if got != want {
		t.Errorf("Count = %v, want %v", got, want)
	}
}

func clauseOf(t *testing.T, lits ...clause.Lit) clause.Clause {
	t.Helper()
	c, ok := clause.Clean(lits)
	if !ok {
		t.Fatalf("tautology in fixture %v", lits)
	}
	return c
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
