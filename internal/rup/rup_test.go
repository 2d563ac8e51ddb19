package rup

import (
	"testing"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/store"
)

func mustClause(t *testing.T, lits ...clause.Lit) clause.Clause {
	t.Helper()
	c, ok := clause.Clean(lits)
	if !ok {
		t.Fatalf("tautology in fixture %v", lits)
	}
	return c
}

func TestCheckHintedSucceedsOnConflict(t *testing.T) {
	// clause under test c = (1 2); assume U = {-1,-2}.
	// hint 1 = (1 -3): 1 is falsified by U, -3 is unassigned -> forces -3.
	// hint 2 = (3 2): both 3 and 2 now falsified -> conflict.
	s := store.New(3, false)
	must(t, s.Add(mustClause(t, 1, -3), 1))
	must(t, s.Add(mustClause(t, 3, 2), 2))

	c := mustClause(t, 1, 2)
	if _, err := CheckHinted(s, c, []uint64{1, 2}); err != nil {
		t.Fatalf("expected RUP success, got %v", err)
	}
}

func TestCheckHintedFailsWhenLiteralAlreadyTrue(t *testing.T) {
	s := store.New(3, false)
	// ¬c for c=(1) is {-1}; hint clause containing -1 has a literal already true.
	must(t, s.Add(mustClause(t, -1, 2), 1))
	c := mustClause(t, 1)
	if _, err := CheckHinted(s, c, []uint64{1}); err == nil {
		t.Error("expected failure: literal already true")
	}
}

func TestCheckHintedFailsWithInsufficientHint(t *testing.T) {
	s := store.New(3, false)
	must(t, s.Add(mustClause(t, 1, 2, 3), 1))
	c := mustClause(t, 4)
	if _, err := CheckHinted(s, c, []uint64{1}); err == nil {
		t.Error("expected failure: more than one unassigned literal")
	}
}

func TestCheckHintedFailsWhenExhausted(t *testing.T) {
	s := store.New(3, false)
	must(t, s.Add(mustClause(t, 1, 2), 1))
	c := mustClause(t, 1)
	if _, err := CheckHinted(s, c, []uint64{1}); err == nil {
		t.Error("expected failure: hint list exhausted without conflict")
	}
}

func TestDeriveHintsFindsConflictChain(t *testing.T) {
	// Same derivation as TestCheckHintedSucceedsOnConflict, but discovered
	// rather than supplied.
	s := store.New(3, false)
	must(t, s.Add(mustClause(t, 1, -3), 1))
	must(t, s.Add(mustClause(t, 3, 2), 2))

	c := mustClause(t, 1, 2)
	hints, err := DeriveHints(s.Entries(), c)
	if err != nil {
		t.Fatalf("DeriveHints failed: %v", err)
	}
	if _, err := CheckHinted(s, c, hints); err != nil {
		t.Errorf("derived hints %v did not verify: %v", hints, err)
	}
}

func TestDeriveHintsFailsWithoutConflict(t *testing.T) {
	s := store.New(3, false)
	must(t, s.Add(mustClause(t, 1, 2, 3), 1))
	c := mustClause(t, 4)
	if _, err := DeriveHints(s.Entries(), c); err == nil {
		t.Error("expected failure: no conflict reachable")
	}
}

func TestDeriveHintsIgnoresDeletedEntries(t *testing.T) {
	s := store.New(3, false)
	must(t, s.Add(mustClause(t, 1, -3), 1))
	must(t, s.Add(mustClause(t, 3, 2), 2))
	must(t, s.Delete(2))

	c := mustClause(t, 1, 2)
	if _, err := DeriveHints(s.Entries(), c); err == nil {
		t.Error("expected failure once the conflict-forcing clause is deleted")
	}
}

func TestCheckUnhintedAlwaysSucceeds(t *testing.T) {
	r := CheckUnhinted()
	if r.History == "" {
		t.Error("expected a diagnostic history string")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
