package reasoner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/oracle"
	"github.com/rebryant/crat-check/internal/store"
)

func cl(t *testing.T, lits ...clause.Lit) clause.Clause {
	t.Helper()
	c, ok := clause.Clean(lits)
	if !ok {
		t.Fatalf("tautology in fixture %v", lits)
	}
	return c
}

func newLocalFixture(t *testing.T) (*store.Store, *Local) {
	s := store.New(2, false)
	if err := s.Add(cl(t, -1, 2), 1); err != nil {
		t.Fatal(err)
	}
	o := oracle.New(2)
	o.AddClause(cl(t, -1, 2))
	return s, NewLocal(s, o)
}

func TestLocalIsUnitUnderAssumption(t *testing.T) {
	_, r := newLocalFixture(t)
	r.Push(clause.Lit(1))
	assert.True(t, r.IsUnit(clause.Lit(2)), "1 -> 2 should force 2")
	r.Pop()
	assert.False(t, r.IsUnit(clause.Lit(2)), "without the assumption 2 isn't forced")
}

func TestLocalRupCheck(t *testing.T) {
	s := store.New(2, false)
	must(t, s.Add(cl(t, 1), 1))
	must(t, s.Add(cl(t, -1, 2), 2))
	o := oracle.New(2)
	r := NewLocal(s, o)
	// clause (2) RUP-holds: assume ¬2; clause (1) forces 1, then (-1 2) is
	// falsified on both literals -> conflict.
	assert.True(t, r.RupCheck(cl(t, 2)))
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLocalJustifyUnitAlreadyUnit(t *testing.T) {
	_, r := newLocalFixture(t)
	r.Push(clause.Lit(1))
	clauses, err := r.JustifyUnit(clause.Lit(2))
	assert.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestSATOnlyMatchesLocalOnForcedUnit(t *testing.T) {
	s := store.New(2, false)
	if err := s.Add(cl(t, -1, 2), 1); err != nil {
		t.Fatal(err)
	}
	o := oracle.New(2)
	o.AddClause(cl(t, -1, 2))
	r := NewSATOnly(s, o)
	r.Push(clause.Lit(1))
	assert.True(t, r.IsUnit(clause.Lit(2)))
	local := NewLocal(s, o)
	local.Push(clause.Lit(1))
	assert.Equal(t, local.IsUnit(clause.Lit(2)), r.IsUnit(clause.Lit(2)))
}
