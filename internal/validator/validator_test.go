package validator

import (
	"testing"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/oracle"
	"github.com/rebryant/crat-check/internal/operation"
	"github.com/rebryant/crat-check/internal/reasoner"
	"github.com/rebryant/crat-check/internal/schema"
	"github.com/rebryant/crat-check/internal/store"
)

const tautVar = int32(1 << 30)

// fakeSink records every clause added and assigns ascending ids through
// the real store, so Validator output can be checked against store state.
type fakeSink struct {
	s *store.Store
}

func (f *fakeSink) AddClause(lits []clause.Lit) (uint64, error) {
	c, ok := clause.Clean(lits)
	if !ok {
		return 0, nil // tautological assertion clause; nothing to store
	}
	id := f.s.NextID()
	if err := f.s.Add(c, id); err != nil {
		return 0, err
	}
	return id, nil
}

func TestValidateUpAndNode(t *testing.T) {
	// Input (1 2), (1 -2), (-1 2): the only model sets 1 and 2, so the root
	// 1 AND 2 is implied. Unit 1 is RUP but not yet propagated, so the walk
	// emits a justification clause for it.
	s := store.New(3, false)
	for i, lits := range [][]clause.Lit{{1, 2}, {1, -2}, {-1, 2}} {
		c, _ := clause.Clean(lits)
		if err := s.Add(c, uint64(i+1)); err != nil {
			t.Fatal(err)
		}
	}
	ops := operation.New(s, 2)
	sch := schema.New(ops, 2, tautVar)

	root, err := sch.MkAnd(clause.Lit(1), clause.Lit(2))
	if err != nil {
		t.Fatal(err)
	}

	o := oracle.New(2)
	r := reasoner.NewLocal(s, o)
	sink := &fakeSink{s: s}
	v := New(sch, r, sink, s)

	before := s.LiveClauseCount()
	extraUnits, err := v.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	after := s.LiveClauseCount()
	if after <= before {
		t.Errorf("expected validation to add justification clauses: before=%d after=%d", before, after)
	}
	_ = extraUnits
	_ = root
}

func TestValidateUpRejectsFreeOr(t *testing.T) {
	// Input clause #1 (-1 -2) makes 1 and 2 disjoint, so MkOr accepts it
	// as the disjointness hint.
	s := store.New(1, false)
	c, _ := clause.Clean([]clause.Lit{-1, -2})
	if err := s.Add(c, 1); err != nil {
		t.Fatal(err)
	}
	ops := operation.New(s, 2)
	sch := schema.New(ops, 2, tautVar)

	// An OR built directly (not through MkIte) never gets IteVar set.
	if _, err := sch.MkOr(clause.Lit(1), clause.Lit(2), []uint64{1}); err != nil {
		t.Fatalf("MkOr failed: %v", err)
	}

	o := oracle.New(2)
	r := reasoner.NewLocal(s, o)
	sink := &fakeSink{s: s}
	v := New(sch, r, sink, s)
	if _, err := v.Run(); err == nil {
		t.Error("expected validation to reject an OR node with no iteVar")
	}
}
