// Package operation implements the operation manager: bookkeeping for
// extension variables (AND/OR nodes), their dependency-set invariants, and
// the weighted/unweighted model count derived from them.
package operation

import (
	"math"

	"github.com/pkg/errors"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/rup"
	"github.com/rebryant/crat-check/internal/store"
)

// Kind distinguishes the two node shapes an operation can define.
type Kind int

const (
	And Kind = iota
	Or
)

func (k Kind) String() string {
	if k == And {
		return "and"
	}
	return "or"
}

// entry is the bookkeeping record for one extension variable.
type entry struct {
	kind    Kind
	l1, l2  clause.Lit
	baseID  uint64
	depSet  map[int32]struct{}
	deleted bool
}

// Manager is the operation manager of spec §4.D. It owns no clauses itself:
// all defining clauses live in the backing store.Store.
type Manager struct {
	store         *store.Store
	inputVarCount int32
	entries       map[int32]*entry
	order         []int32 // out-vars in ascending creation order
	inputDepCache map[int32]map[int32]struct{}
}

// New creates an operation manager over s, where inputVarCount is the
// number of variables in the input CNF (variables 1..inputVarCount carry
// themselves as their own singleton dependency set).
func New(s *store.Store, inputVarCount int32) *Manager {
	return &Manager{
		store:         s,
		inputVarCount: inputVarCount,
		entries:       make(map[int32]*entry),
		inputDepCache: make(map[int32]map[int32]struct{}),
	}
}

// NextClauseID returns the smallest clause id the backing store will
// currently accept — the base id a caller should use for the next
// operation's three defining clauses.
func (m *Manager) NextClauseID() uint64 {
	return m.store.NextID()
}

// DependencySet returns the set of input variables that v's truth value
// depends on. For an input variable this is {v}; for an extension variable
// it is the union of its two inputs' dependency sets.
func (m *Manager) DependencySet(v int32) (map[int32]struct{}, error) {
	if v <= m.inputVarCount {
		if set, ok := m.inputDepCache[v]; ok {
			return set, nil
		}
		set := map[int32]struct{}{v: {}}
		m.inputDepCache[v] = set
		return set, nil
	}
	e, ok := m.entries[v]
	if !ok {
		return nil, errors.Errorf("variable %d is not defined", v)
	}
	d1, err := m.DependencySet(e.l1.Var())
	if err != nil {
		return nil, err
	}
	d2, err := m.DependencySet(e.l2.Var())
	if err != nil {
		return nil, err
	}
	return union(d1, d2), nil
}

func union(a, b map[int32]struct{}) map[int32]struct{} {
	out := make(map[int32]struct{}, len(a)+len(b))
	for v := range a {
		out[v] = struct{}{}
	}
	for v := range b {
		out[v] = struct{}{}
	}
	return out
}

func disjoint(a, b map[int32]struct{}) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for v := range small {
		if _, ok := big[v]; ok {
			return false
		}
	}
	return true
}

// AddOperation records a new extension variable outVar defined as
// l1 ⊕ l2 (⊕ = kind), writing its three defining clauses to the store at
// ids baseID..baseID+2. For AND, l1 and l2's dependency sets must be
// disjoint (decomposability).
func (m *Manager) AddOperation(kind Kind, outVar int32, l1, l2 clause.Lit, baseID uint64) error {
	if outVar <= m.inputVarCount {
		return errors.Errorf("out-variable %d collides with an input variable", outVar)
	}
	if _, ok := m.entries[outVar]; ok {
		return errors.Errorf("out-variable %d already defined", outVar)
	}

	d1, err := m.DependencySet(l1.Var())
	if err != nil {
		return errors.Wrap(err, "operand 1")
	}
	d2, err := m.DependencySet(l2.Var())
	if err != nil {
		return errors.Wrap(err, "operand 2")
	}
	if kind == And && !disjoint(d1, d2) {
		return errors.Errorf("Dependency sets of conjunction operation inputs %d and %d are not disjoint", l1, l2)
	}

	o := clause.Lit(outVar)
	var c0, c1, c2 clause.Clause
	var ok0, ok1, ok2 bool
	switch kind {
	case And:
		c0, ok0 = clause.Clean([]clause.Lit{o, -l1, -l2})
		c1, ok1 = clause.Clean([]clause.Lit{-o, l1})
		c2, ok2 = clause.Clean([]clause.Lit{-o, l2})
	case Or:
		c0, ok0 = clause.Clean([]clause.Lit{-o, l1, l2})
		c1, ok1 = clause.Clean([]clause.Lit{o, -l1})
		c2, ok2 = clause.Clean([]clause.Lit{o, -l2})
	}
	if !ok0 || !ok1 || !ok2 {
		return errors.Errorf("defining clauses for variable %d are tautological", outVar)
	}
	if err := m.store.Add(c0, baseID); err != nil {
		return errors.Wrap(err, "defining clause 0")
	}
	if err := m.store.Add(c1, baseID+1); err != nil {
		return errors.Wrap(err, "defining clause 1")
	}
	if err := m.store.Add(c2, baseID+2); err != nil {
		return errors.Wrap(err, "defining clause 2")
	}

	e := &entry{kind: kind, l1: l1, l2: l2, baseID: baseID}
	m.entries[outVar] = e
	m.order = append(m.order, outVar)
	depSet, err := m.DependencySet(outVar)
	if err != nil {
		return err
	}
	e.depSet = depSet
	return nil
}

// OpRecord is a read-only view of one recorded operation, for callers that
// replay the full operation history (the generator's proof-stream emitter).
type OpRecord struct {
	OutVar int32
	Kind   Kind
	L1, L2 clause.Lit
	BaseID uint64
}

// Entries returns every operation ever added, in creation order. Deleted
// operations are included; check DeleteOperation's own bookkeeping if a
// caller needs to distinguish them (not currently exposed, since no caller
// needs it yet).
func (m *Manager) Entries() []OpRecord {
	out := make([]OpRecord, 0, len(m.order))
	for _, v := range m.order {
		e := m.entries[v]
		out = append(out, OpRecord{OutVar: v, Kind: e.kind, L1: e.l1, L2: e.l2, BaseID: e.baseID})
	}
	return out
}

// CheckDisjunction verifies, via RUP, that l1 ∧ l2 is unsatisfiable —
// the determinism precondition for treating l1 ∨ l2 as an additive OR.
func (m *Manager) CheckDisjunction(l1, l2 clause.Lit, hints []uint64) error {
	empty, ok := clause.Clean([]clause.Lit{-l1, -l2})
	if !ok {
		// l1 == -l2: a tautology here means the two branches are
		// complementary and always disjoint.
		return nil
	}
	if _, err := rup.CheckHinted(m.store, empty, hints); err != nil {
		return errors.Wrap(err, "OR children are not logically disjoint")
	}
	return nil
}

// DeleteOperation removes the three defining clauses of outVar. Per
// spec.md §4.D, a partial failure can leave the first deletion already
// applied; that is documented behavior, not corrected here.
func (m *Manager) DeleteOperation(outVar int32) error {
	e, ok := m.entries[outVar]
	if !ok {
		return errors.Errorf("variable %d is not a defined operation", outVar)
	}
	if e.deleted {
		return errors.Errorf("variable %d already deleted", outVar)
	}
	if err := m.store.Delete(e.baseID); err != nil {
		return errors.Wrap(err, "defining clause 0")
	}
	if err := m.store.Delete(e.baseID + 1); err != nil {
		return errors.Wrap(err, "defining clause 1")
	}
	if err := m.store.Delete(e.baseID + 2); err != nil {
		return errors.Wrap(err, "defining clause 2")
	}
	e.deleted = true
	return nil
}

// Count computes the (weighted) model count of root, iterating extension
// variables in ascending id order — topological, since every operation
// only references previously-defined variables. weights maps a variable to
// its weight in [0,1]; variables absent from weights are unweighted and
// contribute a factor of 2 each via beta.
func (m *Manager) Count(root clause.Lit, weights map[int32]float64) (float64, error) {
	val := make(map[int32]float64, len(m.order)+int(m.inputVarCount))
	unweightedVars := 0
	for v := int32(1); v <= m.inputVarCount; v++ {
		if w, ok := weights[v]; ok {
			val[v] = w
		} else {
			val[v] = 0.5
			unweightedVars++
		}
	}
	for _, v := range m.order {
		e := m.entries[v]
		w1 := litValue(val, e.l1)
		w2 := litValue(val, e.l2)
		switch e.kind {
		case And:
			val[v] = w1 * w2
		case Or:
			val[v] = w1 + w2
		}
	}
	beta := math.Pow(2, float64(unweightedVars))
	return litValue(val, root) * beta, nil
}

func litValue(val map[int32]float64, l clause.Lit) float64 {
	w := val[l.Var()]
	if l < 0 {
		return 1 - w
	}
	return w
}
