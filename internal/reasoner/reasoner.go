// Package reasoner implements the schema-side justification query
// interface: isUnit, rupCheck, justifyUnit over the live clause set plus a
// SAT oracle, used by the validator to emit the clauses that justify each
// extension literal under its context.
package reasoner

import (
	"github.com/pkg/errors"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/oracle"
	"github.com/rebryant/crat-check/internal/store"
)

// Reasoner is the contract of spec.md §4.E. Push/Pop form an epoch stack
// that the validator's post-order walk mirrors exactly: one Push of the
// selector literal per branch of an ITE-derived OR node, one matching Pop
// on return. Recursion into an AND node's children pushes nothing.
type Reasoner interface {
	Push(lits ...clause.Lit)
	Pop()
	IsUnit(lit clause.Lit) bool
	RupCheck(c clause.Clause) bool
	JustifyUnit(lit clause.Lit) ([]clause.Clause, error)
}

// Local performs hand-rolled unit propagation over the live clause set
// with an epoched assumption trail, falling back to the oracle only for
// JustifyUnit's final solve.
type Local struct {
	store  *store.Store
	oracle oracle.Oracle
	epochs [][]clause.Lit
}

// NewLocal creates a Local reasoner over the given clause store, using o
// as the fallback oracle for JustifyUnit.
func NewLocal(s *store.Store, o oracle.Oracle) *Local {
	return &Local{store: s, oracle: o}
}

func (r *Local) Push(lits ...clause.Lit) {
	frame := make([]clause.Lit, len(lits))
	copy(frame, lits)
	r.epochs = append(r.epochs, frame)
}

func (r *Local) Pop() {
	if len(r.epochs) == 0 {
		return
	}
	r.epochs = r.epochs[:len(r.epochs)-1]
}

func (r *Local) context() []clause.Lit {
	var out []clause.Lit
	for _, frame := range r.epochs {
		out = append(out, frame...)
	}
	return out
}

// propagate runs a fixed-point unit-propagation pass over every live
// clause, starting from the current context plus extra. It returns the
// final assignment set and whether a conflict (falsified clause) arose.
func (r *Local) propagate(extra ...clause.Lit) (assigned map[clause.Lit]bool, conflict bool) {
	assigned = make(map[clause.Lit]bool)
	for _, l := range r.context() {
		assigned[l] = true
	}
	for _, l := range extra {
		assigned[l] = true
	}
	live := r.store.LiveClauses()
	for changed := true; changed; {
		changed = false
		for _, c := range live {
			satisfied := false
			nUnassigned := 0
			var unassignedLit clause.Lit
			for _, l := range c {
				if assigned[l] {
					satisfied = true
					break
				}
				if !assigned[-l] {
					nUnassigned++
					unassignedLit = l
				}
			}
			if satisfied {
				continue
			}
			if nUnassigned == 0 {
				return assigned, true
			}
			if nUnassigned == 1 && !assigned[unassignedLit] {
				assigned[unassignedLit] = true
				changed = true
			}
		}
	}
	return assigned, false
}

func (r *Local) IsUnit(lit clause.Lit) bool {
	assigned, conflict := r.propagate()
	if conflict {
		return true
	}
	return assigned[lit]
}

func (r *Local) RupCheck(c clause.Clause) bool {
	_, conflict := r.propagate(clause.Inverted([]clause.Lit(c))...)
	return conflict
}

// JustifyUnit returns the minimal clause sequence that makes lit a
// propagated unit under the current context, per spec.md §4.E's strategy:
// if already unit, nothing to emit; else try the RUP clause (¬context)∨lit;
// else fall back to the oracle, which must find context∪{¬lit} UNSAT.
// In that fallback the returned clause is (¬context)∨lit itself, accepted
// on the oracle's UNSAT answer alone: no proof core is fetched from the
// oracle, and the clause is not RUP from the live clauses.
func (r *Local) JustifyUnit(lit clause.Lit) ([]clause.Clause, error) {
	if r.IsUnit(lit) {
		return nil, nil
	}
	ctx := r.context()
	candidateLits := append(clause.Inverted(ctx), lit)
	c, ok := clause.Clean(candidateLits)
	if ok && r.RupCheck(c) {
		return []clause.Clause{c}, nil
	}
	if r.oracle == nil {
		return nil, errors.New("no oracle available to justify unit literal")
	}
	assumptions := append(append([]clause.Lit{}, ctx...), -lit)
	if r.oracle.Solve(assumptions) != oracle.Unsat {
		return nil, oracle.ErrOracleDisagreement
	}
	if !ok {
		c = clause.Clause(candidateLits)
	}
	return []clause.Clause{c}, nil
}

// Dual runs the local propagator and then the oracle's incremental
// propagate on every IsUnit query and panics if their answers differ — a
// debugging aid per spec.md §4.E, not meant for production use. RupCheck
// and JustifyUnit use the local reasoner alone.
type Dual struct {
	local  *Local
	oracle oracle.Oracle
}

// NewDual creates a Dual reasoner.
func NewDual(s *store.Store, o oracle.Oracle) *Dual {
	return &Dual{local: NewLocal(s, o), oracle: o}
}

func (r *Dual) Push(lits ...clause.Lit) { r.local.Push(lits...) }
func (r *Dual) Pop()                    { r.local.Pop() }

func (r *Dual) IsUnit(lit clause.Lit) bool {
	localAnswer := r.local.IsUnit(lit)
	outcome, forced := r.oracle.Propagate(r.local.context())
	oracleAnswer := outcome == oracle.Unsat || containsLit(forced, lit)
	if localAnswer != oracleAnswer {
		panic(errors.Errorf("reasoner disagreement on isUnit(%d): local=%v oracle=%v", lit, localAnswer, oracleAnswer))
	}
	return localAnswer
}

func (r *Dual) RupCheck(c clause.Clause) bool {
	return r.local.RupCheck(c)
}

func (r *Dual) JustifyUnit(lit clause.Lit) ([]clause.Clause, error) {
	return r.local.JustifyUnit(lit)
}

func containsLit(lits []clause.Lit, target clause.Lit) bool {
	for _, l := range lits {
		if l == target {
			return true
		}
	}
	return false
}

// SATOnly relies entirely on the oracle's incremental propagate. It caches
// the result of propagating the current context alone (the IsUnit query),
// so repeated IsUnit calls between two Push/Pop operations cost one
// Test/Untest round-trip; every Push and Pop clears the cache. Queries with
// extra assumptions (RupCheck) are not cached.
type SATOnly struct {
	store  *store.Store
	oracle oracle.Oracle
	epochs [][]clause.Lit
	cache  map[int]cacheEntry
}

type cacheEntry struct {
	outcome oracle.Outcome
	forced  []clause.Lit
}

// NewSATOnly creates a SATOnly reasoner.
func NewSATOnly(s *store.Store, o oracle.Oracle) *SATOnly {
	return &SATOnly{store: s, oracle: o, cache: make(map[int]cacheEntry)}
}

func (r *SATOnly) Push(lits ...clause.Lit) {
	frame := make([]clause.Lit, len(lits))
	copy(frame, lits)
	r.epochs = append(r.epochs, frame)
	r.cache = make(map[int]cacheEntry)
}

func (r *SATOnly) Pop() {
	if len(r.epochs) > 0 {
		r.epochs = r.epochs[:len(r.epochs)-1]
	}
	r.cache = make(map[int]cacheEntry)
}

func (r *SATOnly) context() []clause.Lit {
	var out []clause.Lit
	for _, frame := range r.epochs {
		out = append(out, frame...)
	}
	return out
}

func (r *SATOnly) propagate(extra ...clause.Lit) (oracle.Outcome, []clause.Lit) {
	key := len(extra)
	if e, ok := r.cache[key]; ok && key == 0 {
		return e.outcome, e.forced
	}
	assumptions := append(append([]clause.Lit{}, r.context()...), extra...)
	outcome, forced := r.oracle.Propagate(assumptions)
	if key == 0 {
		r.cache[key] = cacheEntry{outcome, forced}
	}
	return outcome, forced
}

func (r *SATOnly) IsUnit(lit clause.Lit) bool {
	outcome, forced := r.propagate()
	if outcome == oracle.Unsat {
		return true
	}
	return containsLit(forced, lit)
}

func (r *SATOnly) RupCheck(c clause.Clause) bool {
	outcome, _ := r.propagate(clause.Inverted([]clause.Lit(c))...)
	return outcome == oracle.Unsat
}

func (r *SATOnly) JustifyUnit(lit clause.Lit) ([]clause.Clause, error) {
	if r.IsUnit(lit) {
		return nil, nil
	}
	ctx := r.context()
	candidateLits := append(clause.Inverted(ctx), lit)
	c, ok := clause.Clean(candidateLits)
	if ok && r.RupCheck(c) {
		return []clause.Clause{c}, nil
	}
	if r.oracle.Solve(append(append([]clause.Lit{}, ctx...), -lit)) != oracle.Unsat {
		return nil, oracle.ErrOracleDisagreement
	}
	if !ok {
		c = clause.Clause(candidateLits)
	}
	return []clause.Clause{c}, nil
}
