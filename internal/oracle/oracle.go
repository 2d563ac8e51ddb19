// Package oracle wraps a SAT solver as the justification engine the
// reasoner falls back on: propagation under assumptions, and a last-resort
// full solve when a schema claims a literal is forced but local
// propagation can't show it.
package oracle

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"

	"github.com/rebryant/crat-check/internal/clause"
)

// Outcome is the three-valued result of a propagation or solve call.
type Outcome int

const (
	Unknown Outcome = iota
	Sat
	Unsat
)

// Oracle is the SAT-oracle interface of spec.md §9's design note: add
// clauses, propagate under assumptions, solve under assumptions, fetch
// forced literals. It is consulted only for unit-propagation
// justification, never for full proof search.
type Oracle interface {
	AddClause(c clause.Clause)
	Propagate(assumptions []clause.Lit) (Outcome, []clause.Lit)
	Solve(assumptions []clause.Lit) Outcome
}

// Gini wraps github.com/go-air/gini as the production Oracle.
type Gini struct {
	g inter.S
}

// New creates an Oracle with capacity hinted by the number of input
// variables, mirroring gini.NewV's usage in
// operator-lifecycle-manager's solver construction.
func New(varCapacityHint int) *Gini {
	return &Gini{g: gini.NewV(varCapacityHint)}
}

func toGiniLit(l clause.Lit) z.Lit {
	return z.Dimacs2Lit(int(l))
}

// AddClause adds c as a permanent clause to the solver.
func (o *Gini) AddClause(c clause.Clause) {
	for _, l := range c {
		o.g.Add(toGiniLit(l))
	}
	o.g.Add(z.LitNull)
}

// Propagate tests assumptions under unit propagation without committing a
// full search, returning the outcome and any literals forced as a side
// effect. Propagate undoes its own test with Untest before returning, so
// the solver is left without the assumptions.
func (o *Gini) Propagate(assumptions []clause.Lit) (Outcome, []clause.Lit) {
	ms := make([]z.Lit, len(assumptions))
	for i, l := range assumptions {
		ms[i] = toGiniLit(l)
	}
	o.g.Assume(ms...)
	res, out := o.g.Test(nil)
	forced := make([]clause.Lit, len(out))
	for i, m := range out {
		forced[i] = clause.Lit(m.Dimacs())
	}
	o.g.Untest()
	return fromGiniOutcome(res), forced
}

// Solve runs a full search under assumptions.
func (o *Gini) Solve(assumptions []clause.Lit) Outcome {
	ms := make([]z.Lit, len(assumptions))
	for i, l := range assumptions {
		ms[i] = toGiniLit(l)
	}
	o.g.Assume(ms...)
	return fromGiniOutcome(o.g.Solve())
}

func fromGiniOutcome(res int) Outcome {
	switch {
	case res > 0:
		return Sat
	case res < 0:
		return Unsat
	default:
		return Unknown
	}
}

// ErrOracleDisagreement is returned when the oracle reports SAT for a
// configuration the schema claims is UNSAT — an unrecoverable, fatal
// condition per spec.md §9 (the schema itself, not just the proof, is
// wrong).
var ErrOracleDisagreement = errors.New("oracle reports satisfiable where schema claims unsatisfiable")
