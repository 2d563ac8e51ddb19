// Package validator implements the bottom-up proof walk: given a schema's
// root, it emits the RUP justification clauses that assert each extension
// literal under its context, driving the reasoner's epoch stack in lock
// step with the recursion.
package validator

import (
	"github.com/pkg/errors"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/reasoner"
	"github.com/rebryant/crat-check/internal/schema"
	"github.com/rebryant/crat-check/internal/store"
)

// Sink receives the clauses the walk emits, through the same Add path the
// checker driver uses — so validated output and checked input share one
// invariant surface.
type Sink interface {
	AddClause(lits []clause.Lit) (uint64, error)
}

// Validator runs the walk of spec.md §4.G over one schema.
type Validator struct {
	schema   *schema.Schema
	reasoner reasoner.Reasoner
	sink     Sink
	store    *store.Store
}

// New creates a Validator over sch, justifying literals with r and
// emitting clauses to sink.
func New(sch *schema.Schema, r reasoner.Reasoner, sink Sink, s *store.Store) *Validator {
	return &Validator{schema: sch, reasoner: r, sink: sink, store: s}
}

// Run validates the whole schema from its root and returns the ids of the
// redundant top-level unit clauses that Finish should delete.
func (v *Validator) Run() ([]uint64, error) {
	root, err := v.schema.Root()
	if err != nil {
		return nil, err
	}
	return v.validateUp(root, nil, false)
}

// Finish deletes the extraUnits collected by Run, then every input clause
// id in ascending order, leaving the store ready for checkFinal.
func (v *Validator) Finish(extraUnits []uint64, inputClauseCount int) error {
	for _, id := range extraUnits {
		if err := v.store.Delete(id); err != nil {
			return errors.Wrap(err, "deleting redundant top-level unit")
		}
	}
	for id := uint64(1); id <= uint64(inputClauseCount); id++ {
		if err := v.store.Delete(id); err != nil {
			return errors.Wrapf(err, "deleting input clause #%d", id)
		}
	}
	return nil
}

// validateUp emits the justification clauses for root under context,
// mirroring schema.py's validateUp. hasParent distinguishes a recursive
// call (whose top-level, empty-context assertions are redundant once the
// real root is asserted) from the outermost call.
func (v *Validator) validateUp(root clause.Lit, context []clause.Lit, hasParent bool) ([]uint64, error) {
	n, ok := v.schema.Node(root)
	if !ok {
		return nil, errors.Errorf("no schema node for literal %d", root)
	}
	v.schema.NodeVisits[n.NType]++
	var extraUnits []uint64

	switch n.NType {
	case schema.Or:
		if n.IteVar == 0 {
			return nil, errors.Errorf("OR node %d is not derived from an ITE", root)
		}
		selector := clause.Lit(n.IteVar)

		v.reasoner.Push(selector)
		childUnits, err := v.validateUp(n.Child1, appendLit(context, selector), true)
		v.reasoner.Pop()
		if err != nil {
			return nil, err
		}
		extraUnits = append(extraUnits, childUnits...)

		v.reasoner.Push(-selector)
		childUnits, err = v.validateUp(n.Child2, appendLit(context, -selector), true)
		v.reasoner.Pop()
		if err != nil {
			return nil, err
		}
		extraUnits = append(extraUnits, childUnits...)

		inverted := clause.Inverted(context)
		if _, err := v.sink.AddClause(append([]clause.Lit{selector, root}, inverted...)); err != nil {
			return nil, err
		}
		cid, err := v.sink.AddClause(append([]clause.Lit{root}, inverted...))
		if err != nil {
			return nil, err
		}
		v.schema.NodeClauseCounts[n.NType] += 2
		if hasParent && len(context) == 0 {
			extraUnits = append(extraUnits, cid)
		}

	case schema.And:
		nonLeafCount := 0
		for _, child := range []clause.Lit{n.Child1, n.Child2} {
			cn, ok := v.schema.Node(child)
			if !ok {
				return nil, errors.Errorf("no schema node for literal %d", child)
			}
			if cn.NType == schema.And || cn.NType == schema.Or {
				childUnits, err := v.validateUp(child, context, true)
				if err != nil {
					return nil, err
				}
				extraUnits = append(extraUnits, childUnits...)
				nonLeafCount++
				continue
			}
			justification, err := v.reasoner.JustifyUnit(child)
			if err != nil {
				return nil, errors.Wrapf(err, "justifying literal %d", child)
			}
			for _, c := range justification {
				if _, err := v.sink.AddClause([]clause.Lit(c)); err != nil {
					return nil, err
				}
			}
			v.schema.LiteralClauseCounts[len(justification)]++
		}
		if nonLeafCount > 1 {
			inverted := clause.Inverted(context)
			cid, err := v.sink.AddClause(append([]clause.Lit{root}, inverted...))
			if err != nil {
				return nil, err
			}
			v.schema.NodeClauseCounts[n.NType]++
			if hasParent && len(context) == 0 {
				extraUnits = append(extraUnits, cid)
			}
		}

	default:
		if n.IteVar != 0 {
			inverted := clause.Inverted(context)
			cid, err := v.sink.AddClause(append([]clause.Lit{root}, inverted...))
			if err != nil {
				return nil, err
			}
			v.schema.NodeClauseCounts[n.NType]++
			if hasParent && len(context) == 0 {
				extraUnits = append(extraUnits, cid)
			}
		}
	}

	return extraUnits, nil
}

// appendLit returns context with l appended, always copying so that
// sibling recursive calls never alias each other's backing array.
func appendLit(context []clause.Lit, l clause.Lit) []clause.Lit {
	out := make([]clause.Lit, len(context)+1)
	copy(out, context)
	out[len(context)] = l
	return out
}
