// Package schema implements the hash-consed counting-schema DAG: bottom-up
// node constructors with structural simplification, ITE lowering, and
// mark-and-sweep compression. Fresh AND/OR nodes allocate their defining
// clauses through an operation.Manager, so the schema and the proof stream
// stay in lockstep as nodes are built.
package schema

import (
	"github.com/pkg/errors"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/operation"
)

// NodeType tags the four node shapes a schema can contain. Negation is not
// a node: ¬n is represented as the literal -n.xlit, eliminating an entire
// allocation class per spec.md §9's design note.
type NodeType int

const (
	Taut NodeType = iota
	Var
	And
	Or
)

func (t NodeType) String() string {
	switch t {
	case Taut:
		return "taut"
	case Var:
		return "var"
	case And:
		return "and"
	case Or:
		return "or"
	default:
		return "?"
	}
}

// Node is the single tagged record every schema node collapses to: ntype
// selects which fields are meaningful (children for And/Or, clauseID for
// And/Or, iteVar for Or nodes produced by ITE lowering).
type Node struct {
	NType    NodeType
	XLit     clause.Lit // positive identity literal; always > 0
	Child1   clause.Lit
	Child2   clause.Lit
	ClauseID uint64 // base id of the 3 defining clauses, for And/Or
	IteVar   int32  // selector variable for an Or produced by ITE lowering; 0 if none
}

func (n *Node) isOne() bool  { return n.NType == Taut }
func (n *Node) isZero() bool { return false } // zero is represented as -Taut, not a node

type uniqueKey struct {
	ntype          NodeType
	child1, child2 clause.Lit
}

// Schema is the unique-table DAG of spec.md §4.F.
type Schema struct {
	ops       *operation.Manager
	taut      clause.Lit
	nodes     map[int32]*Node // keyed by |xlit|
	order     []int32
	unique    map[uniqueKey]int32
	nextVar   int32
	inputVars int32

	// Statistics (spec.md SUPPLEMENTED FEATURES).
	NodeCounts          map[NodeType]int
	NodeVisits          map[NodeType]int
	LiteralClauseCounts map[int]int
	NodeClauseCounts    map[NodeType]int
}

// New creates an empty schema over inputVarCount input variables, whose
// extension variables and defining clauses are recorded through ops.
// tautologyVar is the reserved large integer identity for the ⊤ constant.
func New(ops *operation.Manager, inputVarCount int32, tautologyVar int32) *Schema {
	s := &Schema{
		ops:                 ops,
		taut:                clause.Lit(tautologyVar),
		nodes:               make(map[int32]*Node),
		unique:              make(map[uniqueKey]int32),
		nextVar:             inputVarCount + 1,
		inputVars:           inputVarCount,
		NodeCounts:          make(map[NodeType]int),
		NodeVisits:          make(map[NodeType]int),
		LiteralClauseCounts: make(map[int]int),
		NodeClauseCounts:    make(map[NodeType]int),
	}
	s.nodes[tautologyVar] = &Node{NType: Taut, XLit: s.taut}
	for v := int32(1); v <= inputVarCount; v++ {
		s.nodes[v] = &Node{NType: Var, XLit: clause.Lit(v)}
	}
	return s
}

// Taut and Zero are the two constant literals ⊤ and ⊥ = ¬⊤.
func (s *Schema) Taut() clause.Lit { return s.taut }
func (s *Schema) Zero() clause.Lit { return -s.taut }

func (s *Schema) isOne(l clause.Lit) bool  { return l == s.taut }
func (s *Schema) isZero(l clause.Lit) bool { return l == -s.taut }

func (s *Schema) nodeOf(l clause.Lit) *Node {
	return s.nodes[int32(absLit(l))]
}

func absLit(l clause.Lit) clause.Lit {
	if l < 0 {
		return -l
	}
	return l
}

func (s *Schema) lookup(k uniqueKey) (clause.Lit, bool) {
	v, ok := s.unique[k]
	if !ok {
		return 0, false
	}
	return clause.Lit(v), true
}

func (s *Schema) store(n *Node, k uniqueKey) {
	s.nodes[int32(n.XLit)] = n
	s.unique[k] = int32(n.XLit)
	s.order = append(s.order, int32(n.XLit))
	s.NodeCounts[n.NType]++
}

// MkNeg returns the negation of l. It is pure literal-sign flipping: no
// lookup, no allocation.
func (s *Schema) MkNeg(l clause.Lit) clause.Lit {
	return -l
}

// MkAnd returns the node for l1 ∧ l2, applying ⊥∧x=⊥ and ⊤∧x=x before
// consulting the unique table; allocates a fresh AND node (and its three
// defining clauses, via the operation manager) only on a genuine miss.
func (s *Schema) MkAnd(l1, l2 clause.Lit) (clause.Lit, error) {
	if s.isZero(l1) || s.isZero(l2) {
		return s.Zero(), nil
	}
	if s.isOne(l1) {
		return l2, nil
	}
	if s.isOne(l2) {
		return l1, nil
	}
	k := uniqueKey{And, l1, l2}
	if v, ok := s.lookup(k); ok {
		return v, nil
	}
	return s.allocate(And, l1, l2, k, 0)
}

// MkOr returns the node for l1 ∨ l2, given hints that prove the two
// disjuncts are logically disjoint (the determinism precondition).
// Structural simplifications ⊥∨x=x, ⊤∨x=⊤ short-circuit before the
// disjointness check runs.
func (s *Schema) MkOr(l1, l2 clause.Lit, hints []uint64) (clause.Lit, error) {
	if s.isOne(l1) || s.isOne(l2) {
		return s.Taut(), nil
	}
	if s.isZero(l1) {
		return l2, nil
	}
	if s.isZero(l2) {
		return l1, nil
	}
	k := uniqueKey{Or, l1, l2}
	if v, ok := s.lookup(k); ok {
		return v, nil
	}
	if err := s.ops.CheckDisjunction(l1, l2, hints); err != nil {
		return 0, errors.Wrap(err, "OR children are not disjoint")
	}
	return s.allocate(Or, l1, l2, k, 0)
}

func (s *Schema) allocate(ntype NodeType, l1, l2 clause.Lit, k uniqueKey, iteVar int32) (clause.Lit, error) {
	outVar := s.nextVar
	s.nextVar++
	baseID := s.ops.NextClauseID()
	kind := operation.And
	if ntype == Or {
		kind = operation.Or
	}
	if err := s.ops.AddOperation(kind, outVar, l1, l2, baseID); err != nil {
		return 0, err
	}
	n := &Node{NType: ntype, XLit: clause.Lit(outVar), Child1: l1, Child2: l2, ClauseID: baseID, IteVar: iteVar}
	s.store(n, k)
	return n.XLit, nil
}

// MkIte lowers if(c, t, e) per spec.md §4.F: constant/degenerate branches
// collapse directly; the general case builds ntrue = c∧t, nfalse = ¬c∧e
// and ORs them, with hints pointing at clauseId+1 of each conjunction —
// the {¬o,l1} clause that the defining-clause order guarantees is there
// (l1 being c for ntrue and ¬c for nfalse).
func (s *Schema) MkIte(c, t, e clause.Lit) (clause.Lit, error) {
	switch {
	case s.isOne(c):
		return t, nil
	case s.isZero(c):
		return e, nil
	case t == e:
		return t, nil
	case s.isOne(t) && s.isZero(e):
		return c, nil
	case s.isZero(t) && s.isOne(e):
		return s.MkNeg(c), nil
	case s.isOne(t):
		and, err := s.MkAnd(s.MkNeg(c), s.MkNeg(e))
		if err != nil {
			return 0, err
		}
		return s.MkNeg(and), nil
	case s.isZero(t):
		return s.MkAnd(s.MkNeg(c), e)
	case s.isOne(e):
		and, err := s.MkAnd(c, s.MkNeg(t))
		if err != nil {
			return 0, err
		}
		return s.MkNeg(and), nil
	case s.isZero(e):
		return s.MkAnd(c, t)
	}

	ntrue, err := s.MkAnd(c, t)
	if err != nil {
		return 0, err
	}
	nfalse, err := s.MkAnd(s.MkNeg(c), e)
	if err != nil {
		return 0, err
	}
	trueNode := s.nodeOf(ntrue)
	falseNode := s.nodeOf(nfalse)
	hints := []uint64{trueNode.ClauseID + 1, falseNode.ClauseID + 1}
	result, err := s.MkOr(ntrue, nfalse, hints)
	if err != nil {
		return 0, err
	}
	s.nodeOf(result).IteVar = c.Var()
	return result, nil
}

// Root returns the most recently allocated node's literal — by
// construction the final schema's root.
func (s *Schema) Root() (clause.Lit, error) {
	if len(s.order) == 0 {
		return 0, errors.New("schema has no nodes")
	}
	return clause.Lit(s.order[len(s.order)-1]), nil
}

// Node looks up the node identified by l (sign ignored).
func (s *Schema) Node(l clause.Lit) (*Node, bool) {
	n, ok := s.nodes[int32(absLit(l))]
	return n, ok
}

// Compress runs mark-and-sweep from the root, dropping every unreachable
// node from iteration order (the unique table and node map are left
// intact; they are keyed for lookup, not iterated during validation).
func (s *Schema) Compress() error {
	root, err := s.Root()
	if err != nil {
		return err
	}
	marked := make(map[int32]struct{})
	s.mark(root, marked)
	kept := make([]int32, 0, len(marked))
	for _, v := range s.order {
		if _, ok := marked[v]; ok {
			kept = append(kept, v)
		}
	}
	s.order = kept
	return nil
}

func (s *Schema) mark(l clause.Lit, marked map[int32]struct{}) {
	v := int32(absLit(l))
	if _, ok := marked[v]; ok {
		return
	}
	marked[v] = struct{}{}
	n := s.nodes[v]
	if n == nil || (n.NType != And && n.NType != Or) {
		return
	}
	s.mark(n.Child1, marked)
	s.mark(n.Child2, marked)
}

// Order returns the creation-order sequence of extension-variable
// literals still live after the most recent Compress (or all of them, if
// Compress was never called).
func (s *Schema) Order() []int32 {
	return s.order
}
