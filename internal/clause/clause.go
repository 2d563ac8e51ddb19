// Package clause defines the literal and clause primitives shared by the
// rest of the checker: canonical form, equality, and inversion.
package clause

import (
	"fmt"
	"sort"
	"strings"
)

// Lit is a nonzero signed literal. The variable is abs(Lit); negative
// values denote negation.
type Lit int32

// Var returns the variable underlying l.
func (l Lit) Var() int32 {
	if l < 0 {
		return int32(-l)
	}
	return int32(l)
}

// Negate returns the complement of l.
func (l Lit) Negate() Lit {
	return -l
}

func (l Lit) String() string {
	return fmt.Sprintf("%d", int32(l))
}

// Clause is a canonical disjunction of literals: duplicates removed,
// sorted by descending |lit|, never containing both l and -l.
type Clause []Lit

// Clean builds the canonical form of lits. It returns an empty clause and
// true for empty input (a legitimate, non-tautological clause meaning
// false), and
// (nil, false) iff lits contains a literal and its negation — the
// canonical form of a tautology, which is never stored.
func Clean(lits []Lit) (Clause, bool) {
	sorted := make([]Lit, len(lits))
	copy(sorted, lits)
	sort.Slice(sorted, func(i, j int) bool {
		return absLit(sorted[i]) > absLit(sorted[j])
	})
	if len(sorted) <= 1 {
		return Clause(sorted), true
	}
	out := make(Clause, 0, len(sorted))
	out = append(out, sorted[0])
	for i := 1; i < len(sorted); i++ {
		prev := out[len(out)-1]
		cur := sorted[i]
		if prev == cur {
			continue
		}
		if prev == -cur {
			return nil, false
		}
		out = append(out, cur)
	}
	return out, true
}

func absLit(l Lit) Lit {
	if l < 0 {
		return -l
	}
	return l
}

// Equal reports whether c and other are identical sequences of literals.
// Both must already be in canonical form.
func (c Clause) Equal(other Clause) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Inverted returns the clause consisting of the negation of every literal
// in c, preserving order. Used to turn an assumption context into the
// clause that falsifies it (and vice versa).
func Inverted(lits []Lit) []Lit {
	out := make([]Lit, len(lits))
	for i, l := range lits {
		out[i] = -l
	}
	return out
}

// IsUnit reports whether c has exactly one literal.
func (c Clause) IsUnit() bool {
	return len(c) == 1
}

// IsEmpty reports whether c is the empty (always-false) clause.
func (c Clause) IsEmpty() bool {
	return len(c) == 0
}

func (c Clause) String() string {
	if len(c) == 0 {
		return "()"
	}
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
