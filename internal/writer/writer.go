// Package writer emits the CRAT text grammar: the generator's half of the
// proof stream that the checker driver (internal/checker) consumes.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rebryant/crat-check/internal/clause"
)

// Writer serializes CRAT directives to an underlying stream. Comments are
// emitted only when Verbosity is at least 2, matching the generator's
// verbLevel-gated commentary in spec.md §6.
type Writer struct {
	w         *bufio.Writer
	Verbosity int
}

// New wraps w as a CRAT Writer.
func New(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Flush flushes any buffered output.
func (wr *Writer) Flush() error {
	return wr.w.Flush()
}

func litFields(lits []clause.Lit) string {
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = fmt.Sprintf("%d", int32(l))
	}
	return strings.Join(parts, " ")
}

func hintFields(hints []uint64) string {
	if hints == nil {
		return "*"
	}
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = fmt.Sprintf("%d", h)
	}
	return strings.Join(parts, " ")
}

// Input emits "id i lits 0", declaring id as an input clause.
func (wr *Writer) Input(id uint64, lits []clause.Lit) {
	fmt.Fprintf(wr.w, "%d i %s 0\n", id, litFields(lits))
}

// AddRup emits "id a lits 0 hints 0". hints == nil means unhinted ("*").
func (wr *Writer) AddRup(id uint64, lits []clause.Lit, hints []uint64) {
	fmt.Fprintf(wr.w, "%d a %s 0 %s 0\n", id, litFields(lits), hintFields(hints))
}

// DeleteRup emits "dc id hints 0".
func (wr *Writer) DeleteRup(id uint64, hints []uint64) {
	fmt.Fprintf(wr.w, "dc %d %s 0\n", id, hintFields(hints))
}

// And emits "id p outVar l1 l2", the AND-operation defining directive.
func (wr *Writer) And(id uint64, outVar int32, l1, l2 clause.Lit) {
	fmt.Fprintf(wr.w, "%d p %d %d %d\n", id, outVar, int32(l1), int32(l2))
}

// Or emits "id s outVar l1 l2 hints 0", the OR-operation defining
// directive, with the disjointness hints.
func (wr *Writer) Or(id uint64, outVar int32, l1, l2 clause.Lit, hints []uint64) {
	fmt.Fprintf(wr.w, "%d s %d %d %d %s 0\n", id, outVar, int32(l1), int32(l2), hintFields(hints))
}

// DeleteOperation emits "do outVar".
func (wr *Writer) DeleteOperation(outVar int32) {
	fmt.Fprintf(wr.w, "do %d\n", outVar)
}

// Comment emits a "c "-prefixed line if Verbosity >= 2.
func (wr *Writer) Comment(s string) {
	if wr.Verbosity < 2 {
		return
	}
	fmt.Fprintf(wr.w, "c %s\n", s)
}
