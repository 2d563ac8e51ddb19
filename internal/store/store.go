// Package store implements the clause manager: an indexed, id-addressable
// clause store with live/deleted tombstone state and a per-literal
// occurrence index.
package store

import (
	"github.com/pkg/errors"

	"github.com/rebryant/crat-check/internal/clause"
)

// Reason distinguishes the different ways find/add/delete can fail, so
// callers can format diagnostics without string-sniffing.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNeverDefined
	ReasonDeleted
	ReasonNonAscendingID
	ReasonNonCanonical
)

// Entry is the stored state for one clause id. A deleted entry remains
// addressable: Find on it reports ReasonDeleted rather than
// ReasonNeverDefined, matching the "already deleted" vs. "undefined"
// distinction of clause.md §3.
type Entry struct {
	Lits    clause.Clause
	Deleted bool
}

// Store is the clause manager of spec §4.B. It is not safe for concurrent
// use; the checker drives it from a single goroutine per spec §5.
type Store struct {
	inputClauseCount int
	entries          map[uint64]*Entry
	order            []uint64 // insertion order, for iteration
	maxID            uint64
	litCounts        map[clause.Lit]int
	litSets          map[clause.Lit]map[uint64]struct{} // only populated when verbose
	verbose          bool

	addedEmpty       bool
	liveClauseCount  int
	maxLiveCount     int
	totalClauseCount int
}

// New creates a clause manager. inputClauseCount is the number of ids
// reserved for the input CNF (ids 1..inputClauseCount).
func New(inputClauseCount int, verbose bool) *Store {
	s := &Store{
		inputClauseCount: inputClauseCount,
		entries:          make(map[uint64]*Entry),
		litCounts:        make(map[clause.Lit]int),
		verbose:          verbose,
	}
	if verbose {
		s.litSets = make(map[clause.Lit]map[uint64]struct{})
	}
	return s
}

// Add inserts a canonical clause at id. id must exceed every previously
// inserted id.
func (s *Store) Add(c clause.Clause, id uint64) error {
	if id == 0 {
		return errors.New("clause id 0 is reserved")
	}
	if id <= s.maxID {
		return errors.Errorf("invalid clause id %d: not in ascending order", id)
	}
	s.maxID = id
	s.entries[id] = &Entry{Lits: c}
	s.order = append(s.order, id)
	if c.IsEmpty() {
		s.addedEmpty = true
	}
	s.liveClauseCount++
	s.totalClauseCount++
	if s.liveClauseCount > s.maxLiveCount {
		s.maxLiveCount = s.liveClauseCount
	}
	for _, l := range c {
		s.litCounts[l]++
		if s.verbose {
			set, ok := s.litSets[l]
			if !ok {
				set = make(map[uint64]struct{})
				s.litSets[l] = set
			}
			set[id] = struct{}{}
		}
	}
	return nil
}

// Delete tombstones the clause at id. Deleting an undefined or
// already-deleted id fails with a distinguishable reason.
func (s *Store) Delete(id uint64) error {
	c, reason := s.find(id)
	if reason == ReasonNeverDefined {
		return errors.Errorf("cannot delete clause #%d: never defined", id)
	}
	if reason == ReasonDeleted {
		return errors.Errorf("cannot delete clause #%d: already deleted", id)
	}
	e := s.entries[id]
	e.Deleted = true
	s.liveClauseCount--
	for _, l := range c {
		s.litCounts[l]--
		if s.verbose {
			delete(s.litSets[l], id)
		}
	}
	return nil
}

func (s *Store) find(id uint64) (clause.Clause, Reason) {
	e, ok := s.entries[id]
	if !ok {
		return nil, ReasonNeverDefined
	}
	if e.Deleted {
		return nil, ReasonDeleted
	}
	return e.Lits, ReasonNone
}

// Find returns the live clause at id, or an error describing why it is
// unavailable (never defined vs. deleted).
func (s *Store) Find(id uint64) (clause.Clause, error) {
	c, reason := s.find(id)
	switch reason {
	case ReasonNeverDefined:
		return nil, errors.Errorf("clause #%d never defined", id)
	case ReasonDeleted:
		return nil, errors.Errorf("clause #%d has been deleted", id)
	default:
		return c, nil
	}
}

// NextID returns the smallest id that Add will currently accept.
func (s *Store) NextID() uint64 {
	return s.maxID + 1
}

// LiteralCount returns the number of live clauses containing l.
func (s *Store) LiteralCount(l clause.Lit) int {
	return s.litCounts[l]
}

// LiveClauses returns every currently-live clause, in insertion order. Used
// by the local reasoner, which propagates over the whole live set rather
// than a hint-selected subset.
func (s *Store) LiveClauses() []clause.Clause {
	out := make([]clause.Clause, 0, s.liveClauseCount)
	for _, id := range s.order {
		e := s.entries[id]
		if !e.Deleted {
			out = append(out, e.Lits)
		}
	}
	return out
}

// IDClause pairs a clause id with its literals and current tombstone
// state, for callers that need to replay the store's full history (the
// generator's proof-stream emitter) rather than just its live view.
type IDClause struct {
	ID      uint64
	Lits    clause.Clause
	Deleted bool
}

// Entries returns every clause ever added, live or deleted, in insertion
// order.
func (s *Store) Entries() []IDClause {
	out := make([]IDClause, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		out = append(out, IDClause{ID: id, Lits: e.Lits, Deleted: e.Deleted})
	}
	return out
}

// AddedEmpty reports whether the empty clause was ever added (a one-way
// flag: once true it never resets).
func (s *Store) AddedEmpty() bool {
	return s.addedEmpty
}

// LiveClauseCount returns the number of currently-live clauses.
func (s *Store) LiveClauseCount() int {
	return s.liveClauseCount
}

// MaxLiveClauseCount returns the high-water mark of LiveClauseCount.
func (s *Store) MaxLiveClauseCount() int {
	return s.maxLiveCount
}

// TotalClauseCount returns the number of clauses ever added.
func (s *Store) TotalClauseCount() int {
	return s.totalClauseCount
}

// CheckFinal validates that every input id was defined and deleted and
// that exactly one live unit clause remains, returning its literal (the
// root literal) on success.
func (s *Store) CheckFinal() (clause.Lit, error) {
	var neverDefined, notDeleted []uint64
	for id := uint64(1); id <= uint64(s.inputClauseCount); id++ {
		e, ok := s.entries[id]
		if !ok {
			neverDefined = append(neverDefined, id)
			continue
		}
		if !e.Deleted {
			notDeleted = append(notDeleted, id)
		}
	}
	if len(neverDefined) > 0 {
		return 0, errors.Errorf("input clauses %v never defined", neverDefined)
	}
	if len(notDeleted) > 0 {
		return 0, errors.Errorf("Input clauses %v not deleted", notDeleted)
	}
	var root clause.Lit
	haveRoot := false
	for _, id := range s.order {
		e := s.entries[id]
		if e.Deleted {
			continue
		}
		if len(e.Lits) == 1 {
			if haveRoot {
				return 0, errors.Errorf("At least two possible root nodes: %d, %d", root, e.Lits[0])
			}
			root = e.Lits[0]
			haveRoot = true
		}
	}
	if !haveRoot {
		return 0, errors.New("no root node found")
	}
	return root, nil
}
