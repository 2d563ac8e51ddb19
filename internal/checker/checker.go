// Package checker implements the proof-checking driver of spec.md §4.H: it
// owns the clause store and operation manager, dispatches each CRAT
// directive to them, and renders the final verdict.
package checker

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/dimacs"
	"github.com/rebryant/crat-check/internal/operation"
	"github.com/rebryant/crat-check/internal/rup"
	"github.com/rebryant/crat-check/internal/store"
)

// Kind classifies why a directive was rejected, per spec.md §7.
type Kind string

const (
	KindParse     Kind = "parse"
	KindID        Kind = "id"
	KindShape     Kind = "shape"
	KindRup       Kind = "rup"
	KindOperation Kind = "operation"
	KindFinal     Kind = "final"
)

// CheckError is the typed diagnostic surfaced by a failed directive. Line
// is 0 for errors discovered outside any specific line (e.g. CheckFinal).
type CheckError struct {
	Kind Kind
	Line int
	Msg  string
}

func (e *CheckError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Summary mirrors Prover.summarize: per-rule directive counts plus the
// clause-store high-water marks, printed once at the end of a run.
type Summary struct {
	TotalClauses   int
	MaxLiveClauses int
	RuleCounts     map[string]int
	FullProof      bool
	Failed         bool
}

// Driver is the checker of spec.md §4.H. It is built once per proof run
// over an already-parsed input CNF, then fed the CRAT directive stream.
type Driver struct {
	store      *store.Store
	ops        *operation.Manager
	log        *log.Logger
	lineNumber int
	failed     bool
	fullProof  bool
	ruleCounts map[string]int
	lastErr    *CheckError
}

// Err returns the first directive failure seen by Check, or nil on a
// clean run.
func (d *Driver) Err() *CheckError { return d.lastErr }

// New builds a Driver from a parsed input CNF, loading its clauses as ids
// 1..len(cnf.Clauses). A non-canonical (tautological) input clause is a
// fatal shape error, matching the reference tool's pre-proof rejection.
func New(cnf *dimacs.CNF, verbose bool, logger *log.Logger) (*Driver, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := store.New(len(cnf.Clauses), verbose)
	ops := operation.New(s, cnf.VarCount)
	d := &Driver{
		store:     s,
		ops:       ops,
		log:       logger,
		fullProof: true,
		ruleCounts: map[string]int{
			"i": 0, "a": 0, "dc": 0, "p": 0, "s": 0, "do": 0,
		},
	}
	for i, lits := range cnf.Clauses {
		id := uint64(i + 1)
		litVals := make([]clause.Lit, len(lits))
		for j, l := range lits {
			litVals[j] = clause.Lit(l)
		}
		c, ok := clause.Clean(litVals)
		if !ok {
			return nil, errors.Errorf("cannot add input clause #%d: tautological", id)
		}
		if err := s.Add(c, id); err != nil {
			return nil, errors.Wrapf(err, "cannot add input clause #%d", id)
		}
	}
	return d, nil
}

// Store exposes the backing clause manager, e.g. for the root literal at
// the end of a successful run.
func (d *Driver) Store() *store.Store { return d.store }

// Operations exposes the backing operation manager, for the final count.
func (d *Driver) Operations() *operation.Manager { return d.ops }

func (d *Driver) flagError(kind Kind, format string, args ...interface{}) {
	msg := errors.Errorf(format, args...).Error()
	d.log.WithFields(log.Fields{"line": d.lineNumber, "kind": string(kind)}).Error(msg)
	d.failed = true
	if d.lastErr == nil {
		d.lastErr = &CheckError{Kind: kind, Line: d.lineNumber, Msg: msg}
	}
}

// Check reads a CRAT directive stream line by line, dispatching each
// directive and stopping at the first failure. On a clean pass it also
// runs CheckFinal. The FullProof/Failed bits end up in Summary.
func (d *Driver) Check(r io.Reader) Summary {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		d.lineNumber++
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "c") {
			continue
		}

		var id uint64
		if fields[0] != "dc" && fields[0] != "do" {
			n, err := strconv.ParseUint(fields[0], 10, 64)
			if err != nil {
				d.flagError(KindParse, "looking for clause id, got %q", fields[0])
				break
			}
			id = n
			fields = fields[1:]
		}
		if len(fields) == 0 {
			d.flagError(KindParse, "missing directive after clause id")
			break
		}
		cmd := fields[0]
		rest := fields[1:]

		switch cmd {
		case "i":
			d.doInput(id, rest)
		case "a":
			d.doAddRup(id, rest)
		case "dc":
			d.doDeleteRup(rest)
		case "p":
			d.doProduct(id, rest)
		case "s":
			d.doSum(id, rest)
		case "do":
			d.doDeleteOperation(rest)
		default:
			d.flagError(KindParse, "invalid directive %q", cmd)
		}
		if d.failed {
			break
		}
		d.ruleCounts[cmd]++
	}
	if err := scanner.Err(); err != nil {
		d.flagError(KindParse, "reading proof: %v", err)
	}

	if !d.failed {
		if _, err := d.store.CheckFinal(); err != nil {
			d.lineNumber = 0
			d.flagError(KindFinal, "%s", err.Error())
		}
	}

	return Summary{
		TotalClauses:   d.store.TotalClauseCount(),
		MaxLiveClauses: d.store.MaxLiveClauseCount(),
		RuleCounts:     d.ruleCounts,
		FullProof:      d.fullProof,
		Failed:         d.failed,
	}
}

// parseLitList reads zero-terminated signed literals. "0" is consumed as
// the terminator and not included in the result.
func parseLitList(fields []string) ([]clause.Lit, []string, error) {
	var out []clause.Lit
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fields[i:], errors.Errorf("non-integer value %q", f)
		}
		if n == 0 {
			return out, fields[i+1:], nil
		}
		out = append(out, clause.Lit(n))
	}
	return nil, nil, errors.New("no terminating 0 found")
}

// parseHintList reads a HINT field per spec.md §6: either a zero-terminated
// list of positive clause ids, or the single token "*" (unhinted).
func parseHintList(fields []string) (hints []uint64, unhinted bool, rest []string, err error) {
	if len(fields) > 0 && fields[0] == "*" {
		if len(fields) < 2 || fields[1] != "0" {
			return nil, false, fields, errors.New("'*' must be followed by terminating 0")
		}
		return nil, true, fields[2:], nil
	}
	for i, f := range fields {
		n, perr := strconv.ParseInt(f, 10, 64)
		if perr != nil {
			return nil, false, fields[i:], errors.Errorf("non-integer hint %q", f)
		}
		if n == 0 {
			return hints, false, fields[i+1:], nil
		}
		if n <= 0 {
			return nil, false, fields[i:], errors.Errorf("hint must be a positive clause id, got %d", n)
		}
		hints = append(hints, uint64(n))
	}
	return nil, false, nil, errors.New("no terminating 0 found")
}

func (d *Driver) doInput(id uint64, rest []string) {
	lits, rest, err := parseLitList(rest)
	if err != nil {
		d.flagError(KindParse, "directive 'i': %v", err)
		return
	}
	if len(rest) > 0 {
		d.flagError(KindParse, "directive 'i': items beyond terminating 0")
		return
	}
	c, _ := clause.Clean(lits)
	stored, err := d.store.Find(id)
	if err != nil {
		d.flagError(KindID, "input clause #%d: %v", id, err)
		return
	}
	if !c.Equal(stored) {
		d.flagError(KindShape, "clause %s does not match input clause #%d", c, id)
	}
}

func (d *Driver) doAddRup(id uint64, rest []string) {
	lits, rest, err := parseLitList(rest)
	if err != nil {
		d.flagError(KindParse, "directive 'a' #%d: %v", id, err)
		return
	}
	hints, unhinted, rest, err := parseHintList(rest)
	if err != nil {
		d.flagError(KindParse, "directive 'a' #%d: %v", id, err)
		return
	}
	if len(rest) > 0 {
		d.flagError(KindParse, "couldn't add clause #%d: items beyond terminating 0", id)
		return
	}
	c, _ := clause.Clean(lits)
	if err := d.checkRup(c, hints, unhinted); err != nil {
		d.flagError(KindRup, "couldn't add clause #%d: %v", id, err)
		return
	}
	if err := d.store.Add(c, id); err != nil {
		d.flagError(KindID, "couldn't add clause #%d: %v", id, err)
	}
}

func (d *Driver) doDeleteRup(rest []string) {
	if len(rest) < 1 {
		d.flagError(KindParse, "'dc': must specify id of clause to delete")
		return
	}
	id, err := strconv.ParseUint(rest[0], 10, 64)
	if err != nil {
		d.flagError(KindParse, "'dc': invalid clause id %q", rest[0])
		return
	}
	rest = rest[1:]
	hints, unhinted, rest, err := parseHintList(rest)
	if err != nil {
		d.flagError(KindParse, "couldn't delete clause #%d: %v", id, err)
		return
	}
	if len(rest) > 0 {
		d.flagError(KindParse, "couldn't delete clause #%d: items beyond terminating 0", id)
		return
	}
	c, err := d.store.Find(id)
	if err != nil {
		d.flagError(KindID, "couldn't delete clause #%d: %v", id, err)
		return
	}
	if err := d.store.Delete(id); err != nil {
		d.flagError(KindID, "couldn't delete clause #%d: %v", id, err)
		return
	}
	if err := d.checkRup(c, hints, unhinted); err != nil {
		d.flagError(KindRup, "couldn't delete clause #%d: %v", id, err)
	}
}

func (d *Driver) checkRup(c clause.Clause, hints []uint64, unhinted bool) error {
	if unhinted {
		rup.CheckUnhinted()
		d.fullProof = false
		return nil
	}
	_, err := rup.CheckHinted(d.store, c, hints)
	return err
}

func (d *Driver) doProduct(id uint64, rest []string) {
	if len(rest) != 3 {
		d.flagError(KindParse, "couldn't add operation with clause #%d: invalid number of operands", id)
		return
	}
	args, err := parseInts3(rest)
	if err != nil {
		d.flagError(KindParse, "couldn't add operation with clause #%d: %v", id, err)
		return
	}
	if err := d.ops.AddOperation(operation.And, args[0], clause.Lit(args[1]), clause.Lit(args[2]), id); err != nil {
		d.flagError(KindOperation, "couldn't add operation with clause #%d: %v", id, err)
	}
}

func (d *Driver) doSum(id uint64, rest []string) {
	if len(rest) < 3 {
		d.flagError(KindParse, "couldn't add operation with clause #%d: invalid number of operands", id)
		return
	}
	args, err := parseInts3(rest[:3])
	if err != nil {
		d.flagError(KindParse, "couldn't add operation with clause #%d: %v", id, err)
		return
	}
	rest = rest[3:]
	hints, unhinted, rest, err := parseHintList(rest)
	if err != nil {
		d.flagError(KindParse, "couldn't add operation with clause #%d: %v", id, err)
		return
	}
	if len(rest) > 0 {
		d.flagError(KindParse, "couldn't add operation with clause #%d: items beyond terminating 0", id)
		return
	}
	outVar, l1, l2 := args[0], clause.Lit(args[1]), clause.Lit(args[2])
	if err := d.ops.AddOperation(operation.Or, outVar, l1, l2, id); err != nil {
		d.flagError(KindOperation, "couldn't add operation with clause #%d: %v", id, err)
		return
	}
	if unhinted {
		rup.CheckUnhinted()
		d.fullProof = false
		return
	}
	if err := d.ops.CheckDisjunction(l1, l2, hints); err != nil {
		d.flagError(KindOperation, "couldn't add operation with clause #%d: %v", id, err)
	}
}

func (d *Driver) doDeleteOperation(rest []string) {
	if len(rest) != 1 {
		d.flagError(KindParse, "'do': must specify output variable for operation deletion")
		return
	}
	outVar, err := strconv.ParseInt(rest[0], 10, 32)
	if err != nil {
		d.flagError(KindParse, "'do': invalid operand %q", rest[0])
		return
	}
	if err := d.ops.DeleteOperation(int32(outVar)); err != nil {
		d.flagError(KindOperation, "could not delete operation %d: %v", outVar, err)
	}
}

func parseInts3(fields []string) ([3]int32, error) {
	var out [3]int32
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return out, errors.Errorf("non-integer argument %q", f)
		}
		out[i] = int32(n)
	}
	return out, nil
}

// RuleNames returns the directive kinds in the stable order summarize
// prints them in.
func RuleNames() []string {
	names := []string{"a", "dc", "do", "i", "p", "s"}
	sort.Strings(names)
	return names
}
