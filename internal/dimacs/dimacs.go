// Package dimacs reads the input CNF: "p cnf V C" header followed by C
// clause lines, each space-separated literals terminated by 0.
package dimacs

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CNF is a parsed input formula: VarCount variables, and the raw literal
// lists of each clause in file order (not yet canonicalized — the caller
// cleans each one when handing it to the clause store, so that a
// malformed "i" directive and a malformed input file produce distinct
// diagnostics).
type CNF struct {
	VarCount int32
	Clauses  [][]int32
}

// Read parses a DIMACS CNF stream, enforcing: a "p cnf V C" header before
// any clause line, literals in range and nonzero, no repeated or opposite
// literal within one clause, and exactly C clause lines total.
func Read(r io.Reader) (*CNF, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	cnf := &CNF{}
	var expectedClauses int
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line[0] {
		case 'c':
			continue
		case 'p':
			fields := strings.Fields(line[1:])
			if len(fields) < 3 || fields[0] != "cnf" {
				return nil, errors.Errorf("line %d: bad header line %q: not cnf", lineNumber, line)
			}
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Errorf("line %d: bad header line %q: invalid variable count", lineNumber, line)
			}
			c, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, errors.Errorf("line %d: bad header line %q: invalid clause count", lineNumber, line)
			}
			cnf.VarCount = int32(v)
			expectedClauses = c
		default:
			if expectedClauses == 0 {
				return nil, errors.Errorf("line %d: no header line: not cnf", lineNumber)
			}
			fields := strings.Fields(line)
			lits := make([]int64, 0, len(fields))
			for _, f := range fields {
				n, err := strconv.ParseInt(f, 10, 32)
				if err != nil {
					return nil, errors.Errorf("line %d: non-integer field %q", lineNumber, f)
				}
				lits = append(lits, n)
			}
			if len(lits) == 0 || lits[len(lits)-1] != 0 {
				return nil, errors.Errorf("line %d: clause line should end with 0", lineNumber)
			}
			lits = lits[:len(lits)-1]
			if len(lits) == 0 {
				return nil, errors.Errorf("line %d: empty clause", lineNumber)
			}
			vars := make([]int32, len(lits))
			for i, l := range lits {
				v := l
				if v < 0 {
					v = -v
				}
				vars[i] = int32(v)
			}
			sorted := append([]int32{}, vars...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			if sorted[0] == 0 || sorted[len(sorted)-1] > cnf.VarCount {
				return nil, errors.Errorf("line %d: out-of-range literal", lineNumber)
			}
			for i := 0; i+1 < len(sorted); i++ {
				if sorted[i] == sorted[i+1] {
					return nil, errors.Errorf("line %d: opposite or repeated literal", lineNumber)
				}
			}
			clause := make([]int32, len(lits))
			for i, l := range lits {
				clause[i] = int32(l)
			}
			cnf.Clauses = append(cnf.Clauses, clause)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading CNF")
	}
	if len(cnf.Clauses) != expectedClauses {
		return nil, errors.Errorf("line %d: got %d clauses, expected %d", lineNumber, len(cnf.Clauses), expectedClauses)
	}
	return cnf, nil
}
