package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rebryant/crat-check/internal/clause"
	"github.com/rebryant/crat-check/internal/dimacs"
	"github.com/rebryant/crat-check/internal/oracle"
	"github.com/rebryant/crat-check/internal/operation"
	"github.com/rebryant/crat-check/internal/reasoner"
	"github.com/rebryant/crat-check/internal/rup"
	"github.com/rebryant/crat-check/internal/schema"
	"github.com/rebryant/crat-check/internal/store"
	"github.com/rebryant/crat-check/internal/validator"
	"github.com/rebryant/crat-check/internal/writer"
)

// tautologyVar is the reserved identity literal for schema.Schema's ⊤
// constant: large enough to never collide with a real input or extension
// variable produced from a realistically sized CNF.
const tautologyVar = int32(1 << 30)

var generateArgs struct {
	cnfPath    string
	schemaPath string
	outPath    string
	verbose    bool
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a CRAT proof from a counting-schema description",
		Long: `generate builds a decomposable-deterministic counting schema
from a small description file ("and"/"or"/"ite" lines over a DIMACS
input's variables, referencing earlier results as "#1", "#2", ..."),
validates it with the bottom-up reasoner, and emits the resulting
proof in CRAT form.`,
		SilenceUsage: true,
		RunE:         runGenerate,
	}
	cmd.Flags().StringVarP(&generateArgs.cnfPath, "input", "i", "", "input CNF file (DIMACS)")
	cmd.Flags().StringVarP(&generateArgs.schemaPath, "schema", "s", "", "schema description file")
	cmd.Flags().StringVarP(&generateArgs.outPath, "output", "o", "", "output CRAT proof file")
	cmd.Flags().BoolVarP(&generateArgs.verbose, "verbose", "v", false, "enable verbose diagnostics")
	for _, name := range []string{"input", "schema", "output"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			log.Fatal(err)
		}
	}
	return cmd
}

// storeSink implements validator.Sink by cleaning and adding directly to
// the backing store — the same Add path the checker driver uses, so a
// generated proof's own clauses satisfy the invariants the checker
// re-verifies.
type storeSink struct {
	st *store.Store
}

func (s *storeSink) AddClause(lits []clause.Lit) (uint64, error) {
	c, ok := clause.Clean(lits)
	if !ok {
		return 0, nil // tautological assertion: nothing to record
	}
	id := s.st.NextID()
	if err := s.st.Add(c, id); err != nil {
		return 0, err
	}
	return id, nil
}

func parseOperand(tok string, created []clause.Lit) (clause.Lit, error) {
	negate := strings.HasPrefix(tok, "-")
	if negate {
		tok = tok[1:]
	}
	var lit clause.Lit
	if strings.HasPrefix(tok, "#") {
		idx, err := strconv.Atoi(tok[1:])
		if err != nil || idx < 1 || idx > len(created) {
			return 0, errors.Errorf("invalid back-reference %q", tok)
		}
		lit = created[idx-1]
	} else {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return 0, errors.Errorf("invalid operand %q", tok)
		}
		lit = clause.Lit(n)
	}
	if negate {
		lit = -lit
	}
	return lit, nil
}

// buildSchema reads the schema description file, applying each "and"/
// "or"/"ite" line to sch in order and collecting the literal each line
// produces, so that later lines can refer back to them as "#1", "#2", ....
func buildSchema(r *bufio.Scanner, sch *schema.Schema, st *store.Store) ([]clause.Lit, error) {
	var created []clause.Lit
	lineNumber := 0
	for r.Scan() {
		lineNumber++
		fields := strings.Fields(strings.TrimSpace(r.Text()))
		if len(fields) == 0 || fields[0] == "c" {
			continue
		}
		switch fields[0] {
		case "and":
			if len(fields) != 3 {
				return nil, errors.Errorf("line %d: 'and' needs 2 operands", lineNumber)
			}
			l1, err := parseOperand(fields[1], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			l2, err := parseOperand(fields[2], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			lit, err := sch.MkAnd(l1, l2)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: building AND node", lineNumber)
			}
			created = append(created, lit)
		case "or":
			if len(fields) != 3 {
				return nil, errors.Errorf("line %d: 'or' needs 2 operands", lineNumber)
			}
			l1, err := parseOperand(fields[1], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			l2, err := parseOperand(fields[2], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			var hints []uint64
			if empty, ok := clause.Clean([]clause.Lit{-l1, -l2}); ok {
				hints, err = rup.DeriveHints(st.Entries(), empty)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d: deriving OR disjointness hints", lineNumber)
				}
			}
			lit, err := sch.MkOr(l1, l2, hints)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: building OR node", lineNumber)
			}
			created = append(created, lit)
		case "ite":
			if len(fields) != 4 {
				return nil, errors.Errorf("line %d: 'ite' needs 3 operands", lineNumber)
			}
			c, err := parseOperand(fields[1], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			t, err := parseOperand(fields[2], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			e, err := parseOperand(fields[3], created)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			lit, err := sch.MkIte(c, t, e)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: building ITE node", lineNumber)
			}
			created = append(created, lit)
		default:
			return nil, errors.Errorf("line %d: unknown schema directive %q", lineNumber, fields[0])
		}
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "reading schema description")
	}
	if len(created) == 0 {
		return nil, errors.New("schema description produced no nodes")
	}
	return created, nil
}

// entriesBefore returns the prefix of entries whose id is less than
// limit: the live clause set a real proof stream would have at the
// moment clause limit was first asserted.
func entriesBefore(entries []store.IDClause, limit uint64) []store.IDClause {
	out := make([]store.IDClause, 0, len(entries))
	for _, e := range entries {
		if e.ID < limit {
			out = append(out, e)
		}
	}
	return out
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateArgs.verbose {
		log.SetLevel(log.DebugLevel)
	}

	cnfFile, err := os.Open(generateArgs.cnfPath)
	if err != nil {
		return errors.Wrap(err, "opening CNF file")
	}
	defer cnfFile.Close()
	cnf, err := dimacs.Read(cnfFile)
	if err != nil {
		return errors.Wrap(err, "reading CNF file")
	}

	schemaFile, err := os.Open(generateArgs.schemaPath)
	if err != nil {
		return errors.Wrap(err, "opening schema description file")
	}
	defer schemaFile.Close()

	outFile, err := os.Create(generateArgs.outPath)
	if err != nil {
		return errors.Wrap(err, "creating output proof file")
	}
	defer outFile.Close()

	w := writer.New(outFile)
	if generateArgs.verbose {
		w.Verbosity = 2
	}

	st := store.New(len(cnf.Clauses), generateArgs.verbose)
	ops := operation.New(st, cnf.VarCount)
	sch := schema.New(ops, cnf.VarCount, tautologyVar)

	for i, lits := range cnf.Clauses {
		id := uint64(i + 1)
		litVals := make([]clause.Lit, len(lits))
		for j, l := range lits {
			litVals[j] = clause.Lit(l)
		}
		c, ok := clause.Clean(litVals)
		if !ok {
			return errors.Errorf("input clause #%d is tautological", id)
		}
		if err := st.Add(c, id); err != nil {
			return errors.Wrapf(err, "loading input clause #%d", id)
		}
		w.Input(id, []clause.Lit(c))
	}

	if _, err := buildSchema(bufio.NewScanner(schemaFile), sch, st); err != nil {
		return errors.Wrap(err, "building schema")
	}
	if err := sch.Compress(); err != nil {
		return errors.Wrap(err, "compressing schema")
	}

	o := oracle.New(int(cnf.VarCount) + len(sch.Order()) + 8)
	r := reasoner.NewLocal(st, o)
	v := validator.New(sch, r, &storeSink{st: st}, st)

	extraUnits, err := v.Run()
	if err != nil {
		return errors.Wrap(err, "validating schema")
	}

	entries := st.Entries() // snapshot: nothing deleted yet
	opByBase := make(map[uint64]operation.OpRecord)
	for _, rec := range ops.Entries() {
		opByBase[rec.BaseID] = rec
	}

	inputCount := uint64(len(cnf.Clauses))
	for i := 0; i < len(entries); {
		e := entries[i]
		if e.ID <= inputCount {
			i++
			continue
		}
		if rec, ok := opByBase[e.ID]; ok {
			switch rec.Kind {
			case operation.And:
				w.And(e.ID, rec.OutVar, rec.L1, rec.L2)
			case operation.Or:
				var hints []uint64
				if empty, ok := clause.Clean([]clause.Lit{-rec.L1, -rec.L2}); ok {
					hints, err = rup.DeriveHints(entriesBefore(entries, e.ID), empty)
					if err != nil {
						return errors.Wrapf(err, "re-deriving OR hints for operation #%d", e.ID)
					}
				}
				w.Or(e.ID, rec.OutVar, rec.L1, rec.L2, hints)
			}
			i += 3
			continue
		}
		hints, err := rup.DeriveHints(entriesBefore(entries, e.ID), e.Lits)
		if err != nil {
			return errors.Wrapf(err, "deriving hints for justification clause #%d", e.ID)
		}
		w.AddRup(e.ID, []clause.Lit(e.Lits), hints)
		i++
	}

	toDelete := append(append([]uint64{}, extraUnits...), inputIDs(inputCount)...)
	for _, id := range toDelete {
		c, err := st.Find(id)
		if err != nil {
			return errors.Wrapf(err, "locating clause #%d for deletion", id)
		}
		if err := st.Delete(id); err != nil {
			return errors.Wrapf(err, "deleting clause #%d", id)
		}
		hints, err := rup.DeriveHints(st.Entries(), c)
		if err != nil {
			return errors.Wrapf(err, "deriving deletion hints for clause #%d", id)
		}
		w.DeleteRup(id, hints)
	}

	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flushing proof output")
	}
	fmt.Printf("Wrote CRAT proof to %s\n", generateArgs.outPath)
	return nil
}

func inputIDs(n uint64) []uint64 {
	out := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		out[i] = i + 1
	}
	return out
}
