package dimacs

import (
	"strings"
	"testing"
)

func TestReadValid(t *testing.T) {
	in := "c comment\np cnf 2 2\n1 2 0\n-1 -2 0\n"
	cnf, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if cnf.VarCount != 2 || len(cnf.Clauses) != 2 {
		t.Errorf("got VarCount=%d, %d clauses", cnf.VarCount, len(cnf.Clauses))
	}
}

func TestReadRejectsMissingHeader(t *testing.T) {
	if _, err := Read(strings.NewReader("1 2 0\n")); err == nil {
		t.Error("expected error: no header line")
	}
}

func TestReadRejectsWrongClauseCount(t *testing.T) {
	in := "p cnf 2 2\n1 2 0\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Error("expected error: clause count mismatch")
	}
}

func TestReadRejectsOutOfRangeLiteral(t *testing.T) {
	in := "p cnf 1 1\n1 2 0\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Error("expected error: out-of-range literal")
	}
}

func TestReadRejectsRepeatedLiteral(t *testing.T) {
	in := "p cnf 2 1\n1 1 0\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Error("expected error: repeated literal")
	}
}

func TestReadRejectsUnterminatedClause(t *testing.T) {
	in := "p cnf 2 1\n1 2\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Error("expected error: clause not terminated with 0")
	}
}
