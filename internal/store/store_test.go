package store

import (
	"testing"

	"github.com/rebryant/crat-check/internal/clause"
)

func clauseOf(lits ...clause.Lit) clause.Clause {
	c, ok := clause.Clean(lits)
	if !ok {
		panic("tautology in test fixture")
	}
	return c
}

func TestAddAscendingIDs(t *testing.T) {
	s := New(2, false)
	if err := s.Add(clauseOf(1, 2), 1); err != nil {
		t.Fatalf("Add(1) failed: %v", err)
	}
	if err := s.Add(clauseOf(-1), 2); err != nil {
		t.Fatalf("Add(2) failed: %v", err)
	}
	if err := s.Add(clauseOf(3), 2); err == nil {
		t.Error("Add with non-ascending id should fail")
	}
}

func TestDeleteDiagnostics(t *testing.T) {
	s := New(1, false)
	if err := s.Delete(5); err == nil {
		t.Error("deleting undefined clause should fail")
	}
	if err := s.Add(clauseOf(1), 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(1); err != nil {
		t.Fatalf("first delete should succeed: %v", err)
	}
	if err := s.Delete(1); err == nil {
		t.Error("deleting already-deleted clause should fail distinctly")
	}
	if _, err := s.Find(1); err == nil {
		t.Error("Find on deleted clause should fail")
	}
}

func TestLiteralCountCoherence(t *testing.T) {
	s := New(3, false)
	must(t, s.Add(clauseOf(1, 2), 1))
	must(t, s.Add(clauseOf(1, -2), 2))
	if got := s.LiteralCount(1); got != 2 {
		t.Errorf("LiteralCount(1) = %d, want 2", got)
	}
	must(t, s.Delete(2))
	if got := s.LiteralCount(1); got != 1 {
		t.Errorf("after delete, LiteralCount(1) = %d, want 1", got)
	}
	if got := s.LiteralCount(-2); got != 0 {
		t.Errorf("LiteralCount(-2) = %d, want 0", got)
	}
}

func TestAddedEmptyIsOneWay(t *testing.T) {
	s := New(1, false)
	must(t, s.Add(clauseOf(), 1))
	if !s.AddedEmpty() {
		t.Error("AddedEmpty should be true after adding empty clause")
	}
	must(t, s.Delete(1))
	if !s.AddedEmpty() {
		t.Error("AddedEmpty should remain true after the empty clause is deleted")
	}
}

func TestCheckFinal(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
		setup   func(s *Store)
	}{
		{
			name:    "success: input deleted, one unit remains",
			wantErr: false,
			setup: func(s *Store) {
				must(t, s.Add(clauseOf(1, 2), 1))
				must(t, s.Delete(1))
				must(t, s.Add(clauseOf(3), 2))
			},
		},
		{
			name:    "input never deleted",
			wantErr: true,
			setup: func(s *Store) {
				must(t, s.Add(clauseOf(1, 2), 1))
			},
		},
		{
			name:    "two roots",
			wantErr: true,
			setup: func(s *Store) {
				must(t, s.Add(clauseOf(1, 2), 1))
				must(t, s.Delete(1))
				must(t, s.Add(clauseOf(3), 2))
				must(t, s.Add(clauseOf(4), 3))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(1, false)
			tc.setup(s)
			_, err := s.CheckFinal()
			if (err != nil) != tc.wantErr {
				t.Errorf("CheckFinal() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestEntriesIncludesDeletedWithFlag(t *testing.T) {
	s := New(2, false)
	must(t, s.Add(clauseOf(1, 2), 1))
	must(t, s.Add(clauseOf(-1), 2))
	must(t, s.Delete(1))

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() returned %d entries, want 2", len(entries))
	}
	if entries[0].ID != 1 || !entries[0].Deleted {
		t.Errorf("entries[0] = %+v, want id 1, deleted", entries[0])
	}
	if entries[1].ID != 2 || entries[1].Deleted {
		t.Errorf("entries[1] = %+v, want id 2, live", entries[1])
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
