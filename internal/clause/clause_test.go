package clause

import "testing"

func TestClean(t *testing.T) {
	cases := []struct {
		name    string
		in      []Lit
		want    Clause
		wantOK  bool
		comment string
	}{
		{"empty", []Lit{}, Clause{}, true, "empty clause is legal"},
		{"single", []Lit{3}, Clause{3}, true, "unit clause"},
		{"sorts descending by abs", []Lit{1, -3, 2}, Clause{-3, 2, 1}, true, ""},
		{"dedups", []Lit{2, 2, -1, -1}, Clause{2, -1}, true, ""},
		{"tautology rejected", []Lit{1, -1}, nil, false, "contains l and -l"},
		{"tautology rejected after sort", []Lit{5, -2, 2}, nil, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Clean(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("Clean(%v) ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if !got.Equal(tc.want) {
				t.Errorf("Clean(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	in := []Lit{1, -3, 2, 2, -3}
	c1, ok := Clean(in)
	if !ok {
		t.Fatal("unexpected tautology")
	}
	c2, ok := Clean([]Lit(c1))
	if !ok {
		t.Fatal("unexpected tautology on second pass")
	}
	if !c1.Equal(c2) {
		t.Errorf("Clean not idempotent: %v != %v", c1, c2)
	}
}

func TestInverted(t *testing.T) {
	got := Inverted([]Lit{1, -2, 3})
	want := []Lit{-1, 2, -3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Inverted()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLitNegateVar(t *testing.T) {
	l := Lit(-5)
	if l.Var() != 5 {
		t.Errorf("Var() = %d, want 5", l.Var())
	}
	if l.Negate() != 5 {
		t.Errorf("Negate() = %d, want 5", l.Negate())
	}
}
