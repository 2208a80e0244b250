package solver

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func eq(lhs, rhs Expression, s Strength) *Constraint { return NewConstraint(lhs, EQ, rhs, s) }
func ge(lhs, rhs Expression, s Strength) *Constraint { return NewConstraint(lhs, GE, rhs, s) }
func le(lhs, rhs Expression, s Strength) *Constraint { return NewConstraint(lhs, LE, rhs, s) }

func mustAdd(t *testing.T, s *Solver, cons ...*Constraint) {
	t.Helper()
	for _, c := range cons {
		if err := s.AddConstraint(c); err != nil {
			t.Fatalf("AddConstraint(%v) error: %v", c, err)
		}
	}
}

func mustRemove(t *testing.T, s *Solver, c *Constraint) {
	t.Helper()
	if err := s.RemoveConstraint(c); err != nil {
		t.Fatalf("RemoveConstraint(%v) error: %v", c, err)
	}
}

func mustSuggest(t *testing.T, s *Solver, v Variable, value float64) {
	t.Helper()
	if err := s.SuggestValue(v, value); err != nil {
		t.Fatalf("SuggestValue(%s, %g) error: %v", v.Name(), value, err)
	}
}

func wantValue(t *testing.T, s *Solver, v Variable, want float64) {
	t.Helper()
	if got := s.Value(v); math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %g, want %g", v.Name(), got, want)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("error = %v, want %v", err, target)
	}
}

func TestRequiredEquality(t *testing.T) {
	s := New()
	x := NewVariable("x")

	mustAdd(t, s, eq(x.Expr(), Constant(10), Required))
	wantValue(t, s, x, 10)
}

func TestChainedEqualities(t *testing.T) {
	s := New()
	left, width, right := NewVariable("left"), NewVariable("width"), NewVariable("right")

	mustAdd(t, s,
		eq(left.Expr(), Constant(10), Required),
		eq(width.Expr(), Constant(90), Required),
		eq(right.Expr(), left.Plus(width.Expr()), Required),
	)
	wantValue(t, s, right, 100)
}

func TestInequalities(t *testing.T) {
	tests := []struct {
		name string
		cons func(x Variable) []*Constraint
		want float64
	}{
		{
			name: "lower bound beats weak preference",
			cons: func(x Variable) []*Constraint {
				return []*Constraint{
					ge(x.Expr(), Constant(10), Required),
					eq(x.Expr(), Constant(0), Weak),
				}
			},
			want: 10,
		},
		{
			name: "upper bound beats weak preference",
			cons: func(x Variable) []*Constraint {
				return []*Constraint{
					le(x.Expr(), Constant(5), Required),
					eq(x.Expr(), Constant(100), Weak),
				}
			},
			want: 5,
		},
		{
			name: "preference inside bounds is honored",
			cons: func(x Variable) []*Constraint {
				return []*Constraint{
					ge(x.Expr(), Constant(0), Required),
					le(x.Expr(), Constant(100), Required),
					eq(x.Expr(), Constant(42), Weak),
				}
			},
			want: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			x := NewVariable("x")
			mustAdd(t, s, tt.cons(x)...)
			wantValue(t, s, x, tt.want)
		})
	}
}

func TestStrengthOrdering(t *testing.T) {
	s := New()
	x := NewVariable("x")

	mustAdd(t, s,
		eq(x.Expr(), Constant(100), Weak),
		eq(x.Expr(), Constant(200), Strong),
		eq(x.Expr(), Constant(300), Medium),
	)
	wantValue(t, s, x, 200)
}

func TestDuplicateConstraint(t *testing.T) {
	s := New()
	x := NewVariable("x")
	c := eq(x.Expr(), Constant(1), Required)

	mustAdd(t, s, c)
	wantErr(t, s.AddConstraint(c), ErrDuplicateConstraint)
	if n := s.ConstraintCount(); n != 1 {
		t.Errorf("ConstraintCount() = %d, want 1", n)
	}
}

func TestUnknownConstraint(t *testing.T) {
	s := New()
	x := NewVariable("x")
	c := eq(x.Expr(), Constant(1), Required)

	wantErr(t, s.RemoveConstraint(c), ErrUnknownConstraint)

	mustAdd(t, s, c)
	mustRemove(t, s, c)
	wantErr(t, s.RemoveConstraint(c), ErrUnknownConstraint)
}

func TestUnsatisfiableEquality(t *testing.T) {
	s := New()
	x := NewVariable("x")

	first := eq(x.Expr(), Constant(10), Required)
	mustAdd(t, s, first)
	wantErr(t, s.AddConstraint(eq(x.Expr(), Constant(20), Required)), ErrUnsatisfiableConstraint)
	wantValue(t, s, x, 10)

	mustRemove(t, s, first)
	mustAdd(t, s, eq(x.Expr(), Constant(20), Required))
	wantValue(t, s, x, 20)
}

func TestUnsatisfiableInequalityRollsBack(t *testing.T) {
	s := New()
	x := NewVariable("x")

	mustAdd(t, s, ge(x.Expr(), Constant(10), Required))

	bad := le(x.Expr(), Constant(5), Required)
	wantErr(t, s.AddConstraint(bad), ErrUnsatisfiableConstraint)
	if s.HasConstraint(bad) {
		t.Error("rejected constraint is still registered")
	}
	wantValue(t, s, x, 10)

	// The rejected row must not linger: an upper bound that fits still works.
	mustAdd(t, s,
		le(x.Expr(), Constant(50), Required),
		eq(x.Expr(), Constant(30), Weak),
	)
	wantValue(t, s, x, 30)
}

func TestEditVariables(t *testing.T) {
	s := New()
	width := NewVariable("width")
	half := NewVariable("half")

	if err := s.AddEditVariable(width, Required-1); err != nil {
		t.Fatalf("AddEditVariable() error: %v", err)
	}
	mustAdd(t, s, eq(half.Times(2), width.Expr(), Required))

	mustSuggest(t, s, width, 800)
	wantValue(t, s, width, 800)
	wantValue(t, s, half, 400)

	mustSuggest(t, s, width, 300)
	wantValue(t, s, width, 300)
	wantValue(t, s, half, 150)
}

func TestEditVariableErrors(t *testing.T) {
	s := New()
	v := NewVariable("v")

	wantErr(t, s.SuggestValue(v, 1), ErrUnknownEditVariable)
	wantErr(t, s.AddEditVariable(v, Required), ErrBadRequiredStrength)

	if err := s.AddEditVariable(v, Strong); err != nil {
		t.Fatalf("AddEditVariable() error: %v", err)
	}
	wantErr(t, s.AddEditVariable(v, Strong), ErrDuplicateEditVariable)
	if !s.HasEditVariable(v) {
		t.Error("HasEditVariable() = false after add")
	}

	if err := s.RemoveEditVariable(v); err != nil {
		t.Fatalf("RemoveEditVariable() error: %v", err)
	}
	if s.HasEditVariable(v) {
		t.Error("HasEditVariable() = true after remove")
	}
	wantErr(t, s.RemoveEditVariable(v), ErrUnknownEditVariable)
}

func TestEditVariableYieldsToRequired(t *testing.T) {
	s := New()
	width := NewVariable("width")

	if err := s.AddEditVariable(width, Required-1); err != nil {
		t.Fatalf("AddEditVariable() error: %v", err)
	}
	mustAdd(t, s, le(width.Expr(), Constant(500), Required))
	mustSuggest(t, s, width, 800)

	wantValue(t, s, width, 500)
}

func TestFetchChanges(t *testing.T) {
	s := New()
	x, y := NewVariable("x"), NewVariable("y")

	cx := eq(x.Expr(), Constant(10), Required)
	mustAdd(t, s, cx, eq(y.Expr(), x.Expr().AddConstant(5), Required))

	want := []Change{{Variable: x, Value: 10}, {Variable: y, Value: 15}}
	if got := s.FetchChanges(); !slices.Equal(got, want) {
		t.Errorf("FetchChanges() = %v, want %v", got, want)
	}
	if got := s.FetchChanges(); len(got) != 0 {
		t.Errorf("second FetchChanges() = %v, want nothing new", got)
	}

	mustRemove(t, s, cx)
	mustAdd(t, s, cx)
	if got := s.FetchChanges(); len(got) != 0 {
		t.Errorf("remove then re-add reported %v, want no change", got)
	}

	mustRemove(t, s, cx)
	changes := s.FetchChanges()
	if len(changes) == 0 {
		t.Fatal("FetchChanges() reported nothing after removing a required constraint")
	}
	for _, ch := range changes {
		if got := s.Value(ch.Variable); got != ch.Value {
			t.Errorf("change %s = %g, Value() = %g", ch.Variable.Name(), ch.Value, got)
		}
	}
}

func TestValueHasNoNegativeZero(t *testing.T) {
	s := New()
	x, y, z := NewVariable("x"), NewVariable("y"), NewVariable("z")

	mustAdd(t, s,
		eq(x.Times(-1), Constant(0), Required),
		eq(y.Expr(), x.Times(-3), Required),
		eq(z.Times(-2).Plus(y.Expr()), Constant(0), Strong),
	)
	for _, v := range []Variable{x, y, z} {
		if got := s.Value(v); got != 0 || math.Signbit(got) {
			t.Errorf("%s = %g (signbit %v), want +0", v.Name(), got, math.Signbit(got))
		}
	}
	for _, ch := range s.FetchChanges() {
		if math.Signbit(ch.Value) {
			t.Errorf("change %s = %g, want +0", ch.Variable.Name(), ch.Value)
		}
	}
}

func TestNetConvergence(t *testing.T) {
	build := func(x, y Variable) (a, b, c *Constraint) {
		a = eq(x.Expr(), Constant(10), Required)
		b = eq(y.Expr(), x.Times(2), Required)
		c = eq(y.Expr(), Constant(99), Weak)
		return a, b, c
	}

	churned := New()
	x1, y1 := NewVariable("x"), NewVariable("y")
	a, b, c := build(x1, y1)
	mustAdd(t, churned, c, a)
	mustRemove(t, churned, c)
	mustAdd(t, churned, b)
	mustRemove(t, churned, a)
	mustAdd(t, churned, a)

	direct := New()
	x2, y2 := NewVariable("x"), NewVariable("y")
	a2, b2, _ := build(x2, y2)
	mustAdd(t, direct, a2, b2)

	if churned.Value(x1) != direct.Value(x2) || churned.Value(y1) != direct.Value(y2) {
		t.Errorf("churned (%g, %g) != direct (%g, %g)",
			churned.Value(x1), churned.Value(y1), direct.Value(x2), direct.Value(y2))
	}
	wantValue(t, churned, y1, 20)
}

func TestReset(t *testing.T) {
	s := New()
	x := NewVariable("x")
	mustAdd(t, s, eq(x.Expr(), Constant(3), Required))

	s.Reset()
	if n := s.ConstraintCount(); n != 0 {
		t.Errorf("ConstraintCount() = %d after Reset", n)
	}
	if v := s.Value(x); v != 0 {
		t.Errorf("Value() = %g after Reset", v)
	}
	if got := s.FetchChanges(); len(got) != 0 {
		t.Errorf("FetchChanges() = %v after Reset", got)
	}
}
