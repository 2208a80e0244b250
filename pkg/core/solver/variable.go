package solver

import (
	"fmt"
	"sync/atomic"
)

var nextVariableID atomic.Uint64

// Variable is an opaque key for one unknown in the constraint system.
// Variables are comparable and safe to use as map keys.
type Variable struct {
	id   uint64
	name string
}

// NewVariable allocates a variable with a process-unique identity.
// The name is only used for diagnostics.
func NewVariable(name string) Variable {
	return Variable{id: nextVariableID.Add(1), name: name}
}

// Name returns the diagnostic name given at creation.
func (v Variable) Name() string { return v.name }

// IsZero reports whether v is the zero Variable, which never belongs to a solver.
func (v Variable) IsZero() bool { return v.id == 0 }

// String implements fmt.Stringer.
func (v Variable) String() string {
	if v.name == "" {
		return fmt.Sprintf("v%d", v.id)
	}
	return v.name
}

// Expr returns the expression 1*v.
func (v Variable) Expr() Expression {
	return Expression{Terms: []Term{{Variable: v, Coefficient: 1}}}
}

// Times returns the expression coefficient*v.
func (v Variable) Times(coefficient float64) Expression {
	return Expression{Terms: []Term{{Variable: v, Coefficient: coefficient}}}
}

// Plus returns the expression v + other.
func (v Variable) Plus(other Expression) Expression {
	return v.Expr().Plus(other)
}

// Minus returns the expression v - other.
func (v Variable) Minus(other Expression) Expression {
	return v.Expr().Minus(other)
}
