package solver

import "fmt"

// Operator is the relation of a constraint's expression to zero.
type Operator int

const (
	LE Operator = iota // expression <= 0
	GE                 // expression >= 0
	EQ                 // expression == 0
)

// String implements fmt.Stringer.
func (op Operator) String() string {
	switch op {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// Constraint is a linear relation with a strength. Identity is by pointer:
// adding the same *Constraint twice is a duplicate, while two constraints
// with equal content are distinct.
type Constraint struct {
	expr     Expression
	op       Operator
	strength Strength
	label    string
}

// NewConstraint builds the constraint lhs op rhs at the given strength.
func NewConstraint(lhs Expression, op Operator, rhs Expression, strength Strength) *Constraint {
	return &Constraint{
		expr:     lhs.Minus(rhs),
		op:       op,
		strength: strength.Clip(),
	}
}

// WithLabel attaches a diagnostic label and returns c.
func (c *Constraint) WithLabel(label string) *Constraint {
	c.label = label
	return c
}

// Expression returns the normalized expression, compared against zero.
func (c *Constraint) Expression() Expression { return c.expr }

// Operator returns the relation.
func (c *Constraint) Operator() Operator { return c.op }

// Strength returns the clipped strength.
func (c *Constraint) Strength() Strength { return c.strength }

// Label returns the diagnostic label, if any.
func (c *Constraint) Label() string { return c.label }

// String implements fmt.Stringer.
func (c *Constraint) String() string {
	if c.label != "" {
		return fmt.Sprintf("%s [%s]", c.label, c.strength)
	}
	return fmt.Sprintf("%s %s 0 [%s]", c.expr, c.op, c.strength)
}
