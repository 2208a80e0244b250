package solver

import (
	"strconv"
	"strings"
)

// Term is a variable scaled by a coefficient.
type Term struct {
	Variable    Variable
	Coefficient float64
}

// Expression is a linear combination of terms plus a constant.
// Expressions are values; every method returns a new expression.
type Expression struct {
	Terms    []Term
	Constant float64
}

// Constant returns an expression with no terms.
func Constant(c float64) Expression {
	return Expression{Constant: c}
}

// NewExpression builds an expression from a constant and terms.
func NewExpression(constant float64, terms ...Term) Expression {
	return Expression{Terms: append([]Term(nil), terms...), Constant: constant}
}

// Plus returns e + other.
func (e Expression) Plus(other Expression) Expression {
	terms := make([]Term, 0, len(e.Terms)+len(other.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, other.Terms...)
	return Expression{Terms: terms, Constant: e.Constant + other.Constant}
}

// Minus returns e - other.
func (e Expression) Minus(other Expression) Expression {
	return e.Plus(other.Scale(-1))
}

// Scale returns e multiplied by k.
func (e Expression) Scale(k float64) Expression {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Variable: t.Variable, Coefficient: t.Coefficient * k}
	}
	return Expression{Terms: terms, Constant: e.Constant * k}
}

// AddConstant returns e + c.
func (e Expression) AddConstant(c float64) Expression {
	return Expression{Terms: append([]Term(nil), e.Terms...), Constant: e.Constant + c}
}

// IsConstant reports whether e has no terms.
func (e Expression) IsConstant() bool { return len(e.Terms) == 0 }

// Variables returns the distinct variables referenced by e in first-use order.
func (e Expression) Variables() []Variable {
	seen := make(map[Variable]bool, len(e.Terms))
	out := make([]Variable, 0, len(e.Terms))
	for _, t := range e.Terms {
		if !seen[t.Variable] {
			seen[t.Variable] = true
			out = append(out, t.Variable)
		}
	}
	return out
}

// String renders e as "2*a + b - 5".
func (e Expression) String() string {
	var b strings.Builder
	for i, t := range e.Terms {
		c := t.Coefficient
		switch {
		case i == 0 && c < 0:
			b.WriteString("-")
			c = -c
		case i > 0 && c < 0:
			b.WriteString(" - ")
			c = -c
		case i > 0:
			b.WriteString(" + ")
		}
		if c != 1 {
			b.WriteString(strconv.FormatFloat(c, 'g', -1, 64))
			b.WriteString("*")
		}
		b.WriteString(t.Variable.String())
	}
	switch {
	case len(e.Terms) == 0:
		b.WriteString(strconv.FormatFloat(e.Constant, 'g', -1, 64))
	case e.Constant > 0:
		b.WriteString(" + " + strconv.FormatFloat(e.Constant, 'g', -1, 64))
	case e.Constant < 0:
		b.WriteString(" - " + strconv.FormatFloat(-e.Constant, 'g', -1, 64))
	}
	return b.String()
}
