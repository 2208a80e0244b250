package scene

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/framekit/pkg/core/solver"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/layout"
)

// Reference keywords usable before an attribute.
const (
	RefSelf   = "self"
	RefParent = "parent"
	RefRoot   = "root"
	RefPrev   = "prev"
)

// Term is one attribute reference scaled by a coefficient.
type Term struct {
	Ref         string
	Edge        layout.Edge
	Coefficient float64
}

// Linear is a parsed linear expression over entity attributes.
type Linear struct {
	Terms    []Term
	Constant float64
}

func (l Linear) isConstant() bool { return len(l.Terms) == 0 }

func (l Linear) plus(o Linear) Linear {
	terms := append(append([]Term(nil), l.Terms...), o.Terms...)
	return Linear{Terms: terms, Constant: l.Constant + o.Constant}
}

func (l Linear) scale(k float64) Linear {
	terms := make([]Term, len(l.Terms))
	for i, t := range l.Terms {
		terms[i] = Term{Ref: t.Ref, Edge: t.Edge, Coefficient: t.Coefficient * k}
	}
	return Linear{Terms: terms, Constant: l.Constant * k}
}

// Expr is a parsed constraint: LHS Op RHS at Strength.
type Expr struct {
	Source   string
	LHS, RHS Linear
	Op       solver.Operator
	Strength solver.Strength
}

// Refs returns the distinct references in first-use order.
func (e *Expr) Refs() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range append(append([]Term(nil), e.LHS.Terms...), e.RHS.Terms...) {
		if !seen[t.Ref] {
			seen[t.Ref] = true
			out = append(out, t.Ref)
		}
	}
	return out
}

// Resolve builds a solver constraint, looking up the position behind every
// reference.
func (e *Expr) Resolve(lookup func(ref string) (*layout.Position, error)) (*solver.Constraint, error) {
	build := func(l Linear) (solver.Expression, error) {
		out := solver.Constant(l.Constant)
		for _, t := range l.Terms {
			pos, err := lookup(t.Ref)
			if err != nil {
				return solver.Expression{}, err
			}
			out = out.Plus(pos.Edge(t.Edge).Scale(t.Coefficient))
		}
		return out, nil
	}
	lhs, err := build(e.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := build(e.RHS)
	if err != nil {
		return nil, err
	}
	return solver.NewConstraint(lhs, e.Op, rhs, e.Strength).WithLabel(e.Source), nil
}

// ParseExpr parses a constraint of the form
//
//	expr (== | <= | >=) expr [@ strength]
//
// where expr is a linear combination of numbers, percentages (50% is 0.5)
// and attribute references such as parent.width or prev.right. Strength is
// required, strong, medium, weak or a number and defaults to required.
func ParseExpr(src string) (*Expr, error) {
	p := &parser{src: src}
	if err := p.lex(); err != nil {
		return nil, err
	}

	lhs, err := p.sum()
	if err != nil {
		return nil, err
	}
	opTok := p.next()
	var op solver.Operator
	switch opTok.kind {
	case tokEQ:
		op = solver.EQ
	case tokLE:
		op = solver.LE
	case tokGE:
		op = solver.GE
	default:
		return nil, p.fail(opTok, "expected ==, <= or >=")
	}
	rhs, err := p.sum()
	if err != nil {
		return nil, err
	}

	strength := solver.Required
	if p.peek().kind == tokAt {
		p.next()
		if strength, err = p.strength(); err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.fail(t, "unexpected %q", t.text)
	}
	if lhs.isConstant() && rhs.isConstant() {
		return nil, p.fail(opTok, "constraint references no attributes")
	}
	return &Expr{Source: strings.TrimSpace(src), LHS: lhs, RHS: rhs, Op: op, Strength: strength}, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokDot
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokLParen
	tokRParen
	tokEQ
	tokLE
	tokGE
	tokAt
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

type parser struct {
	src    string
	tokens []token
	i      int
}

var punct = map[string]tokenKind{
	"==": tokEQ, "<=": tokLE, ">=": tokGE,
	".": tokDot, "+": tokPlus, "-": tokMinus, "*": tokStar, "/": tokSlash,
	"%": tokPercent, "(": tokLParen, ")": tokRParen, "@": tokAt,
}

func isDigit(c byte) bool      { return '0' <= c && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// lex splits the source into tokens. The language is ASCII; any other
// character is reported whole at its byte offset.
func (p *parser) lex() error {
	s := p.src
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(s) && isDigit(s[i+1])):
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return p.fail(token{text: s[i:j], pos: i}, "bad number %q", s[i:j])
			}
			p.tokens = append(p.tokens, token{kind: tokNumber, text: s[i:j], num: v, pos: i})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			p.tokens = append(p.tokens, token{kind: tokIdent, text: s[i:j], pos: i})
			i = j
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(s[i:])
			return p.fail(token{text: s[i : i+size], pos: i}, "unexpected character %q", r)
		default:
			if i+1 < len(s) {
				if k, ok := punct[s[i:i+2]]; ok {
					p.tokens = append(p.tokens, token{kind: k, text: s[i : i+2], pos: i})
					i += 2
					continue
				}
			}
			k, ok := punct[s[i:i+1]]
			if !ok {
				return p.fail(token{text: s[i : i+1], pos: i}, "unexpected character %q", s[i:i+1])
			}
			p.tokens = append(p.tokens, token{kind: k, text: s[i : i+1], pos: i})
			i++
		}
	}
	p.tokens = append(p.tokens, token{kind: tokEOF, pos: len(s)})
	return nil
}

func (p *parser) peek() token { return p.tokens[p.i] }

func (p *parser) next() token {
	t := p.tokens[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) fail(t token, format string, args ...any) error {
	pe := &errors.PositionError{Expr: p.src, Offset: t.pos, Reason: fmt.Sprintf(format, args...)}
	return errors.Wrap(errors.ErrCodeInvalidExpression, pe, "parse constraint")
}

// sum := product (("+" | "-") product)*
func (p *parser) sum() (Linear, error) {
	l, err := p.product()
	if err != nil {
		return Linear{}, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			r, err := p.product()
			if err != nil {
				return Linear{}, err
			}
			l = l.plus(r)
		case tokMinus:
			p.next()
			r, err := p.product()
			if err != nil {
				return Linear{}, err
			}
			l = l.plus(r.scale(-1))
		default:
			return l, nil
		}
	}
}

// product := unary (("*" | "/") unary)*
func (p *parser) product() (Linear, error) {
	l, err := p.unary()
	if err != nil {
		return Linear{}, err
	}
	for {
		t := p.peek()
		switch t.kind {
		case tokStar:
			p.next()
			r, err := p.unary()
			if err != nil {
				return Linear{}, err
			}
			switch {
			case r.isConstant():
				l = l.scale(r.Constant)
			case l.isConstant():
				l = r.scale(l.Constant)
			default:
				return Linear{}, p.fail(t, "product of two attributes is not linear")
			}
		case tokSlash:
			p.next()
			r, err := p.unary()
			if err != nil {
				return Linear{}, err
			}
			if !r.isConstant() {
				return Linear{}, p.fail(t, "division by an attribute is not linear")
			}
			if r.Constant == 0 {
				return Linear{}, p.fail(t, "division by zero")
			}
			l = l.scale(1 / r.Constant)
		default:
			return l, nil
		}
	}
}

// unary := "-" unary | primary
func (p *parser) unary() (Linear, error) {
	if p.peek().kind == tokMinus {
		p.next()
		l, err := p.unary()
		return l.scale(-1), err
	}
	return p.primary()
}

// primary := number ["%"] | ident "." ident | "(" sum ")"
func (p *parser) primary() (Linear, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if p.peek().kind == tokPercent {
			p.next()
			return Linear{Constant: t.num / 100}, nil
		}
		return Linear{Constant: t.num}, nil
	case tokIdent:
		if p.peek().kind != tokDot {
			return Linear{}, p.fail(p.peek(), "expected '.' after %q", t.text)
		}
		p.next()
		attr := p.next()
		if attr.kind != tokIdent {
			return Linear{}, p.fail(attr, "expected attribute after %q", t.text+".")
		}
		edge, ok := layout.ParseEdge(strings.ToLower(attr.text))
		if !ok {
			return Linear{}, p.fail(attr, "unknown attribute %q", attr.text)
		}
		return Linear{Terms: []Term{{Ref: t.text, Edge: edge, Coefficient: 1}}}, nil
	case tokLParen:
		l, err := p.sum()
		if err != nil {
			return Linear{}, err
		}
		if r := p.next(); r.kind != tokRParen {
			return Linear{}, p.fail(r, "expected ')'")
		}
		return l, nil
	case tokEOF:
		return Linear{}, p.fail(t, "unexpected end of constraint")
	}
	return Linear{}, p.fail(t, "unexpected %q", t.text)
}

// strength := "required" | "strong" | "medium" | "weak" | number
func (p *parser) strength() (solver.Strength, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return solver.Strength(t.num).Clip(), nil
	case tokIdent:
		if s, ok := ParseStrength(t.text); ok {
			return s, nil
		}
	}
	return 0, p.fail(t, "unknown strength %q", t.text)
}

// ParseStrength parses a named strength.
func ParseStrength(s string) (solver.Strength, bool) {
	switch strings.ToLower(s) {
	case "required":
		return solver.Required, true
	case "strong":
		return solver.Strong, true
	case "medium":
		return solver.Medium, true
	case "weak":
		return solver.Weak, true
	}
	return 0, false
}
