package solver

import (
	"math"
	"slices"
)

const epsilon = 1e-8

func nearZero(v float64) bool { return math.Abs(v) < epsilon }

type symbolKind uint8

const (
	invalidSymbol symbolKind = iota
	externalSymbol
	slackSymbol
	errorSymbol
	dummySymbol
)

// symbol is a tableau column. Ids increase with creation order, which is
// the order every pivot-selection loop walks.
type symbol struct {
	id   uint64
	kind symbolKind
}

func (s symbol) valid() bool { return s.kind != invalidSymbol }

// pivotable reports whether s may enter the basis when removing a marker.
func (s symbol) pivotable() bool { return s.kind == slackSymbol || s.kind == errorSymbol }

// restricted reports whether s must stay non-negative.
func (s symbol) restricted() bool { return s.kind != externalSymbol }

func sortSymbols(syms []symbol) {
	slices.SortFunc(syms, func(a, b symbol) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
}

// row is constant + sum(coefficient * symbol).
type row struct {
	constant float64
	cells    map[symbol]float64
}

func newRow(constant float64) *row {
	return &row{constant: constant, cells: make(map[symbol]float64)}
}

func (r *row) clone() *row {
	c := newRow(r.constant)
	for s, v := range r.cells {
		c.cells[s] = v
	}
	return c
}

// symbols returns the row's symbols in creation order.
func (r *row) symbols() []symbol {
	syms := make([]symbol, 0, len(r.cells))
	for s := range r.cells {
		syms = append(syms, s)
	}
	sortSymbols(syms)
	return syms
}

func (r *row) add(v float64) float64 {
	r.constant += v
	return r.constant
}

func (r *row) insertSymbol(s symbol, coefficient float64) {
	v := r.cells[s] + coefficient
	if nearZero(v) {
		delete(r.cells, s)
		return
	}
	r.cells[s] = v
}

func (r *row) insertRow(other *row, coefficient float64) {
	r.constant += other.constant * coefficient
	for s, v := range other.cells {
		r.insertSymbol(s, v*coefficient)
	}
}

func (r *row) remove(s symbol) { delete(r.cells, s) }

func (r *row) reverseSign() {
	r.constant = -r.constant
	for s, v := range r.cells {
		r.cells[s] = -v
	}
}

// solveFor rewrites r so that s is its subject: s = r. The cell for s is removed.
func (r *row) solveFor(s symbol) {
	coefficient := -1.0 / r.cells[s]
	delete(r.cells, s)
	r.constant *= coefficient
	for k, v := range r.cells {
		r.cells[k] = v * coefficient
	}
}

// solveForPair rewrites a row whose subject was lhs so that rhs becomes the subject.
func (r *row) solveForPair(lhs, rhs symbol) {
	r.insertSymbol(lhs, -1.0)
	r.solveFor(rhs)
}

func (r *row) coefficientFor(s symbol) float64 { return r.cells[s] }

// substitute replaces s in r with the expression held by other.
func (r *row) substitute(s symbol, other *row) {
	if c, ok := r.cells[s]; ok {
		delete(r.cells, s)
		r.insertRow(other, c)
	}
}

func (r *row) allDummies() bool {
	for s := range r.cells {
		if s.kind != dummySymbol {
			return false
		}
	}
	return true
}
