package solver

import (
	"math"
	"slices"
)

type tag struct {
	marker symbol
	other  symbol
}

type editInfo struct {
	tag        tag
	constraint *Constraint
	constant   float64
}

// Change is a variable whose solved value differs from the last reported one.
type Change struct {
	Variable Variable
	Value    float64
}

// Solver is an incremental Cassowary solver. It is not safe for concurrent use.
type Solver struct {
	cns        map[*Constraint]tag
	rows       map[symbol]*row
	vars       map[Variable]symbol
	edits      map[Variable]*editInfo
	infeasible []symbol
	objective  *row
	artificial *row
	nextID     uint64

	reported map[Variable]float64
}

// New returns an empty solver.
func New() *Solver {
	s := &Solver{}
	s.Reset()
	return s
}

// Reset clears every constraint, edit variable and reported value.
func (s *Solver) Reset() {
	s.cns = make(map[*Constraint]tag)
	s.rows = make(map[symbol]*row)
	s.vars = make(map[Variable]symbol)
	s.edits = make(map[Variable]*editInfo)
	s.infeasible = nil
	s.objective = newRow(0)
	s.artificial = nil
	s.reported = make(map[Variable]float64)
}

// HasConstraint reports whether c is currently in the solver.
func (s *Solver) HasConstraint(c *Constraint) bool {
	_, ok := s.cns[c]
	return ok
}

// HasEditVariable reports whether v is registered as an edit variable.
func (s *Solver) HasEditVariable(v Variable) bool {
	_, ok := s.edits[v]
	return ok
}

// ConstraintCount returns the number of constraints currently in the solver,
// including those backing edit variables.
func (s *Solver) ConstraintCount() int { return len(s.cns) }

// AddConstraint adds c to the system.
//
// It returns ErrDuplicateConstraint if c is already present and
// ErrUnsatisfiableConstraint if c is required and conflicts with the current
// required constraints. In both cases the solver is left unchanged. An
// *InternalError indicates a corrupted tableau.
func (s *Solver) AddConstraint(c *Constraint) error {
	if _, ok := s.cns[c]; ok {
		return ErrDuplicateConstraint
	}

	t := tag{}
	r := s.createRow(c, &t)
	subject := chooseSubject(r, t)

	if !subject.valid() && r.allDummies() {
		if !nearZero(r.constant) {
			return ErrUnsatisfiableConstraint
		}
		subject = t.marker
	}

	if !subject.valid() {
		ok, err := s.addWithArtificialVariable(r)
		if err != nil {
			return err
		}
		if !ok {
			s.rollback(c, t)
			return ErrUnsatisfiableConstraint
		}
	} else {
		r.solveFor(subject)
		s.substitute(subject, r)
		s.rows[subject] = r
	}

	s.cns[c] = t
	return s.optimize(s.objective)
}

// RemoveConstraint removes c from the system. It returns ErrUnknownConstraint
// if c is not present.
func (s *Solver) RemoveConstraint(c *Constraint) error {
	t, ok := s.cns[c]
	if !ok {
		return ErrUnknownConstraint
	}
	delete(s.cns, c)
	s.removeConstraintEffects(c, t)

	if _, basic := s.rows[t.marker]; basic {
		delete(s.rows, t.marker)
	} else {
		leaving, r, found := s.markerLeavingRow(t.marker)
		if !found {
			return &InternalError{Reason: "failed to find leaving row"}
		}
		delete(s.rows, leaving)
		r.solveForPair(leaving, t.marker)
		s.substitute(t.marker, r)
	}
	return s.optimize(s.objective)
}

// AddEditVariable registers v as externally suggestible at the given
// strength, which must be below Required.
func (s *Solver) AddEditVariable(v Variable, strength Strength) error {
	if _, ok := s.edits[v]; ok {
		return ErrDuplicateEditVariable
	}
	strength = strength.Clip()
	if strength.IsRequired() {
		return ErrBadRequiredStrength
	}
	c := NewConstraint(v.Expr(), EQ, Constant(0), strength)
	if err := s.AddConstraint(c); err != nil {
		return err
	}
	s.edits[v] = &editInfo{tag: s.cns[c], constraint: c}
	return nil
}

// RemoveEditVariable unregisters v and drops its backing constraint.
func (s *Solver) RemoveEditVariable(v Variable) error {
	info, ok := s.edits[v]
	if !ok {
		return ErrUnknownEditVariable
	}
	if err := s.RemoveConstraint(info.constraint); err != nil {
		return err
	}
	delete(s.edits, v)
	return nil
}

// SuggestValue sets the desired value of edit variable v.
func (s *Solver) SuggestValue(v Variable, value float64) error {
	info, ok := s.edits[v]
	if !ok {
		return ErrUnknownEditVariable
	}
	delta := value - info.constant
	info.constant = value

	if r, ok := s.rows[info.tag.marker]; ok {
		if r.add(-delta) < 0 {
			s.infeasible = append(s.infeasible, info.tag.marker)
		}
		return s.dualOptimize()
	}
	if r, ok := s.rows[info.tag.other]; ok {
		if r.add(delta) < 0 {
			s.infeasible = append(s.infeasible, info.tag.other)
		}
		return s.dualOptimize()
	}
	for _, sym := range s.basics() {
		r := s.rows[sym]
		c := r.coefficientFor(info.tag.marker)
		if c != 0 && r.add(delta*c) < 0 && sym.restricted() {
			s.infeasible = append(s.infeasible, sym)
		}
	}
	return s.dualOptimize()
}

// Value returns the current solved value of v. Unknown variables are zero,
// and negative zero is reported as zero.
func (s *Solver) Value(v Variable) float64 {
	sym, ok := s.vars[v]
	if !ok {
		return 0
	}
	if r, ok := s.rows[sym]; ok && r.constant != 0 {
		return r.constant
	}
	return 0
}

// FetchChanges returns every variable whose value differs from the value
// reported by the previous call, in variable creation order, and makes the
// current values the new baseline. Variables start at zero.
func (s *Solver) FetchChanges() []Change {
	vars := make([]Variable, 0, len(s.vars))
	for v := range s.vars {
		vars = append(vars, v)
	}
	slices.SortFunc(vars, func(a, b Variable) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})

	var changes []Change
	for _, v := range vars {
		value := s.Value(v)
		if value != s.reported[v] {
			s.reported[v] = value
			changes = append(changes, Change{Variable: v, Value: value})
		}
	}
	return changes
}

func (s *Solver) newSymbol(kind symbolKind) symbol {
	s.nextID++
	return symbol{id: s.nextID, kind: kind}
}

func (s *Solver) varSymbol(v Variable) symbol {
	if sym, ok := s.vars[v]; ok {
		return sym
	}
	sym := s.newSymbol(externalSymbol)
	s.vars[v] = sym
	return sym
}

// basics returns the basic symbols in creation order.
func (s *Solver) basics() []symbol {
	syms := make([]symbol, 0, len(s.rows))
	for sym := range s.rows {
		syms = append(syms, sym)
	}
	sortSymbols(syms)
	return syms
}

// createRow converts c into a tableau row with its terms expressed over the
// current parametric symbols, adding the slack, error and dummy symbols its
// operator and strength need. The row's constant is made non-negative.
func (s *Solver) createRow(c *Constraint, t *tag) *row {
	expr := c.expr
	r := newRow(expr.Constant)
	for _, term := range expr.Terms {
		if nearZero(term.Coefficient) {
			continue
		}
		sym := s.varSymbol(term.Variable)
		if basic, ok := s.rows[sym]; ok {
			r.insertRow(basic, term.Coefficient)
		} else {
			r.insertSymbol(sym, term.Coefficient)
		}
	}

	switch c.op {
	case LE, GE:
		coefficient := 1.0
		if c.op == GE {
			coefficient = -1.0
		}
		slack := s.newSymbol(slackSymbol)
		t.marker = slack
		r.insertSymbol(slack, coefficient)
		if !c.strength.IsRequired() {
			errSym := s.newSymbol(errorSymbol)
			t.other = errSym
			r.insertSymbol(errSym, -coefficient)
			s.objective.insertSymbol(errSym, float64(c.strength))
		}
	case EQ:
		if !c.strength.IsRequired() {
			errPlus := s.newSymbol(errorSymbol)
			errMinus := s.newSymbol(errorSymbol)
			t.marker = errPlus
			t.other = errMinus
			r.insertSymbol(errPlus, -1.0)
			r.insertSymbol(errMinus, 1.0)
			s.objective.insertSymbol(errPlus, float64(c.strength))
			s.objective.insertSymbol(errMinus, float64(c.strength))
		} else {
			dummy := s.newSymbol(dummySymbol)
			t.marker = dummy
			r.insertSymbol(dummy, 1.0)
		}
	}

	if r.constant < 0 {
		r.reverseSign()
	}
	return r
}

// chooseSubject picks the symbol a new row is solved for: any external
// symbol, otherwise a marker or error symbol with a negative coefficient.
func chooseSubject(r *row, t tag) symbol {
	for _, sym := range r.symbols() {
		if sym.kind == externalSymbol {
			return sym
		}
	}
	if t.marker.pivotable() && r.coefficientFor(t.marker) < 0 {
		return t.marker
	}
	if t.other.pivotable() && r.coefficientFor(t.other) < 0 {
		return t.other
	}
	return symbol{}
}

// addWithArtificialVariable adds r using a temporary artificial variable and
// reports whether the artificial objective reached zero.
func (s *Solver) addWithArtificialVariable(r *row) (bool, error) {
	art := s.newSymbol(slackSymbol)
	s.rows[art] = r.clone()
	s.artificial = r.clone()

	err := s.optimize(s.artificial)
	success := nearZero(s.artificial.constant)
	s.artificial = nil
	if err != nil {
		return false, err
	}

	if artRow, ok := s.rows[art]; ok {
		delete(s.rows, art)
		if len(artRow.cells) == 0 {
			return success, nil
		}
		entering := anyPivotableSymbol(artRow)
		if !entering.valid() {
			return false, nil
		}
		artRow.solveForPair(art, entering)
		s.substitute(entering, artRow)
		s.rows[entering] = artRow
	}

	for _, br := range s.rows {
		br.remove(art)
	}
	s.objective.remove(art)
	return success, nil
}

// rollback retracts whatever part of a rejected required constraint the
// artificial phase left in the tableau, so the system stays satisfiable.
func (s *Solver) rollback(c *Constraint, t tag) {
	if _, basic := s.rows[t.marker]; basic {
		delete(s.rows, t.marker)
	} else if leaving, r, found := s.markerLeavingRow(t.marker); found {
		delete(s.rows, leaving)
		r.solveForPair(leaving, t.marker)
		s.substitute(t.marker, r)
	}
	s.removeConstraintEffects(c, t)
	_ = s.optimize(s.objective)
}

func anyPivotableSymbol(r *row) symbol {
	for _, sym := range r.symbols() {
		if sym.pivotable() {
			return sym
		}
	}
	return symbol{}
}

// substitute replaces sym with r in every row and the objectives, queueing
// restricted rows that became infeasible.
func (s *Solver) substitute(sym symbol, r *row) {
	for _, basic := range s.basics() {
		br := s.rows[basic]
		br.substitute(sym, r)
		if basic.restricted() && br.constant < 0 {
			s.infeasible = append(s.infeasible, basic)
		}
	}
	s.objective.substitute(sym, r)
	if s.artificial != nil {
		s.artificial.substitute(sym, r)
	}
}

// optimize runs the primal simplex on objective until no entering symbol remains.
func (s *Solver) optimize(objective *row) error {
	for {
		entering := enteringSymbol(objective)
		if !entering.valid() {
			return nil
		}
		leaving, r, found := s.leavingRow(entering)
		if !found {
			return &InternalError{Reason: "the objective is unbounded"}
		}
		delete(s.rows, leaving)
		r.solveForPair(leaving, entering)
		s.substitute(entering, r)
		s.rows[entering] = r
	}
}

// dualOptimize restores feasibility after edit suggestions.
func (s *Solver) dualOptimize() error {
	for len(s.infeasible) > 0 {
		leaving := s.infeasible[len(s.infeasible)-1]
		s.infeasible = s.infeasible[:len(s.infeasible)-1]

		r, ok := s.rows[leaving]
		if !ok || nearZero(r.constant) || r.constant >= 0 {
			continue
		}
		entering := s.dualEnteringSymbol(r)
		if !entering.valid() {
			return &InternalError{Reason: "dual optimize failed"}
		}
		delete(s.rows, leaving)
		r.solveForPair(leaving, entering)
		s.substitute(entering, r)
		s.rows[entering] = r
	}
	return nil
}

func enteringSymbol(objective *row) symbol {
	for _, sym := range objective.symbols() {
		if sym.kind != dummySymbol && objective.cells[sym] < 0 {
			return sym
		}
	}
	return symbol{}
}

func (s *Solver) dualEnteringSymbol(r *row) symbol {
	var entering symbol
	ratio := math.MaxFloat64
	for _, sym := range r.symbols() {
		c := r.cells[sym]
		if c > 0 && sym.kind != dummySymbol {
			q := s.objective.coefficientFor(sym) / c
			if q < ratio {
				ratio = q
				entering = sym
			}
		}
	}
	return entering
}

// leavingRow finds the restricted row that limits entering the most.
func (s *Solver) leavingRow(entering symbol) (symbol, *row, bool) {
	ratio := math.MaxFloat64
	var found symbol
	for _, sym := range s.basics() {
		if !sym.restricted() {
			continue
		}
		r := s.rows[sym]
		c := r.coefficientFor(entering)
		if c < 0 {
			q := -r.constant / c
			if q < ratio {
				ratio = q
				found = sym
			}
		}
	}
	if !found.valid() {
		return symbol{}, nil, false
	}
	return found, s.rows[found], true
}

// markerLeavingRow chooses the row to pivot a non-basic marker into the basis.
func (s *Solver) markerLeavingRow(marker symbol) (symbol, *row, bool) {
	r1, r2 := math.MaxFloat64, math.MaxFloat64
	var first, second, third symbol
	for _, sym := range s.basics() {
		r := s.rows[sym]
		c := r.coefficientFor(marker)
		if c == 0 {
			continue
		}
		switch {
		case sym.kind == externalSymbol:
			third = sym
		case c < 0:
			if q := -r.constant / c; q < r1 {
				r1 = q
				first = sym
			}
		default:
			if q := r.constant / c; q < r2 {
				r2 = q
				second = sym
			}
		}
	}
	for _, sym := range []symbol{first, second, third} {
		if sym.valid() {
			return sym, s.rows[sym], true
		}
	}
	return symbol{}, nil, false
}

func (s *Solver) removeConstraintEffects(c *Constraint, t tag) {
	if t.marker.kind == errorSymbol {
		s.removeMarkerEffects(t.marker, c.strength)
	}
	if t.other.kind == errorSymbol {
		s.removeMarkerEffects(t.other, c.strength)
	}
}

func (s *Solver) removeMarkerEffects(marker symbol, strength Strength) {
	if r, ok := s.rows[marker]; ok {
		s.objective.insertRow(r, -float64(strength))
	} else {
		s.objective.insertSymbol(marker, -float64(strength))
	}
}
