package layout

import (
	stderrors "errors"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/framekit/pkg/core/solver"
	"github.com/matzehuels/framekit/pkg/errors"
)

// outcomeKind tags the result of a solver operation.
type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeWarn
	outcomeFatal
)

// outcome is a solver result reduced to what the engine branches on.
type outcome struct {
	kind   outcomeKind
	reason *errors.Error
}

func warn(code errors.Code, format string, args ...any) outcome {
	return outcome{kind: outcomeWarn, reason: errors.New(code, format, args...)}
}

func fatal(code errors.Code, cause error, format string, args ...any) outcome {
	return outcome{kind: outcomeFatal, reason: errors.Wrap(code, cause, format, args...)}
}

// layoutSolver owns the solver, the zero variable and the window edit
// variables, and accumulates changed values between applies.
type layoutSolver struct {
	solver  *solver.Solver
	zero    solver.Variable
	width   solver.Variable
	height  solver.Variable
	changes map[solver.Variable]float64
	logger  *log.Logger
}

func newLayoutSolver(logger *log.Logger, editStrength solver.Strength) *layoutSolver {
	s := &layoutSolver{
		solver:  solver.New(),
		zero:    solver.NewVariable("zero"),
		width:   solver.NewVariable("window.width"),
		height:  solver.NewVariable("window.height"),
		changes: make(map[solver.Variable]float64),
		logger:  logger,
	}
	pin := solver.NewConstraint(s.zero.Expr(), solver.EQ, solver.Constant(0), solver.Required).WithLabel("zero == 0")
	if err := s.solver.AddConstraint(pin); err != nil {
		s.must(fatal(errors.ErrCodeInternalSolver, err, "pin zero variable"))
	}
	for _, v := range []solver.Variable{s.width, s.height} {
		if err := s.solver.AddEditVariable(v, editStrength); err != nil {
			s.must(fatal(errors.ErrCodeInternalSolver, err, "register edit variable %s", v))
		}
	}
	return s
}

// resize suggests a new value for an edit variable.
func (s *layoutSolver) resize(v solver.Variable, value float64) outcome {
	s.logger.Debug("resize", "variable", v, "value", value)
	err := s.solver.SuggestValue(v, value)
	switch {
	case err == nil:
		return outcome{}
	case stderrors.Is(err, solver.ErrUnknownEditVariable):
		return fatal(errors.ErrCodeUnknownEditVariable, err, "suggest %s", v)
	}
	return fatal(errors.ErrCodeInternalSolver, err, "suggest %s", v)
}

func (s *layoutSolver) addConstraint(c *solver.Constraint) outcome {
	err := s.solver.AddConstraint(c)
	switch {
	case err == nil:
		return outcome{}
	case stderrors.Is(err, solver.ErrDuplicateConstraint):
		return warn(errors.ErrCodeDuplicateConstraint, "add %s", c)
	case stderrors.Is(err, solver.ErrUnsatisfiableConstraint):
		return warn(errors.ErrCodeUnsatisfiableConstraint, "add %s", c)
	}
	return fatal(errors.ErrCodeInternalSolver, err, "add %s", c)
}

func (s *layoutSolver) removeConstraint(c *solver.Constraint) outcome {
	err := s.solver.RemoveConstraint(c)
	switch {
	case err == nil:
		return outcome{}
	case stderrors.Is(err, solver.ErrUnknownConstraint):
		return warn(errors.ErrCodeUnknownConstraint, "remove %s", c)
	}
	return fatal(errors.ErrCodeInternalSolver, err, "remove %s", c)
}

// fetchChanges merges the solver's changed values into the accumulator and
// returns it. Later values overwrite earlier ones.
func (s *layoutSolver) fetchChanges() map[solver.Variable]float64 {
	for _, ch := range s.solver.FetchChanges() {
		s.changes[ch.Variable] = ch.Value
	}
	return s.changes
}

func (s *layoutSolver) clearChanges() {
	clear(s.changes)
}

func (s *layoutSolver) value(v solver.Variable) float64 {
	return s.solver.Value(v)
}

// must logs non-ok outcomes, panics on fatal ones, and reports whether o
// was ok.
func (s *layoutSolver) must(o outcome) bool {
	switch o.kind {
	case outcomeOK:
		return true
	case outcomeWarn:
		if o.reason.Code == errors.ErrCodeUnsatisfiableConstraint {
			s.logger.Warn("constraint rejected", "code", o.reason.Code, "op", o.reason.Message)
		} else {
			s.logger.Error("constraint rejected", "code", o.reason.Code, "op", o.reason.Message)
		}
		return false
	}
	s.logger.Error("solver invariant broken", "err", o.reason)
	panic(o.reason)
}
