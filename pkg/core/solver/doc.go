// Package solver implements an incremental linear constraint solver based on
// the Cassowary simplex algorithm.
//
// # Overview
//
// A [Solver] maintains a tableau of linear equalities and inequalities over
// [Variable] values. Constraints can be added and removed one at a time and
// the solver keeps an optimal solution after every operation, so interactive
// systems can re-solve after small edits without rebuilding the system.
//
// Every [Constraint] carries a [Strength]. Required constraints must hold;
// weaker constraints are satisfied as closely as possible, with stronger
// constraints winning conflicts against weaker ones.
//
// # Edit Variables
//
// Values driven from outside the system (a window width, a dragged handle)
// are registered with [Solver.AddEditVariable] and updated with
// [Solver.SuggestValue]. Suggestions are resolved with the dual simplex, which
// is far cheaper than re-adding constraints.
//
// # Change Tracking
//
// [Solver.FetchChanges] reports only variables whose value changed since the
// previous call. Callers can use it to propagate geometry incrementally.
//
// # Example
//
//	s := solver.New()
//	left, width := solver.NewVariable("left"), solver.NewVariable("width")
//
//	_ = s.AddConstraint(solver.NewConstraint(left.Expr(), solver.EQ, solver.Constant(10), solver.Required))
//	_ = s.AddEditVariable(width, solver.Strong)
//	_ = s.SuggestValue(width, 300)
//
//	for _, ch := range s.FetchChanges() {
//	    fmt.Println(ch.Variable, ch.Value)
//	}
//
// # Determinism
//
// Pivot selection walks symbols in creation order, never in map order, so the
// same sequence of operations always yields the same tableau and the same
// solution, including for under-constrained systems.
package solver
