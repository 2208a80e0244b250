// Package layout resolves constraint-based UI geometry.
//
// Each laid-out entity carries a [Constraints] component: linear constraints
// over the four variables of its [Position]. The [Engine] owns an
// incremental solver and, once per tick,
//
//  1. applies the newest [ScreenDimensions] event to the root's size,
//  2. collapses or expands entities whose visibility entered or left
//     Collapsed,
//  3. feeds every queued constraint add and remove to the solver, and
//  4. writes the solved values of changed variables into Positions.
//
// Only variables whose values changed are propagated, so a tick with no
// structural or size change leaves every Position untouched.
//
// # Errors
//
// Duplicate adds, unsatisfiable required constraints and removals of
// unknown constraints are logged and skipped. The solver state stays
// satisfiable because a rejected constraint never enters it. A suggestion
// for an unknown edit variable or an internal solver fault panics with an
// [errors.Error], since either means variable bookkeeping is broken.
//
// # Coordinates
//
// Position values live in the solver's coordinate space, whose origin is
// the root's top-left corner. Parent-relative layout is expressed by
// constraining a child's edges against its parent's.
package layout
