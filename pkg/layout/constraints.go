package layout

import (
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/framekit/pkg/core/solver"
	"github.com/matzehuels/framekit/pkg/ecs"
)

// UpdateKind distinguishes the two constraint operations.
type UpdateKind int

const (
	AddConstraint UpdateKind = iota
	RemoveConstraint
)

// String implements fmt.Stringer.
func (k UpdateKind) String() string {
	if k == AddConstraint {
		return "add"
	}
	return "remove"
}

// ConstraintUpdate is one pending solver operation.
type ConstraintUpdate struct {
	Entity     ecs.Entity
	Kind       UpdateKind
	Constraint *solver.Constraint
	seq        uint64
}

// String implements fmt.Stringer.
func (u ConstraintUpdate) String() string {
	return fmt.Sprintf("%s %s %s", u.Entity, u.Kind, u.Constraint)
}

// Constraints is the constraint component of an entity. It holds the normal
// constraint set, the set substituted while the entity is collapsed, and the
// queue of operations not yet applied to the solver.
//
// While collapsed, each normal constraint that places the entity's left or
// top edge stays active as a flow constraint: a copy with the entity's own
// width and height taken as zero, at no more than Strong strength. Siblings
// chained to the entity therefore lay out as if it had zero size.
type Constraints struct {
	pos       *Position
	normal    []*solver.Constraint
	collapsed []*solver.Constraint
	flow      []*solver.Constraint
	flowOf    map[*solver.Constraint]*solver.Constraint
	expanded  bool
	pending   []ConstraintUpdate
	clock     *uint64
}

// NewConstraints returns an expanded component for pos and queues an add
// for each constraint.
func NewConstraints(pos *Position, cons ...*solver.Constraint) *Constraints {
	c := &Constraints{
		pos:       pos,
		collapsed: zeroSize(pos),
		flowOf:    make(map[*solver.Constraint]*solver.Constraint),
		expanded:  true,
	}
	for _, cn := range cons {
		c.Add(cn)
	}
	return c
}

func zeroSize(pos *Position) []*solver.Constraint {
	return []*solver.Constraint{
		solver.NewConstraint(pos.Width().Expr(), solver.EQ, solver.Constant(0), solver.Required).
			WithLabel(pos.Width().Name() + " == 0"),
		solver.NewConstraint(pos.Height().Expr(), solver.EQ, solver.Constant(0), solver.Required).
			WithLabel(pos.Height().Name() + " == 0"),
	}
}

// flowConstraint returns the collapsed stand-in for cn, or nil when cn does
// not involve the entity's left or top edge once its size is zero.
func (c *Constraints) flowConstraint(cn *solver.Constraint) *solver.Constraint {
	if g, ok := c.flowOf[cn]; ok {
		return g
	}

	expr := cn.Expression()
	coef := make(map[solver.Variable]float64, len(expr.Terms))
	var order []solver.Variable
	for _, t := range expr.Terms {
		if t.Variable == c.pos.width || t.Variable == c.pos.height {
			continue
		}
		if _, seen := coef[t.Variable]; !seen {
			order = append(order, t.Variable)
		}
		coef[t.Variable] += t.Coefficient
	}

	var terms []solver.Term
	placed := false
	for _, v := range order {
		k := coef[v]
		if math.Abs(k) < flowEpsilon {
			continue
		}
		terms = append(terms, solver.Term{Variable: v, Coefficient: k})
		if v == c.pos.left || v == c.pos.top {
			placed = true
		}
	}

	var g *solver.Constraint
	if placed {
		strength := min(cn.Strength(), solver.Strong)
		g = solver.NewConstraint(solver.NewExpression(expr.Constant, terms...), cn.Operator(), solver.Constant(0), strength).
			WithLabel(fmt.Sprintf("collapsed flow of %s", cn))
	}
	c.flowOf[cn] = g
	return g
}

const flowEpsilon = 1e-8

// currentFlow returns the flow constraints of the normal set, in its order,
// and forgets those of constraints no longer in it.
func (c *Constraints) currentFlow() []*solver.Constraint {
	var out []*solver.Constraint
	for _, cn := range c.normal {
		if g := c.flowConstraint(cn); g != nil {
			out = append(out, g)
		}
	}
	for cn := range c.flowOf {
		if !slices.Contains(c.normal, cn) {
			delete(c.flowOf, cn)
		}
	}
	return out
}

// refreshFlow brings the live flow constraints in line with the normal set.
func (c *Constraints) refreshFlow() {
	if !c.expanded {
		c.flow = c.diff(c.flow, c.currentFlow(), true)
	}
}

// collapsedSet is everything active while collapsed.
func (c *Constraints) collapsedSet() []*solver.Constraint {
	return append(slices.Clone(c.collapsed), c.flow...)
}

// Position returns the position the constraints were built for.
func (c *Constraints) Position() *Position { return c.pos }

// Add appends cn to the normal set. While expanded the add is queued even if
// cn is already in the set, so the solver reports the duplicate.
func (c *Constraints) Add(cn *solver.Constraint) {
	if !slices.Contains(c.normal, cn) {
		c.normal = append(c.normal, cn)
	}
	if c.expanded {
		c.queue(AddConstraint, cn)
	}
	c.refreshFlow()
}

// Remove drops cn from the normal set. While expanded the removal is queued
// even if cn was never added, so the solver reports the unknown constraint.
func (c *Constraints) Remove(cn *solver.Constraint) {
	if i := slices.Index(c.normal, cn); i >= 0 {
		c.normal = slices.Delete(c.normal, i, i+1)
	}
	if c.expanded {
		c.queue(RemoveConstraint, cn)
	}
	c.refreshFlow()
}

// Replace makes cons the normal set, queueing only the difference.
func (c *Constraints) Replace(cons ...*solver.Constraint) {
	c.normal = c.diff(c.normal, cons, c.expanded)
	c.refreshFlow()
}

// SetCollapsed sets constraints that hold only while the entity is collapsed,
// in addition to the zero size constraints.
func (c *Constraints) SetCollapsed(cons ...*solver.Constraint) {
	next := append(slices.Clone(c.collapsed[:2]), cons...)
	c.collapsed = c.diff(c.collapsed, next, !c.expanded)
}

// diff queues removals for members of old missing from next, then adds for
// members of next missing from old, and returns next.
func (c *Constraints) diff(old, next []*solver.Constraint, live bool) []*solver.Constraint {
	next = slices.Clone(next)
	if !live {
		return next
	}
	for _, cn := range old {
		if !slices.Contains(next, cn) {
			c.queue(RemoveConstraint, cn)
		}
	}
	for _, cn := range next {
		if !slices.Contains(old, cn) {
			c.queue(AddConstraint, cn)
		}
	}
	return next
}

// Collapse swaps the normal set for the collapsed set and its flow
// constraints.
func (c *Constraints) Collapse() {
	if !c.expanded {
		return
	}
	c.expanded = false
	c.flow = c.currentFlow()
	c.swap(c.normal, c.collapsedSet())
}

// Expand swaps the collapsed set and its flow constraints for the normal set.
func (c *Constraints) Expand() {
	if c.expanded {
		return
	}
	c.expanded = true
	c.swap(c.collapsedSet(), c.normal)
	c.flow = nil
}

func (c *Constraints) swap(out, in []*solver.Constraint) {
	for _, cn := range out {
		c.queue(RemoveConstraint, cn)
	}
	for _, cn := range in {
		c.queue(AddConstraint, cn)
	}
}

// IsCollapsed reports whether the collapsed set is active.
func (c *Constraints) IsCollapsed() bool { return !c.expanded }

// Len returns the size of the normal set.
func (c *Constraints) Len() int { return len(c.normal) }

// Pending returns the number of queued operations.
func (c *Constraints) Pending() int { return len(c.pending) }

// Active returns the constraints that belong in the solver in the current
// state.
func (c *Constraints) Active() []*solver.Constraint {
	if c.expanded {
		return slices.Clone(c.normal)
	}
	return c.collapsedSet()
}

func (c *Constraints) queue(kind UpdateKind, cn *solver.Constraint) {
	u := ConstraintUpdate{Kind: kind, Constraint: cn}
	if c.clock != nil {
		*c.clock++
		u.seq = *c.clock
	}
	c.pending = append(c.pending, u)
}

// attach binds c to a storage clock and stamps operations queued before.
func (c *Constraints) attach(clock *uint64) {
	c.clock = clock
	for i := range c.pending {
		*clock++
		c.pending[i].seq = *clock
	}
}

// ConstraintsStorage is the per-entity Constraints store. Operations queued
// on any member are drained together, in the order they were queued.
type ConstraintsStorage struct {
	store   *ecs.Storage[*Constraints]
	clock   uint64
	orphans []ConstraintUpdate
}

// NewConstraintsStorage returns an empty storage.
func NewConstraintsStorage() *ConstraintsStorage {
	return &ConstraintsStorage{store: ecs.NewStorage[*Constraints]()}
}

// Insert attaches c to e. A previous component of e is retracted: its
// pending operations still drain and its active constraints are removed.
func (s *ConstraintsStorage) Insert(e ecs.Entity, c *Constraints) {
	if old, ok := s.store.Get(e); ok && old != c {
		s.retract(e, old)
	}
	c.attach(&s.clock)
	s.store.Insert(e, c)
}

// Get returns the component of e.
func (s *ConstraintsStorage) Get(e ecs.Entity) (*Constraints, bool) {
	return s.store.Get(e)
}

// Remove detaches the component of e and queues removal of its active
// constraints.
func (s *ConstraintsStorage) Remove(e ecs.Entity) bool {
	c, ok := s.store.Remove(e)
	if !ok {
		return false
	}
	s.retract(e, c)
	return true
}

func (s *ConstraintsStorage) retract(e ecs.Entity, c *Constraints) {
	for _, u := range c.pending {
		u.Entity = e
		s.orphans = append(s.orphans, u)
	}
	c.pending = nil
	for _, cn := range c.Active() {
		s.clock++
		s.orphans = append(s.orphans, ConstraintUpdate{Entity: e, Kind: RemoveConstraint, Constraint: cn, seq: s.clock})
	}
	c.clock = nil
}

// Len returns the number of entities with constraints.
func (s *ConstraintsStorage) Len() int { return s.store.Len() }

// Each calls fn for every component in insertion order.
func (s *ConstraintsStorage) Each(fn func(ecs.Entity, *Constraints)) {
	s.store.Each(fn)
}

// HandleUpdates drains every pending operation across all entities, calls
// fn for each in queue order, and returns how many there were.
func (s *ConstraintsStorage) HandleUpdates(fn func(ConstraintUpdate)) int {
	updates := s.orphans
	s.orphans = nil
	s.store.Each(func(e ecs.Entity, c *Constraints) {
		for _, u := range c.pending {
			u.Entity = e
			updates = append(updates, u)
		}
		c.pending = nil
	})
	slices.SortStableFunc(updates, func(a, b ConstraintUpdate) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	for _, u := range updates {
		fn(u)
	}
	return len(updates)
}
