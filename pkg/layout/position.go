package layout

import (
	"fmt"

	"github.com/matzehuels/framekit/pkg/core/solver"
)

// Edge names one geometric attribute of a Position.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeTop
	EdgeWidth
	EdgeHeight
	EdgeRight
	EdgeBottom
	EdgeCenterX
	EdgeCenterY
)

var edgeNames = [...]string{"left", "top", "width", "height", "right", "bottom", "centerx", "centery"}

// String implements fmt.Stringer.
func (e Edge) String() string {
	if e < 0 || int(e) >= len(edgeNames) {
		return fmt.Sprintf("Edge(%d)", int(e))
	}
	return edgeNames[e]
}

// ParseEdge parses the names produced by String.
func ParseEdge(s string) (Edge, bool) {
	for i, name := range edgeNames {
		if name == s {
			return Edge(i), true
		}
	}
	return 0, false
}

// Position is the layout component of an entity: four solver variables and
// the rectangle last resolved from them.
type Position struct {
	left, top, width, height solver.Variable
	rect                     Rect
}

// NewPosition allocates fresh variables named after name.
func NewPosition(name string) *Position {
	return &Position{
		left:   solver.NewVariable(name + ".left"),
		top:    solver.NewVariable(name + ".top"),
		width:  solver.NewVariable(name + ".width"),
		height: solver.NewVariable(name + ".height"),
	}
}

// rootPosition builds the Position whose origin is the pinned zero variable
// and whose size is given by the window edit variables.
func rootPosition(zero, width, height solver.Variable) *Position {
	return &Position{left: zero, top: zero, width: width, height: height}
}

func (p *Position) Left() solver.Variable   { return p.left }
func (p *Position) Top() solver.Variable    { return p.top }
func (p *Position) Width() solver.Variable  { return p.width }
func (p *Position) Height() solver.Variable { return p.height }

// Edge returns the expression for e in terms of the position's variables.
func (p *Position) Edge(e Edge) solver.Expression {
	switch e {
	case EdgeLeft:
		return p.left.Expr()
	case EdgeTop:
		return p.top.Expr()
	case EdgeWidth:
		return p.width.Expr()
	case EdgeHeight:
		return p.height.Expr()
	case EdgeRight:
		return p.left.Plus(p.width.Expr())
	case EdgeBottom:
		return p.top.Plus(p.height.Expr())
	case EdgeCenterX:
		return p.left.Plus(p.width.Times(0.5))
	case EdgeCenterY:
		return p.top.Plus(p.height.Times(0.5))
	}
	panic(fmt.Sprintf("layout: unknown edge %d", int(e)))
}

// Rect returns the last resolved rectangle.
func (p *Position) Rect() Rect { return p.rect }

// Update applies solved values to the rectangle and reports whether any of
// the position's variables appeared in changes.
func (p *Position) Update(changes map[solver.Variable]float64) bool {
	updated := false
	if v, ok := changes[p.left]; ok {
		p.rect.Left = v
		updated = true
	}
	if v, ok := changes[p.top]; ok {
		p.rect.Top = v
		updated = true
	}
	if v, ok := changes[p.width]; ok {
		p.rect.Width = v
		updated = true
	}
	if v, ok := changes[p.height]; ok {
		p.rect.Height = v
		updated = true
	}
	return updated
}

// sync reads every variable through value, for positions that join the
// layout after their variables were already solved.
func (p *Position) sync(value func(solver.Variable) float64) {
	p.rect = Rect{
		Left:   value(p.left),
		Top:    value(p.top),
		Width:  value(p.width),
		Height: value(p.height),
	}
}
