package scene

import (
	"slices"

	"github.com/matzehuels/framekit/pkg/core/solver"
	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/ecs"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/event"
	"github.com/matzehuels/framekit/pkg/layout"
)

// RootName is the name the root entity is reported under.
const RootName = RefRoot

// Node is a snapshot of one entity after a tick.
type Node struct {
	Name   string               `json:"name" yaml:"name"`
	Parent string               `json:"parent,omitempty" yaml:"parent,omitempty"` // empty for the root
	Rect   layout.Rect          `json:"rect" yaml:"rect"`
	State  draw.VisibilityState `json:"state" yaml:"state"`
	Refs   []string             `json:"refs,omitempty" yaml:"refs,omitempty"` // other entities its constraints reference
}

type node struct {
	name   string
	parent string
	entity ecs.Entity
	pos    *layout.Position
	refs   []string
}

// World is a running scene: storages, channels and a layout engine built
// from a Document. A World is driven from a single goroutine.
type World struct {
	doc *Document

	entities         *ecs.Entities
	root             ecs.Entity
	positions        *ecs.Storage[*layout.Position]
	constraints      *layout.ConstraintsStorage
	visibility       *ecs.Storage[draw.Visibility]
	dimensions       *event.Channel[layout.ScreenDimensions]
	visibilityEvents *event.Channel[draw.VisibilityEvent]
	engine           *layout.Engine

	nodes map[string]*node
	order []string
}

// Build validates doc, then creates its entities and their constraints. The
// first Tick lays them out.
func Build(doc *Document, opts layout.Options) (*World, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		doc:              doc,
		entities:         ecs.NewEntities(),
		positions:        ecs.NewStorage[*layout.Position](),
		constraints:      layout.NewConstraintsStorage(),
		visibility:       ecs.NewStorage[draw.Visibility](),
		dimensions:       event.NewChannel[layout.ScreenDimensions](),
		visibilityEvents: event.NewChannel[draw.VisibilityEvent](),
		nodes:            make(map[string]*node, len(doc.Entities)+1),
	}
	w.root = w.entities.Create()

	engine, err := layout.NewEngine(layout.Resources{
		Root:             w.root,
		Positions:        w.positions,
		Constraints:      w.constraints,
		Visibility:       w.visibility,
		Dimensions:       w.dimensions,
		VisibilityEvents: w.visibilityEvents,
		Initial:          layout.ScreenDimensions{Width: doc.Window.Width, Height: doc.Window.Height},
	}, opts)
	if err != nil {
		return nil, err
	}
	w.engine = engine

	rootPos, _ := w.positions.Get(w.root)
	w.nodes[RootName] = &node{name: RootName, entity: w.root, pos: rootPos}
	for _, ent := range doc.Entities {
		w.nodes[ent.Name] = &node{
			name:   ent.Name,
			parent: ent.Parent,
			entity: w.entities.Create(),
			pos:    layout.NewPosition(ent.Name),
		}
		w.order = append(w.order, ent.Name)
	}

	for _, ent := range doc.Entities {
		n := w.nodes[ent.Name]
		normal, err := w.resolveAll(n, ent.Constraints)
		if err != nil {
			w.Close()
			return nil, err
		}
		collapsed, err := w.resolveAll(n, ent.Collapsed)
		if err != nil {
			w.Close()
			return nil, err
		}
		cons := layout.NewConstraints(n.pos, normal...)
		cons.SetCollapsed(collapsed...)
		w.constraints.Insert(n.entity, cons)
		draw.SetVisibility(w.visibility, w.visibilityEvents, n.entity, ent.State())
	}
	return w, nil
}

func (w *World) resolveAll(n *node, sources []string) ([]*solver.Constraint, error) {
	out := make([]*solver.Constraint, 0, len(sources))
	for _, src := range sources {
		expr, err := ParseExpr(src)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScene, err, "entity %q", n.name)
		}
		c, err := expr.Resolve(func(ref string) (*layout.Position, error) {
			target, err := w.resolveRef(n, ref)
			if err != nil {
				return nil, err
			}
			if target != n.name && !slices.Contains(n.refs, target) {
				n.refs = append(n.refs, target)
			}
			return w.nodes[target].pos, nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// resolveRef maps a reference keyword or entity name to an entity name.
func (w *World) resolveRef(n *node, ref string) (string, error) {
	switch ref {
	case RefSelf:
		return n.name, nil
	case RefRoot:
		return RootName, nil
	case RefParent:
		if n.parent == "" {
			return RootName, nil
		}
		if _, ok := w.nodes[n.parent]; !ok {
			return "", errors.New(errors.ErrCodeUnknownEntity, "entity %q has unknown parent %q", n.name, n.parent)
		}
		return n.parent, nil
	case RefPrev:
		i := slices.Index(w.order, n.name)
		for j := i - 1; j >= 0; j-- {
			if w.nodes[w.order[j]].parent == n.parent {
				return w.order[j], nil
			}
		}
		return "", errors.New(errors.ErrCodeUnknownEntity, "entity %q has no previous sibling", n.name)
	}
	if _, ok := w.nodes[ref]; !ok {
		return "", errors.New(errors.ErrCodeUnknownEntity, "entity %q references unknown entity %q", n.name, ref)
	}
	return ref, nil
}

// Tick runs one layout pass.
func (w *World) Tick() layout.TickStats { return w.engine.Tick() }

// Resize queues a window size for the next tick.
func (w *World) Resize(width, height uint32) {
	w.dimensions.Write(layout.ScreenDimensions{Width: width, Height: height})
}

// Dimensions returns the window size applied by the last tick.
func (w *World) Dimensions() layout.ScreenDimensions { return w.engine.Dimensions() }

// SetVisibility changes the visibility of the named entity. The layout
// effect is applied by the next tick.
func (w *World) SetVisibility(name string, state draw.VisibilityState) error {
	n, err := w.lookup(name)
	if err != nil {
		return err
	}
	if n.name == RootName {
		return errors.New(errors.ErrCodeInvalidInput, "the root entity is always visible")
	}
	draw.SetVisibility(w.visibility, w.visibilityEvents, n.entity, state)
	return nil
}

// Toggle switches the named entity between state and Visible.
func (w *World) Toggle(name string, state draw.VisibilityState) error {
	current, err := w.Visibility(name)
	if err != nil {
		return err
	}
	if current == state {
		state = draw.Visible
	}
	return w.SetVisibility(name, state)
}

// Visibility returns the visibility of the named entity.
func (w *World) Visibility(name string) (draw.VisibilityState, error) {
	n, err := w.lookup(name)
	if err != nil {
		return draw.Visible, err
	}
	v, ok := w.visibility.Get(n.entity)
	if !ok {
		return draw.Visible, nil
	}
	return v.Get(), nil
}

// Rect returns the resolved rectangle of the named entity.
func (w *World) Rect(name string) (layout.Rect, error) {
	n, err := w.lookup(name)
	if err != nil {
		return layout.Rect{}, err
	}
	return n.pos.Rect(), nil
}

// Names returns the entity names in document order, without the root.
func (w *World) Names() []string { return slices.Clone(w.order) }

// Document returns the document the world was built from.
func (w *World) Document() *Document { return w.doc }

// Nodes returns a snapshot of the root followed by every entity in
// document order.
func (w *World) Nodes() []Node {
	out := make([]Node, 0, len(w.order)+1)
	for _, name := range append([]string{RootName}, w.order...) {
		n := w.nodes[name]
		state, _ := w.Visibility(name)
		out = append(out, Node{
			Name:   name,
			Parent: w.parentName(n),
			Rect:   n.pos.Rect(),
			State:  state,
			Refs:   slices.Clone(n.refs),
		})
	}
	return out
}

func (w *World) parentName(n *node) string {
	switch {
	case n.name == RootName:
		return ""
	case n.parent == "":
		return RootName
	}
	return n.parent
}

// Close releases the engine's event readers.
func (w *World) Close() { w.engine.Close() }

func (w *World) lookup(name string) (*node, error) {
	n, ok := w.nodes[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownEntity, "no entity named %q", name)
	}
	return n, nil
}
