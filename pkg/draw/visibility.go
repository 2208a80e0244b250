// Package draw holds the per-entity state renderers consult, most notably
// [Visibility].
package draw

import (
	"fmt"
	"strings"

	"github.com/matzehuels/framekit/pkg/ecs"
	"github.com/matzehuels/framekit/pkg/event"
)

// VisibilityState is the tri-state visibility of an entity.
type VisibilityState int

const (
	// Visible entities are laid out and drawn.
	Visible VisibilityState = iota
	// Hidden entities keep their layout space but are not drawn.
	Hidden
	// Collapsed entities are laid out with zero size and are not drawn.
	Collapsed
)

// String implements fmt.Stringer.
func (s VisibilityState) String() string {
	switch s {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Collapsed:
		return "collapsed"
	}
	return fmt.Sprintf("VisibilityState(%d)", int(s))
}

// ParseVisibilityState parses the names produced by String. The empty
// string parses as Visible.
func ParseVisibilityState(s string) (VisibilityState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "visible":
		return Visible, nil
	case "hidden":
		return Hidden, nil
	case "collapsed":
		return Collapsed, nil
	}
	return Visible, fmt.Errorf("unknown visibility %q (must be one of: visible, hidden, collapsed)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s VisibilityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *VisibilityState) UnmarshalText(b []byte) error {
	v, err := ParseVisibilityState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Visibility is the visibility component.
type Visibility struct {
	state VisibilityState
}

// NewVisibility returns a Visible component.
func NewVisibility() Visibility {
	return Visibility{state: Visible}
}

// Get returns the current state.
func (v Visibility) Get() VisibilityState { return v.state }

// NeedsDraw reports whether renderers should draw the entity.
func (v Visibility) NeedsDraw() bool { return v.state == Visible }

// Set changes the state and writes a VisibilityEvent when it actually changed.
func (v *Visibility) Set(state VisibilityState, entity ecs.Entity, events *event.Channel[VisibilityEvent]) {
	old := v.state
	v.state = state
	if old != state {
		events.Write(VisibilityEvent{Entity: entity, Old: old, New: state})
	}
}

// VisibilityEvent records one visibility transition.
type VisibilityEvent struct {
	Entity ecs.Entity
	Old    VisibilityState
	New    VisibilityState
}

// NeedsLayoutChanged reports whether the transition affects layout, and if so
// whether the entity now needs layout (true) or must collapse (false).
// Only transitions into or out of Collapsed are structural.
func (ev VisibilityEvent) NeedsLayoutChanged() (needsLayout, changed bool) {
	switch {
	case ev.Old == Collapsed && ev.New == Collapsed:
		return false, false
	case ev.Old == Collapsed:
		return true, true
	case ev.New == Collapsed:
		return false, true
	}
	return false, false
}

// SetVisibility updates the Visibility component of e in store, creating it
// when missing, and reports the transition on events.
func SetVisibility(store *ecs.Storage[Visibility], events *event.Channel[VisibilityEvent], e ecs.Entity, state VisibilityState) {
	v, ok := store.Get(e)
	if !ok {
		v = NewVisibility()
	}
	v.Set(state, e, events)
	store.Insert(e, v)
}
