// Package ecs provides the entity allocator and sparse component storage the
// layout engine and its collaborators share.
//
// Storage is deliberately not goroutine-safe: every system that writes a
// component runs on the tick goroutine, and readers such as renderers run
// after the tick has completed.
package ecs

import "strconv"

// Entity is an opaque identifier for a scene element. The zero Entity is never
// allocated and can be used as a sentinel.
type Entity uint64

// String implements fmt.Stringer.
func (e Entity) String() string { return "e" + strconv.FormatUint(uint64(e), 10) }

// Entities allocates entity identifiers and tracks which are alive.
// Identifiers are never reused.
type Entities struct {
	next  uint64
	alive map[Entity]struct{}
}

// NewEntities returns an empty allocator.
func NewEntities() *Entities {
	return &Entities{alive: make(map[Entity]struct{})}
}

// Create allocates a new live entity.
func (es *Entities) Create() Entity {
	es.next++
	e := Entity(es.next)
	es.alive[e] = struct{}{}
	return e
}

// Delete marks e as dead. It reports whether e was alive.
func (es *Entities) Delete(e Entity) bool {
	if _, ok := es.alive[e]; !ok {
		return false
	}
	delete(es.alive, e)
	return true
}

// IsAlive reports whether e was created and not deleted.
func (es *Entities) IsAlive(e Entity) bool {
	_, ok := es.alive[e]
	return ok
}

// Len returns the number of live entities.
func (es *Entities) Len() int { return len(es.alive) }
