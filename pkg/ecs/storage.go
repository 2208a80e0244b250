package ecs

// Storage is a sparse per-entity map for one component type. Iteration
// follows insertion order so systems that walk a storage are deterministic.
type Storage[T any] struct {
	components map[Entity]T
	entities   []Entity
}

// NewStorage creates an empty storage for components of type T.
func NewStorage[T any]() *Storage[T] {
	return &Storage[T]{
		components: make(map[Entity]T),
		entities:   make([]Entity, 0, 64),
	}
}

// Insert attaches v to e, replacing any previous component. It returns the
// replaced value and whether there was one.
func (s *Storage[T]) Insert(e Entity, v T) (T, bool) {
	old, exists := s.components[e]
	if !exists {
		s.entities = append(s.entities, e)
	}
	s.components[e] = v
	return old, exists
}

// Get returns the component attached to e.
func (s *Storage[T]) Get(e Entity) (T, bool) {
	v, ok := s.components[e]
	return v, ok
}

// Has reports whether e has a component in this storage.
func (s *Storage[T]) Has(e Entity) bool {
	_, ok := s.components[e]
	return ok
}

// Remove detaches and returns the component of e.
func (s *Storage[T]) Remove(e Entity) (T, bool) {
	v, ok := s.components[e]
	if !ok {
		return v, false
	}
	delete(s.components, e)
	for i, entity := range s.entities {
		if entity == e {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			break
		}
	}
	return v, true
}

// Len returns the number of entities with a component.
func (s *Storage[T]) Len() int { return len(s.entities) }

// Entities returns a copy of the entities with a component, in insertion order.
func (s *Storage[T]) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Each calls fn for every component in insertion order. fn must not insert
// into or remove from s.
func (s *Storage[T]) Each(fn func(Entity, T)) {
	for _, e := range s.entities {
		fn(e, s.components[e])
	}
}

// Clear removes every component.
func (s *Storage[T]) Clear() {
	s.components = make(map[Entity]T)
	s.entities = s.entities[:0]
}
