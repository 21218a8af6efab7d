package ecs

import "sort"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// PtrComponentStore is a generic typed map store for one capability.
// Map iteration order is random; callers that need a stable order use IDs.
type PtrComponentStore[T any] struct {
	data map[EntityID]*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		data: make(map[EntityID]*T, 256),
	}
}

func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

// Get returns the component or nil when id does not carry it.
func (s *PtrComponentStore[T]) Get(id EntityID) *T {
	return s.data[id]
}

// Lookup is the comma-ok form of Get.
func (s *PtrComponentStore[T]) Lookup(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// IDs returns every id in the store in ascending order.
func (s *PtrComponentStore[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits components in ascending id order.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.IDs() {
		fn(id, s.data[id])
	}
}
