package ecs

// Each2 visits entities that carry both component A and B, in ascending id
// order. It walks the smaller store and looks each entity up in the larger one.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for _, id := range sa.IDs() {
			if b, ok := sb.data[id]; ok {
				fn(id, sa.data[id], b)
			}
		}
		return
	}
	for _, id := range sb.IDs() {
		if a, ok := sa.data[id]; ok {
			fn(id, a, sb.data[id])
		}
	}
}
