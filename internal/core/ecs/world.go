package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed once per tick by the
// cleanup phase.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
	onDestroy    []func(EntityID)
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
		queued:       make(map[EntityID]struct{}, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// OnDestroy registers a hook that runs before an entity's components are
// dropped. Hooks run in registration order.
func (w *World) OnDestroy(fn func(EntityID)) {
	w.onDestroy = append(w.onDestroy, fn)
}

// Destroy runs the destroy hooks, clears every store and retires the id.
// Destroying a stale id is a no-op.
func (w *World) Destroy(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	for _, fn := range w.onDestroy {
		fn(id)
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Queueing the
// same entity twice is harmless.
func (w *World) MarkForDestruction(id EntityID) {
	if _, ok := w.queued[id]; ok {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending reports the number of queued destructions.
func (w *World) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities in queue order, including
// any queued by destroy hooks while flushing.
func (w *World) FlushDestroyQueue() {
	for i := 0; i < len(w.destroyQueue); i++ {
		id := w.destroyQueue[i]
		w.Destroy(id)
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
