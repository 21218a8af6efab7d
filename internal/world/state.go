package world

import (
	"fmt"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
)

// State is the whole simulated world: the entity pool, one component store
// per capability, and the active locations.
// Accessed only from the simulation goroutine; no locks needed.
type State struct {
	World *ecs.World
	Bus   *event.Bus

	Entities    *ecs.PtrComponentStore[Entity]
	Positions   *ecs.PtrComponentStore[Position]
	Combat      *ecs.PtrComponentStore[Combat]
	Actors      *ecs.PtrComponentStore[Actor]
	Perceptions *ecs.PtrComponentStore[Perception]
	Inventories *ecs.PtrComponentStore[Inventory]
	Equipment   *ecs.PtrComponentStore[Equipment]
	Items       *ecs.PtrComponentStore[Item]
	Effects     *ecs.PtrComponentStore[Effects]

	// EquipHook runs when an item goes on before item_equipped is
	// published, and when it comes off after item_unequipped is published.
	EquipHook func(wearer, item ecs.EntityID, equipped bool)

	locations []*Location
}

// NewState creates an empty world publishing on bus.
func NewState(bus *event.Bus) *State {
	st := &State{
		World:       ecs.NewWorld(),
		Bus:         bus,
		Entities:    ecs.NewPtrComponentStore[Entity](),
		Positions:   ecs.NewPtrComponentStore[Position](),
		Combat:      ecs.NewPtrComponentStore[Combat](),
		Actors:      ecs.NewPtrComponentStore[Actor](),
		Perceptions: ecs.NewPtrComponentStore[Perception](),
		Inventories: ecs.NewPtrComponentStore[Inventory](),
		Equipment:   ecs.NewPtrComponentStore[Equipment](),
		Items:       ecs.NewPtrComponentStore[Item](),
		Effects:     ecs.NewPtrComponentStore[Effects](),
	}
	reg := st.World.Registry()
	reg.Register(st.Entities)
	reg.Register(st.Positions)
	reg.Register(st.Combat)
	reg.Register(st.Actors)
	reg.Register(st.Perceptions)
	reg.Register(st.Inventories)
	reg.Register(st.Equipment)
	reg.Register(st.Items)
	reg.Register(st.Effects)
	st.World.OnDestroy(st.onDestroy)
	return st
}

// Spawn creates an entity with its identity record.
func (st *State) Spawn(e Entity) ecs.EntityID {
	id := st.World.CreateEntity()
	rec := e
	st.Entities.Set(id, &rec)
	return id
}

// Alive reports whether id refers to a live entity.
func (st *State) Alive(id ecs.EntityID) bool { return st.World.Alive(id) }

// Destroy removes id immediately. Subscribers on the entity channel are
// dropped after entity_destroyed is published.
func (st *State) Destroy(id ecs.EntityID) { st.World.Destroy(id) }

// Name returns the display name of id, or "something".
func (st *State) Name(id ecs.EntityID) string {
	if e := st.Entities.Get(id); e != nil {
		return e.Name
	}
	return "something"
}

// Hostile reports whether a and b are combatants of different factions.
func (st *State) Hostile(a, b ecs.EntityID) bool {
	if a == b || !st.Combat.Has(a) || !st.Combat.Has(b) {
		return false
	}
	ea, eb := st.Entities.Get(a), st.Entities.Get(b)
	if ea == nil || eb == nil {
		return false
	}
	return ea.Faction != eb.Faction
}

// LocationOf returns the location id is placed in, or nil.
func (st *State) LocationOf(id ecs.EntityID) *Location {
	if pos := st.Positions.Get(id); pos != nil {
		return pos.Loc
	}
	return nil
}

// Locations returns every location created on this state.
func (st *State) Locations() []*Location { return st.locations }

// AddEquipment gives id equipment slots. Equipment requires an Inventory so
// that unequipping always has somewhere to put the item.
func (st *State) AddEquipment(id ecs.EntityID) *Equipment {
	if !st.Inventories.Has(id) {
		panic(fmt.Sprintf("world: entity %d (%s) has equipment but no inventory", id, st.Name(id)))
	}
	eq := &Equipment{}
	st.Equipment.Set(id, eq)
	return eq
}

// publishEquip fires on the wearer's channel, the item's channel and the
// location channel.
func (st *State) publishEquip(name event.Name, wearer, item ecs.EntityID) {
	p := event.Payload{Entity: wearer, Item: item}
	st.Bus.Publish(event.EntityChannel(wearer), name, p)
	st.Bus.Publish(event.EntityChannel(item), name, p)
	st.Bus.Publish(event.Location, name, p)
}

// publish fires on the entity's own channel and on the location channel.
func (st *State) publish(id ecs.EntityID, name event.Name, p event.Payload) {
	st.Bus.Publish(event.EntityChannel(id), name, p)
	st.Bus.Publish(event.Location, name, p)
}

func (st *State) onDestroy(id ecs.EntityID) {
	if pos := st.Positions.Get(id); pos != nil && pos.Loc != nil {
		pos.Loc.Remove(id)
	}
	if it := st.Items.Get(id); it != nil && !it.Holder.IsZero() {
		RemoveFromInventory(st, it.Holder, id)
	}
	if inv := st.Inventories.Get(id); inv != nil {
		for _, item := range inv.Items {
			st.World.MarkForDestruction(item)
		}
	}
	st.publish(id, event.EntityDestroyed, event.Payload{Entity: id})
	st.Bus.DropChannel(event.EntityChannel(id))
}
