package world

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
)

// AddToInventory gives item to holder and returns the handle that now
// represents it. A stackable item merges its charges into an existing stack
// of the same name; the incoming entity is then destroyed and the stack's
// handle returned.
func AddToInventory(st *State, holder, item ecs.EntityID) ecs.EntityID {
	inv := st.Inventories.Get(holder)
	it := st.Items.Get(item)
	if inv == nil || it == nil {
		return 0
	}
	if loc := st.LocationOf(item); loc != nil {
		loc.Remove(item)
	}
	if it.Stackable {
		name := st.Name(item)
		for _, other := range inv.Items {
			o := st.Items.Get(other)
			if o == nil || !o.Stackable || other == item || st.Name(other) != name {
				continue
			}
			o.Charges += max(it.Charges, 1)
			it.Holder = 0
			st.Destroy(item)
			return other
		}
	}
	inv.Items = append(inv.Items, item)
	it.Holder = holder
	return item
}

// RemoveFromInventory takes item away from holder, unequipping it first.
func RemoveFromInventory(st *State, holder, item ecs.EntityID) bool {
	inv := st.Inventories.Get(holder)
	if inv == nil || !inv.Has(item) {
		return false
	}
	if eq := st.Equipment.Get(holder); eq != nil && eq.SlotOf(item) != SlotNone {
		Unequip(st, holder, item)
	}
	inv.Items = removeID(inv.Items, item)
	if it := st.Items.Get(item); it != nil {
		it.Holder = 0
	}
	return true
}

// PickUp moves a floor item into holder's inventory.
func PickUp(st *State, holder, item ecs.EntityID) bool {
	if !st.Inventories.Has(holder) || !st.Items.Has(item) {
		return false
	}
	kept := AddToInventory(st, holder, item)
	if kept.IsZero() {
		return false
	}
	st.publish(holder, event.ItemPickedUp, event.Payload{Entity: holder, Item: kept})
	return true
}

// Drop puts item from holder's inventory onto holder's cell.
func Drop(st *State, holder, item ecs.EntityID) bool {
	pos := st.Positions.Get(holder)
	if pos == nil || !RemoveFromInventory(st, holder, item) {
		return false
	}
	pos.Loc.Place(item, pos.X, pos.Y)
	st.publish(holder, event.ItemDropped, event.Payload{Entity: holder, Item: item})
	return true
}

// TakeOne detaches a single unit of item from holder. A stack of more than
// one charge is split: the stack keeps the rest and a fresh one-charge copy is
// returned. The returned entity is in no inventory and not positioned.
func TakeOne(st *State, holder, item ecs.EntityID) ecs.EntityID {
	it := st.Items.Get(item)
	if it == nil {
		return 0
	}
	if it.Stackable && it.Charges > 1 {
		it.Charges--
		clone := it.Clone()
		clone.Charges = 1
		clone.Holder = 0
		id := st.Spawn(*st.Entities.Get(item))
		st.Items.Set(id, clone)
		return id
	}
	if !RemoveFromInventory(st, holder, item) {
		return 0
	}
	return item
}

// FindAmmo returns the first ammunition stack of ammoType holder carries.
func FindAmmo(st *State, holder ecs.EntityID, ammoType string) ecs.EntityID {
	inv := st.Inventories.Get(holder)
	if inv == nil || ammoType == "" {
		return 0
	}
	for _, id := range inv.Items {
		if it := st.Items.Get(id); it != nil && it.Ammo == ammoType && it.Charges > 0 {
			return id
		}
	}
	return 0
}

// Loads returns the total carried weight and the equipped part of it.
func Loads(st *State, id ecs.EntityID) (carried, equipped int) {
	inv := st.Inventories.Get(id)
	if inv == nil {
		return 0, 0
	}
	eq := st.Equipment.Get(id)
	for _, item := range inv.Items {
		it := st.Items.Get(item)
		if it == nil {
			continue
		}
		w := it.TotalWeight()
		carried += w
		if eq != nil && eq.SlotOf(item) != SlotNone {
			equipped += w
		}
	}
	return carried, equipped
}
