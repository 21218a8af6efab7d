package world

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
)

// EquipSlot identifies an equipment slot on a creature.
type EquipSlot int

const (
	SlotNone    EquipSlot = 0
	SlotHead    EquipSlot = 1
	SlotBody    EquipSlot = 2
	SlotHands   EquipSlot = 3
	SlotFeet    EquipSlot = 4
	SlotShield  EquipSlot = 5
	SlotCloak   EquipSlot = 6
	SlotRing    EquipSlot = 7
	SlotAmulet  EquipSlot = 8
	SlotWeapon  EquipSlot = 9
	SlotMissile EquipSlot = 10 // ranged weapon
	SlotMax     EquipSlot = 11
)

// Equipment tracks what a creature currently wears.
// Each slot holds an item handle (zero = empty).
type Equipment struct {
	Slots [SlotMax]ecs.EntityID
}

// Get returns the item in a slot, or zero.
func (e *Equipment) Get(slot EquipSlot) ecs.EntityID {
	if slot <= SlotNone || slot >= SlotMax {
		return 0
	}
	return e.Slots[slot]
}

// Set places an item in a slot (or zero to clear).
func (e *Equipment) Set(slot EquipSlot, item ecs.EntityID) {
	if slot > SlotNone && slot < SlotMax {
		e.Slots[slot] = item
	}
}

// SlotOf returns the slot holding item, or SlotNone.
func (e *Equipment) SlotOf(item ecs.EntityID) EquipSlot {
	for s := SlotNone + 1; s < SlotMax; s++ {
		if e.Slots[s] == item {
			return s
		}
	}
	return SlotNone
}

// Worn returns the equipped items in slot order.
func (e *Equipment) Worn() []ecs.EntityID {
	var out []ecs.EntityID
	for s := SlotNone + 1; s < SlotMax; s++ {
		if !e.Slots[s].IsZero() {
			out = append(out, e.Slots[s])
		}
	}
	return out
}

// Weapon returns the wielded melee weapon, or zero.
func (e *Equipment) Weapon() ecs.EntityID { return e.Slots[SlotWeapon] }

// SlotFromName maps a catalog slot name to an EquipSlot.
func SlotFromName(name string) EquipSlot {
	switch name {
	case "head", "helm":
		return SlotHead
	case "body", "armor":
		return SlotBody
	case "hands", "gloves":
		return SlotHands
	case "feet", "boots":
		return SlotFeet
	case "shield":
		return SlotShield
	case "cloak":
		return SlotCloak
	case "ring":
		return SlotRing
	case "amulet":
		return SlotAmulet
	case "weapon":
		return SlotWeapon
	case "missile", "bow":
		return SlotMissile
	}
	return SlotNone
}

// Equip wears item, which must be in the wearer's inventory. Anything
// already in the slot is unequipped first.
func Equip(st *State, wearer, item ecs.EntityID) bool {
	eq := st.Equipment.Get(wearer)
	inv := st.Inventories.Get(wearer)
	it := st.Items.Get(item)
	if eq == nil || inv == nil || it == nil || it.Slot == SlotNone || !inv.Has(item) {
		return false
	}
	if eq.SlotOf(item) != SlotNone {
		return false
	}
	if prev := eq.Get(it.Slot); !prev.IsZero() {
		Unequip(st, wearer, prev)
	}
	eq.Set(it.Slot, item)
	if st.EquipHook != nil {
		st.EquipHook(wearer, item, true)
	}
	st.publishEquip(event.ItemEquipped, wearer, item)
	return true
}

// Unequip takes item off; it stays in the inventory.
func Unequip(st *State, wearer, item ecs.EntityID) bool {
	eq := st.Equipment.Get(wearer)
	if eq == nil {
		return false
	}
	slot := eq.SlotOf(item)
	if slot == SlotNone {
		return false
	}
	eq.Set(slot, 0)
	st.publishEquip(event.ItemUnequipped, wearer, item)
	if st.EquipHook != nil {
		st.EquipHook(wearer, item, false)
	}
	return true
}

// EquippedShield returns the wearer's shield item and its shield data.
func EquippedShield(st *State, wearer ecs.EntityID) (ecs.EntityID, *Shield) {
	eq := st.Equipment.Get(wearer)
	if eq == nil {
		return 0, nil
	}
	id := eq.Get(SlotShield)
	if it := st.Items.Get(id); it != nil && it.Shield != nil {
		return id, it.Shield
	}
	return 0, nil
}
