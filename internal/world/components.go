package world

import (
	"maps"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/zyedidia/generic/mapset"
)

// Kind is the broad family of an entity.
type Kind int

const (
	KindProp Kind = iota
	KindCreature
	KindItem
	KindDoor
	KindCorpse
	KindProjectile
)

// Point is a cell coordinate.
type Point struct{ X, Y int }

// Entity is the identity record every simulated object carries.
type Entity struct {
	Name     string
	Glyph    rune
	Color    string
	Kind     Kind
	Category string // creature family for actor_is/target_is conditions (e.g. "undead")
	Faction  string // entities of different factions are hostile
	Template string // catalog template name (monsters, items)

	Occupies    bool // at most one occupying entity per cell
	BlocksMove  bool
	BlocksSight bool
	ShotBlock   int // percent chance a passing projectile stops here
	Open        bool
}

// Position places an entity on a location grid.
type Position struct {
	Loc  *Location
	X, Y int
}

// Point returns the position as a Point.
func (p *Position) Point() Point { return Point{p.X, p.Y} }

// DamageRange is an inclusive [Min, Max] damage roll.
type DamageRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Fixed returns a range that always rolls n.
func Fixed(n int) DamageRange { return DamageRange{Min: n, Max: n} }

// Combat holds hit points and base resistances.
type Combat struct {
	HP    int
	MaxHP int
	Armor map[string]int // percent armor by damage type
	Block map[string]int // flat block by damage type
	Dead  bool

	// Unarmed is used when nothing is wielded.
	Unarmed     DamageRange
	UnarmedType string
	// LeavesCorpse controls whether reaping spawns a corpse entity.
	LeavesCorpse bool
	// Drops names the loot table rolled at reap time.
	Drops string
	// Regen restores hit points over time while below maximum.
	Regen    Regen
	RegenAcc int
}

// Regen restores Amount hit points every Every ticks.
type Regen struct {
	Every  int `yaml:"every"`
	Amount int `yaml:"amount"`
}

// HPPercent returns current hit points as a percentage of the maximum.
func (c *Combat) HPPercent() int {
	if c.MaxHP <= 0 {
		return 0
	}
	return c.HP * 100 / c.MaxHP
}

// Actor can act on the scheduler.
type Actor struct {
	Speed  int
	Player bool
	// Action is the single pending action, nil when idle.
	Action *sched.Action
	// CarryCapacity is the carried weight above which the actor slows down.
	CarryCapacity int
	// Tolerance is the equipped weight above which the actor slows down.
	Tolerance int
	// Brain names the scripted AI brain, empty for the built-in one.
	Brain string
}

// Busy reports whether the actor has a pending action.
func (a *Actor) Busy() bool { return a.Action != nil && a.Action.Pending() }

// Perception holds field-of-view state.
type Perception struct {
	Radius  int
	Visible mapset.Set[Point]
	dirty   bool
}

// NewPerception returns a perception that will be computed on first use.
func NewPerception(radius int) *Perception {
	return &Perception{
		Radius:  radius,
		Visible: mapset.New[Point](),
		dirty:   true,
	}
}

// Dirty reports whether the visible set must be recomputed.
func (p *Perception) Dirty() bool { return p.dirty }

// Invalidate forces a recompute on next use.
func (p *Perception) Invalidate() { p.dirty = true }

// Inventory holds owned item handles in pickup order.
type Inventory struct {
	Items []ecs.EntityID
}

// Has reports whether id is in the inventory.
func (inv *Inventory) Has(id ecs.EntityID) bool {
	for _, it := range inv.Items {
		if it == id {
			return true
		}
	}
	return false
}

// Shield is the blocking part of a shield item.
type Shield struct {
	Block      map[string]int `yaml:"block"`
	Durability int            `yaml:"durability"`
}

// Item is a carriable object.
type Item struct {
	Stackable  bool
	Charges    int
	Consumable bool
	Weight     int
	Slot       EquipSlot
	Damage     DamageRange
	DamageType string
	Armor      map[string]int
	Block      map[string]int
	Shield     *Shield
	// AmmoType is the ammunition a ranged weapon consumes; Ammo marks the
	// item as ammunition of that type.
	AmmoType string
	Ammo     string
	Range    int
	Holder   ecs.EntityID
}

// Clone returns a copy that shares no maps or shield with it.
func (it *Item) Clone() *Item {
	c := *it
	c.Armor = maps.Clone(it.Armor)
	c.Block = maps.Clone(it.Block)
	if it.Shield != nil {
		sh := *it.Shield
		sh.Block = maps.Clone(it.Shield.Block)
		c.Shield = &sh
	}
	return &c
}

// TotalWeight returns weight times charges for stacks.
func (it *Item) TotalWeight() int {
	if it.Stackable && it.Charges > 1 {
		return it.Weight * it.Charges
	}
	return it.Weight
}
