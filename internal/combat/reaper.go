package combat

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// LootFunc rolls the named drop table and places the results on (x, y).
type LootFunc func(table string, loc *world.Location, x, y int)

// Reaper performs end-of-tick death processing.
type Reaper struct {
	st   *world.State
	narr *gamelog.Narrator
	log  *zap.Logger
	loot LootFunc
}

// NewReaper creates a reaper; loot may be nil.
func NewReaper(st *world.State, narr *gamelog.Narrator, log *zap.Logger, loot LootFunc) *Reaper {
	return &Reaper{st: st, narr: narr, log: log.Named("reaper"), loot: loot}
}

// Reap processes every entity marked dead in loc, including those that die
// as a consequence of reaping. Returns how many were reaped.
func (r *Reaper) Reap(loc *world.Location) int {
	n := 0
	for loc.PendingDead() > 0 {
		for _, id := range loc.TakeDead() {
			if r.reapOne(loc, id) {
				n++
			}
		}
	}
	return n
}

func (r *Reaper) reapOne(loc *world.Location, id ecs.EntityID) bool {
	if !r.st.Alive(id) {
		return false
	}
	name := r.st.Name(id)
	pos := r.st.Positions.Get(id)

	loc.Manager.CancelActor(id)
	if a := r.st.Actors.Get(id); a != nil {
		a.Action = nil
	}
	r.st.Bus.Publish(event.EntityChannel(id), event.Died, event.Payload{Entity: id})

	if pos != nil && pos.Loc == loc {
		x, y := pos.X, pos.Y
		r.scatter(loc, id, x, y)
		c := r.st.Combat.Get(id)
		if c != nil && c.Drops != "" && r.loot != nil {
			r.loot(c.Drops, loc, x, y)
		}
		if c != nil && c.LeavesCorpse {
			corpse := r.st.Spawn(world.Entity{
				Name:  name + " corpse",
				Glyph: '%',
				Color: "red",
				Kind:  world.KindCorpse,
			})
			r.st.Items.Set(corpse, &world.Item{Weight: 50})
			loc.Place(corpse, x, y)
		}
	}

	r.st.Bus.Publish(event.Location, event.EntityDied, event.Payload{Entity: id})
	if a := r.st.Actors.Get(id); a != nil && a.Player {
		r.narr.Say(gamelog.ColorDanger, "You die...")
	} else {
		r.narr.Say(gamelog.ColorInfo, "%s dies.", name)
	}
	r.log.Debug("reaped", zap.Uint64("entity", uint64(id)), zap.String("name", name))
	r.st.Destroy(id)
	return true
}

// scatter unequips everything and drops the whole inventory on (x, y).
func (r *Reaper) scatter(loc *world.Location, id ecs.EntityID, x, y int) {
	if eq := r.st.Equipment.Get(id); eq != nil {
		for _, item := range eq.Worn() {
			world.Unequip(r.st, id, item)
		}
	}
	inv := r.st.Inventories.Get(id)
	if inv == nil {
		return
	}
	items := make([]ecs.EntityID, len(inv.Items))
	copy(items, inv.Items)
	for _, item := range items {
		if world.RemoveFromInventory(r.st, id, item) {
			loc.Place(item, x, y)
		}
	}
}
