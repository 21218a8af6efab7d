package system

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/world"
)

// RegenSystem restores hit points of wounded actors over time.
// Phase 3 (PostUpdate), after the clock has moved.
//
// Each creature keeps its own accumulator: ticks pile up while it is below
// maximum and every Regen.Every of them heal Regen.Amount. A creature at full
// health starts from zero again once wounded.
type RegenSystem struct {
	world *world.State
}

func NewRegenSystem(ws *world.State) *RegenSystem {
	return &RegenSystem{world: ws}
}

func (s *RegenSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RegenSystem) Update(ticks int) {
	for _, loc := range s.world.Locations() {
		if !loc.Active() {
			continue
		}
		for _, id := range loc.Actors() {
			s.tick(id, ticks)
		}
	}
}

func (s *RegenSystem) tick(id ecs.EntityID, ticks int) {
	c := s.world.Combat.Get(id)
	if c == nil || c.Dead || c.HP <= 0 || c.Regen.Every <= 0 || c.Regen.Amount <= 0 {
		return
	}
	if c.HP >= c.MaxHP {
		c.RegenAcc = 0
		return
	}
	c.RegenAcc += ticks
	healed := 0
	for c.RegenAcc >= c.Regen.Every && c.HP < c.MaxHP {
		c.RegenAcc -= c.Regen.Every
		gain := min(c.Regen.Amount, c.MaxHP-c.HP)
		c.HP += gain
		healed += gain
	}
	if healed > 0 {
		p := event.Payload{Entity: id, Damage: healed}
		s.world.Bus.Publish(event.EntityChannel(id), event.Healed, p)
		s.world.Bus.Publish(event.Location, event.Healed, p)
	}
}
