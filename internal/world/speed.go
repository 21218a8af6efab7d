package world

import (
	"fmt"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/sched"
)

// BaseSpeed is the speed of an ordinary creature.
const BaseSpeed = 100

// EffectiveSpeed computes id's current speed from its base speed, HASTE and
// SLOWED effects, and the weight it carries. Never cached.
func EffectiveSpeed(st *State, id ecs.EntityID) int {
	base := BaseSpeed
	if a := st.Actors.Get(id); a != nil && a.Speed > 0 {
		base = a.Speed
	}
	haste := EffectSum(st, id, EffectHaste)
	slowed := min(max(EffectSum(st, id, EffectSlowed), 0), 90)
	// base * (1 + haste/100) * (1 - slowed/100), kept in integers until the
	// encumbrance factor so whole results stay exact.
	v := int(float64(base*(100+haste)*(100-slowed)) / 10000 * Encumbrance(st, id))
	if v < 1 {
		v = 1
	}
	return v
}

// Encumbrance returns the speed multiplier from carried and equipped weight.
// 1 when both loads are within the actor's limits.
func Encumbrance(st *State, id ecs.EntityID) float64 {
	a := st.Actors.Get(id)
	if a == nil {
		return 1
	}
	carried, equipped := Loads(st, id)
	f := 1.0
	if a.CarryCapacity > 0 && carried > a.CarryCapacity {
		f *= float64(a.CarryCapacity) / float64(carried)
	}
	if a.Tolerance > 0 && equipped > a.Tolerance {
		f *= float64(a.Tolerance) / float64(equipped)
	}
	return f
}

// TicksFor converts a base action cost into ticks at id's current speed.
func TicksFor(st *State, id ecs.EntityID, base int) int {
	speed := EffectiveSpeed(st, id)
	return (base*100 + speed - 1) / speed
}

// Perform queues fn as id's next action. Returns false when the actor already
// has a pending action. Acting with an entity that is not an actor or is not
// placed in a location is a caller bug.
func Perform(st *State, id ecs.EntityID, fn sched.Func) bool {
	a := st.Actors.Get(id)
	if a == nil {
		panic(fmt.Sprintf("world: perform: %s (%d) is not an actor", st.Name(id), id))
	}
	pos := st.Positions.Get(id)
	if pos == nil || pos.Loc == nil {
		panic(fmt.Sprintf("world: perform: %s (%d) is not in any location", st.Name(id), id))
	}
	if a.Busy() {
		return false
	}
	lane := sched.LaneDefault
	if a.Player {
		lane = sched.LanePlayer
	}
	a.Action = pos.Loc.Manager.Register(id, lane, 0, func(act *sched.Action, mode sched.Mode) {
		if mode == sched.ModeFire {
			if cur := st.Actors.Get(id); cur != nil && cur.Action == act {
				cur.Action = nil
			}
		}
		fn(act, mode)
	})
	return true
}
