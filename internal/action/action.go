// Package action builds the functions callers hand to world.Perform. Each
// one prices itself in register mode from the actor's current speed and
// applies its effect when it fires. An action whose preconditions no longer
// hold at fire time does nothing; it is never partially applied.
package action

import (
	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/combat"
	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// ThrowRange is how far an item without its own range can be thrown.
const ThrowRange = 8

// Set creates actions bound to one simulation.
// Accessed only from the simulation goroutine.
type Set struct {
	st    *world.State
	res   *combat.Resolver
	abil  *ability.System
	narr  *gamelog.Narrator
	log   *zap.Logger
	costs config.CostsConfig
}

func NewSet(st *world.State, res *combat.Resolver, abil *ability.System, narr *gamelog.Narrator,
	log *zap.Logger, costs config.CostsConfig) *Set {
	return &Set{
		st:    st,
		res:   res,
		abil:  abil,
		narr:  narr,
		log:   log.Named("action"),
		costs: costs,
	}
}

// Costs returns the configured base costs.
func (s *Set) Costs() config.CostsConfig { return s.costs }

// timed wraps fire into an action costing base at id's speed.
func (s *Set) timed(id ecs.EntityID, kind string, base int, fire func()) sched.Func {
	return func(a *sched.Action, mode sched.Mode) {
		switch mode {
		case sched.ModeRegister:
			a.Required = world.TicksFor(s.st, id, base)
			a.Scratch["kind"] = kind
		case sched.ModeFire:
			fire()
		}
	}
}

// refuse tells the player why an action did nothing.
func (s *Set) refuse(id ecs.EntityID, kind, msg string, args ...any) {
	s.log.Debug("refused",
		zap.Uint64("entity", uint64(id)),
		zap.String("action", kind),
	)
	if a := s.st.Actors.Get(id); a != nil && a.Player {
		s.narr.Say(gamelog.ColorWarn, msg, args...)
	}
}

func (s *Set) position(id ecs.EntityID) (*world.Location, world.Point, bool) {
	pos := s.st.Positions.Get(id)
	if pos == nil || pos.Loc == nil {
		return nil, world.Point{}, false
	}
	return pos.Loc, pos.Point(), true
}

// ==================== 等待 ====================

// Wait spends a turn doing nothing.
func (s *Set) Wait(id ecs.EntityID) sched.Func {
	return s.timed(id, "wait", s.costs.Wait, func() {})
}

// ==================== 移動 ====================

// Move steps one cell in direction (dx, dy). Stepping into a hostile
// creature attacks it instead.
func (s *Set) Move(id ecs.EntityID, dx, dy int) sched.Func {
	return s.timed(id, "move", s.costs.Move, func() {
		s.step(id, dx, dy)
	})
}

func (s *Set) step(id ecs.EntityID, dx, dy int) bool {
	loc, p, ok := s.position(id)
	if !ok {
		return false
	}
	nx, ny := p.X+dx, p.Y+dy
	if loc.CanEnter(nx, ny) {
		loc.Relocate(id, nx, ny)
		return true
	}
	if occ := loc.Occupant(nx, ny); !occ.IsZero() && s.st.Hostile(id, occ) && s.st.Combat.Has(occ) {
		return s.strike(id, occ)
	}
	s.refuse(id, "move", "You can't go that way.")
	return false
}

// MoveToward takes one step along the shortest path to goal.
func (s *Set) MoveToward(id ecs.EntityID, goal world.Point) sched.Func {
	return s.timed(id, "move", s.costs.Move, func() {
		loc, p, ok := s.position(id)
		if !ok || p == goal {
			return
		}
		path := loc.Path(p, goal)
		if len(path) == 0 {
			s.refuse(id, "move", "There is no way there.")
			return
		}
		next := path[0]
		if !loc.CanEnter(next.X, next.Y) {
			s.refuse(id, "move", "Something is in the way.")
			return
		}
		loc.Relocate(id, next.X, next.Y)
	})
}

// ==================== 攻擊 ====================

// Attack strikes an adjacent target with the wielded weapon, or unarmed.
func (s *Set) Attack(id, target ecs.EntityID) sched.Func {
	return s.timed(id, "attack", s.costs.Attack, func() {
		s.strike(id, target)
	})
}

func (s *Set) strike(id, target ecs.EntityID) bool {
	if !s.st.Alive(target) {
		return false
	}
	tc := s.st.Combat.Get(target)
	if tc == nil || tc.Dead {
		return false
	}
	_, p, ok := s.position(id)
	tp := s.st.Positions.Get(target)
	if !ok || tp == nil || tp.Loc != s.st.LocationOf(id) || !world.Adjacent(p, tp.Point()) {
		s.refuse(id, "attack", "%s is out of reach.", s.st.Name(target))
		return false
	}
	s.res.LandStrike(id, s.meleeStrike(id), target)
	return true
}

// meleeStrike builds the strike of id's wielded weapon or bare hands.
func (s *Set) meleeStrike(id ecs.EntityID) *combat.Strike {
	if eq := s.st.Equipment.Get(id); eq != nil {
		if w := eq.Weapon(); !w.IsZero() {
			if it := s.st.Items.Get(w); it != nil && it.Damage.Max > 0 {
				strike := combat.NewStrike(combat.Melee, it.Damage, it.DamageType)
				strike.Source = w
				return strike
			}
		}
	}
	dmg := world.DamageRange{Min: 1, Max: 2}
	dmgType := "blunt"
	if c := s.st.Combat.Get(id); c != nil {
		if c.Unarmed.Max > 0 {
			dmg = c.Unarmed
		}
		if c.UnarmedType != "" {
			dmgType = c.UnarmedType
		}
	}
	return combat.NewStrike(combat.Melee, dmg, dmgType)
}

// ==================== 遠程 ====================

// Throw hurls one unit of item toward target.
func (s *Set) Throw(id, item ecs.EntityID, target world.Point) sched.Func {
	return s.timed(id, "throw", s.costs.Throw, func() {
		_, p, ok := s.position(id)
		inv := s.st.Inventories.Get(id)
		if !ok || inv == nil || !inv.Has(item) {
			s.refuse(id, "throw", "You don't have that.")
			return
		}
		it := s.st.Items.Get(item)
		reach := ThrowRange
		if it.Range > 0 {
			reach = it.Range
		}
		path := world.Ray(p, target, reach)
		if len(path) == 0 {
			s.refuse(id, "throw", "You can't throw there.")
			return
		}
		dmg := it.Damage
		if dmg.Max <= 0 {
			dmg = world.Fixed(1)
		}
		dmgType := it.DamageType
		if dmgType == "" {
			dmgType = "blunt"
		}
		thrown := world.TakeOne(s.st, id, item)
		if thrown.IsZero() {
			return
		}
		strike := combat.NewStrike(combat.Projectile, dmg, dmgType)
		strike.Source = thrown
		s.res.Launch(id, strike, thrown, path)
	})
}

// Shoot fires the wielded ranged weapon toward target, consuming one unit of
// matching ammunition.
func (s *Set) Shoot(id ecs.EntityID, target world.Point) sched.Func {
	return s.timed(id, "shoot", s.costs.Shoot, func() {
		_, p, ok := s.position(id)
		eq := s.st.Equipment.Get(id)
		if !ok || eq == nil {
			return
		}
		weapon := eq.Weapon()
		w := s.st.Items.Get(weapon)
		if w == nil || w.AmmoType == "" {
			s.refuse(id, "shoot", "You have nothing to shoot with.")
			return
		}
		ammo := world.FindAmmo(s.st, id, w.AmmoType)
		if ammo.IsZero() {
			s.refuse(id, "shoot", "You are out of %s.", w.AmmoType)
			return
		}
		path := world.Ray(p, target, max(w.Range, 1))
		if len(path) == 0 {
			return
		}
		s.consume(id, ammo)
		strike := combat.NewStrike(combat.Projectile, w.Damage, w.DamageType)
		strike.Source = weapon
		s.res.Launch(id, strike, 0, path)
	})
}

// consume uses up one charge of a stack, destroying it when empty.
func (s *Set) consume(holder, item ecs.EntityID) {
	it := s.st.Items.Get(item)
	it.Charges--
	if it.Charges > 0 {
		return
	}
	world.RemoveFromInventory(s.st, holder, item)
	s.st.World.MarkForDestruction(item)
}

// ==================== 物品 ====================

// PickUp takes item from the actor's cell.
func (s *Set) PickUp(id, item ecs.EntityID) sched.Func {
	return s.timed(id, "pick_up", s.costs.PickUp, func() {
		_, p, ok := s.position(id)
		ip := s.st.Positions.Get(item)
		if !ok || ip == nil || ip.Loc != s.st.LocationOf(id) || ip.Point() != p {
			s.refuse(id, "pick_up", "There is nothing here to pick up.")
			return
		}
		name := s.st.Name(item)
		if world.PickUp(s.st, id, item) {
			s.sayPlayer(id, gamelog.ColorInfo, "You pick up %s.", name)
		}
	})
}

// Drop puts item on the actor's cell.
func (s *Set) Drop(id, item ecs.EntityID) sched.Func {
	return s.timed(id, "drop", s.costs.Drop, func() {
		if !world.Drop(s.st, id, item) {
			s.refuse(id, "drop", "You don't have that.")
			return
		}
		s.sayPlayer(id, gamelog.ColorInfo, "You drop %s.", s.st.Name(item))
	})
}

// Equip wears or wields item.
func (s *Set) Equip(id, item ecs.EntityID) sched.Func {
	return s.timed(id, "equip", s.costs.Equip, func() {
		if !world.Equip(s.st, id, item) {
			s.refuse(id, "equip", "You can't equip %s.", s.st.Name(item))
			return
		}
		s.sayPlayer(id, gamelog.ColorInfo, "You equip %s.", s.st.Name(item))
	})
}

// Unequip takes item off.
func (s *Set) Unequip(id, item ecs.EntityID) sched.Func {
	return s.timed(id, "unequip", s.costs.Equip, func() {
		if !world.Unequip(s.st, id, item) {
			s.refuse(id, "unequip", "You are not using %s.", s.st.Name(item))
			return
		}
		s.sayPlayer(id, gamelog.ColorInfo, "You take off %s.", s.st.Name(item))
	})
}

// ==================== 技能 ====================

// UseAbility activates a on target.
func (s *Set) UseAbility(id ecs.EntityID, a *ability.Ability, target ecs.EntityID) sched.Func {
	return s.timed(id, "ability", s.costs.Ability, func() {
		if a.Owner != id || !s.abil.Use(a, target) {
			s.refuse(id, "ability", "Nothing happens.")
		}
	})
}

// UseItem activates the use abilities of a carried item on target, or on
// the user when target is zero. A consumable item loses one unit once
// anything fired.
func (s *Set) UseItem(id, item, target ecs.EntityID) sched.Func {
	return s.timed(id, "use", s.costs.Ability, func() {
		if target.IsZero() {
			target = id
		}
		it := s.st.Items.Get(item)
		if it == nil || s.abil.UseItem(id, item, target) == 0 {
			s.refuse(id, "use", "Nothing happens.")
			return
		}
		if it.Consumable {
			if used := world.TakeOne(s.st, id, item); !used.IsZero() {
				s.st.Destroy(used)
			}
		}
	})
}

// ==================== 門 ====================

// Open opens an adjacent door.
func (s *Set) Open(id, door ecs.EntityID) sched.Func {
	return s.timed(id, "open", s.costs.Door, func() {
		s.setDoor(id, door, true)
	})
}

// Close closes an adjacent door. A door with something standing in it
// stays open.
func (s *Set) Close(id, door ecs.EntityID) sched.Func {
	return s.timed(id, "close", s.costs.Door, func() {
		s.setDoor(id, door, false)
	})
}

func (s *Set) setDoor(id, door ecs.EntityID, open bool) {
	e := s.st.Entities.Get(door)
	dp := s.st.Positions.Get(door)
	_, p, ok := s.position(id)
	if e == nil || e.Kind != world.KindDoor || dp == nil || !ok || dp.Loc != s.st.LocationOf(id) ||
		world.Chebyshev(p, dp.Point()) > 1 {
		s.refuse(id, "door", "There is no door there.")
		return
	}
	if e.Open == open {
		return
	}
	loc := dp.Loc
	if !open && len(loc.EntitiesAt(dp.X, dp.Y)) > 1 {
		s.refuse(id, "door", "Something is blocking the door.")
		return
	}
	e.Open = open
	e.BlocksMove = !open
	e.BlocksSight = !open
	loc.UpdateCell(dp.X, dp.Y)
	loc.InvalidateSeers()

	payload := event.Payload{Entity: door, Attacker: id, X: dp.X, Y: dp.Y}
	s.st.Bus.Publish(event.EntityChannel(door), event.DoorChanged, payload)
	s.st.Bus.Publish(event.Location, event.DoorChanged, payload)
	if open {
		s.sayPlayer(id, gamelog.ColorDefault, "You open the door.")
	} else {
		s.sayPlayer(id, gamelog.ColorDefault, "You close the door.")
	}
}

func (s *Set) sayPlayer(id ecs.EntityID, color gamelog.Color, format string, args ...any) {
	if a := s.st.Actors.Get(id); a != nil && a.Player {
		s.narr.Say(color, format, args...)
	}
}
