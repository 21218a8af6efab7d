package combat

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// Resolver turns strikes into hit point changes.
// Accessed only from the simulation goroutine.
type Resolver struct {
	st   *world.State
	rng  *rand.Rand
	narr *gamelog.Narrator
	log  *zap.Logger

	flights *ecs.PtrComponentStore[Flight]
	// StepTicks is the delay between two projectile steps.
	StepTicks int
}

// NewResolver creates a resolver drawing from rng.
func NewResolver(st *world.State, rng *rand.Rand, narr *gamelog.Narrator, log *zap.Logger) *Resolver {
	r := &Resolver{
		st:        st,
		rng:       rng,
		narr:      narr,
		log:       log.Named("combat"),
		flights:   ecs.NewPtrComponentStore[Flight](),
		StepTicks: 5,
	}
	st.World.Registry().Register(r.flights)
	return r
}

// Roll draws uniformly from the inclusive range d.
func (r *Resolver) Roll(d world.DamageRange) int {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + r.rng.Intn(d.Max-d.Min+1)
}

// LandStrike resolves s against target and applies the result. Returns the
// damage dealt.
func (r *Resolver) LandStrike(attacker ecs.EntityID, s *Strike, target ecs.EntityID) int {
	if !r.st.Combat.Has(target) {
		panic(fmt.Sprintf("combat: strike on %s (%d), which cannot take damage", r.st.Name(target), target))
	}
	s.Resolved = r.Roll(s.Damage)

	before := event.Payload{Attacker: attacker, Target: target, Entity: target, DamageType: s.DamageType, Strike: s}
	r.st.Bus.Publish(event.EntityChannel(target), event.BeforeStrike, before)
	if !attacker.IsZero() {
		r.st.Bus.Publish(event.EntityChannel(attacker), event.BeforeStrike, before)
	}

	dmg := max(s.Resolved, 0)
	if s.Kind != Periodic && !s.Has(IgnoreShield) {
		dmg = r.shieldBlock(target, s.DamageType, dmg)
	}
	armor, block := r.Protection(target, s.DamageType)
	if s.Has(IgnoreArmor) {
		armor = 0
	}
	dmg = Mitigate(dmg, armor, block)

	r.log.Debug("strike",
		zap.Uint64("attacker", uint64(attacker)),
		zap.Uint64("target", uint64(target)),
		zap.Stringer("kind", s.Kind),
		zap.Int("rolled", s.Resolved),
		zap.Int("armor", armor),
		zap.Int("block", block),
		zap.Int("damage", dmg),
	)
	r.narrateHit(attacker, s, target, dmg)
	r.TakeDamage(attacker, target, dmg, s.DamageType)
	// Periodic ticks come from an earlier hit and must not count as a new
	// attack, or attacked-triggered abilities would start another chain.
	if !attacker.IsZero() && s.Kind != Periodic {
		r.st.Bus.Publish(event.EntityChannel(attacker), event.Attacked,
			event.Payload{Attacker: attacker, Target: target, Damage: dmg, DamageType: s.DamageType})
	}
	return dmg
}

// Protection returns the target's percent armor and flat block against
// dmgType: base resistances, worn items and ARMOR_<type>/BLOCK_<type>
// effects.
func (r *Resolver) Protection(target ecs.EntityID, dmgType string) (armor, block int) {
	if c := r.st.Combat.Get(target); c != nil {
		armor += c.Armor[dmgType]
		block += c.Block[dmgType]
	}
	if eq := r.st.Equipment.Get(target); eq != nil {
		for _, id := range eq.Worn() {
			if it := r.st.Items.Get(id); it != nil {
				armor += it.Armor[dmgType]
				block += it.Block[dmgType]
			}
		}
	}
	suffix := strings.ToUpper(dmgType)
	armor += world.EffectSum(r.st, target, "ARMOR_"+suffix)
	block += world.EffectSum(r.st, target, "BLOCK_"+suffix)
	return armor, block
}

// shieldBlock lets an equipped shield absorb part of dmg.
func (r *Resolver) shieldBlock(target ecs.EntityID, dmgType string, dmg int) int {
	id, sh := world.EquippedShield(r.st, target)
	if sh == nil || sh.Durability <= 0 || dmg <= 0 {
		return dmg
	}
	// A shield only engages damage types it has a block value for.
	// TODO: replace with per-shield engage conditions once the catalog carries them.
	blk := sh.Block[dmgType]
	if blk <= 0 {
		return dmg
	}
	blocked := min(blk, dmg, sh.Durability)
	sh.Durability -= blocked
	if sh.Durability == 0 {
		r.narr.Say(gamelog.ColorWarn, "%s's %s breaks.", r.st.Name(target), r.st.Name(id))
	}
	return dmg - blocked
}

// TakeDamage removes dmg hit points from target. The first time hit points
// reach zero the target is marked dead and queued for reaping.
func (r *Resolver) TakeDamage(attacker, target ecs.EntityID, dmg int, dmgType string) {
	c := r.st.Combat.Get(target)
	if c == nil {
		panic(fmt.Sprintf("combat: damage on %s (%d), which has no hit points", r.st.Name(target), target))
	}
	c.HP -= dmg
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	p := event.Payload{Attacker: attacker, Target: target, Entity: target, Damage: dmg, DamageType: dmgType}
	r.st.Bus.Publish(event.EntityChannel(target), event.Damaged, p)
	r.st.Bus.Publish(event.Location, event.EntityDamaged, p)

	// Reactions to damaged may have healed the target.
	if c.HP <= 0 && !c.Dead {
		c.Dead = true
		if loc := r.st.LocationOf(target); loc != nil {
			loc.MarkDead(target)
		}
		r.st.Bus.Publish(event.EntityChannel(target), event.Dying, event.Payload{Entity: target, Attacker: attacker})
	}
}

// Heal restores up to amount hit points and returns how many were restored.
// The dead cannot be healed.
func (r *Resolver) Heal(target ecs.EntityID, amount int) int {
	c := r.st.Combat.Get(target)
	if c == nil || c.Dead || amount <= 0 {
		return 0
	}
	before := c.HP
	c.HP = min(c.MaxHP, c.HP+amount)
	healed := c.HP - before
	if healed > 0 {
		p := event.Payload{Entity: target, Damage: healed}
		r.st.Bus.Publish(event.EntityChannel(target), event.Healed, p)
		r.st.Bus.Publish(event.Location, event.Healed, p)
		r.narr.Say(gamelog.ColorGood, "%s recovers %d hit points.", r.st.Name(target), healed)
	}
	return healed
}

// Kill drops target to zero hit points.
func (r *Resolver) Kill(attacker, target ecs.EntityID) {
	c := r.st.Combat.Get(target)
	if c == nil {
		panic(fmt.Sprintf("combat: kill %s (%d), which has no hit points", r.st.Name(target), target))
	}
	if c.Dead {
		return
	}
	r.TakeDamage(attacker, target, max(c.HP, 1), "")
}

func (r *Resolver) narrateHit(attacker ecs.EntityID, s *Strike, target ecs.EntityID, dmg int) {
	color := gamelog.ColorInfo
	if a := r.st.Actors.Get(target); a != nil && a.Player {
		color = gamelog.ColorDanger
	}
	switch {
	case s.Kind == Periodic:
		r.narr.Say(color, "%s takes %d %s damage.", r.st.Name(target), dmg, s.DamageType)
	case dmg == 0:
		r.narr.Say(color, "%s hits %s but does no damage.", r.st.Name(attacker), r.st.Name(target))
	default:
		r.narr.Say(color, "%s hits %s for %d.", r.st.Name(attacker), r.st.Name(target), dmg)
	}
}
