package ai

import (
	"sort"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/action"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// Director owns every brain and turns decisions into queued actions. Go
// handles perception and command execution; scripted brains, when present,
// make the choice.
// Accessed only from the simulation goroutine.
type Director struct {
	st      *world.State
	actions *action.Set
	abil    *ability.System
	scripts *scripting.Engine
	log     *zap.Logger

	brains *ecs.PtrComponentStore[Brain]
	// LostTargetTurns bounds the hunt for a target out of sight.
	LostTargetTurns int
}

// NewDirector creates a director. scripts may be nil.
func NewDirector(st *world.State, actions *action.Set, abil *ability.System, scripts *scripting.Engine, log *zap.Logger) *Director {
	d := &Director{
		st:              st,
		actions:         actions,
		abil:            abil,
		scripts:         scripts,
		log:             log.Named("ai"),
		brains:          ecs.NewPtrComponentStore[Brain](),
		LostTargetTurns: DefaultLostTargetTurns,
	}
	st.World.Registry().Register(d.brains)
	st.Bus.Subscribe(event.Location, event.EntityMoved, d, d.onMoved)
	st.Bus.Subscribe(event.Location, event.EntityDamaged, d, d.onDamaged)
	return d
}

// Attach gives id a brain running script (may be empty).
func (d *Director) Attach(id ecs.EntityID, script string) *Brain {
	b := newBrain(script)
	d.brains.Set(id, b)
	return b
}

// Brain returns id's brain, or nil.
func (d *Director) Brain(id ecs.EntityID) *Brain { return d.brains.Get(id) }

// Has reports whether id is AI-controlled.
func (d *Director) Has(id ecs.EntityID) bool { return d.brains.Has(id) }

// ==================== 感知 ====================

// onMoved alerts idle creatures that see a hostile move, and keeps the last
// known position of a hunted target current.
func (d *Director) onMoved(ev event.Event) {
	mover := ev.Payload.Entity
	if !d.st.Combat.Has(mover) {
		return
	}
	at := world.Point{X: ev.Payload.X, Y: ev.Payload.Y}
	d.brains.Each(func(id ecs.EntityID, b *Brain) {
		if id == mover || !d.st.Hostile(id, mover) {
			return
		}
		if b.Alert() && b.Target != mover {
			return
		}
		// Stricter than distance within the sight radius: the mover must
		// also be in the field of view, so walls hide it.
		if !d.sees(id, mover) {
			return
		}
		if !b.Alert() {
			d.log.Debug("spotted",
				zap.Uint64("entity", uint64(id)),
				zap.Uint64("target", uint64(mover)),
			)
		}
		b.spot(mover, at)
	})
}

// onDamaged alerts the victim on its attacker.
func (d *Director) onDamaged(ev event.Event) {
	b := d.brains.Get(ev.Payload.Target)
	attacker := ev.Payload.Attacker
	if b == nil || attacker.IsZero() || !d.st.Alive(attacker) || !d.st.Hostile(ev.Payload.Target, attacker) {
		return
	}
	if b.Alert() && b.Target != attacker && d.visible(ev.Payload.Target, b.Target) {
		return
	}
	pos := d.st.Positions.Get(attacker)
	if pos == nil {
		return
	}
	b.spot(attacker, pos.Point())
}

func (d *Director) sees(seer, target ecs.EntityID) bool {
	loc := d.st.LocationOf(seer)
	if loc == nil {
		return false
	}
	if !d.st.Perceptions.Has(seer) {
		// Creatures without perception notice what is next to them.
		sp, tp := d.st.Positions.Get(seer), d.st.Positions.Get(target)
		return tp != nil && tp.Loc == loc && world.Chebyshev(sp.Point(), tp.Point()) <= 1
	}
	return loc.CanSeeEntity(seer, target)
}

func (d *Director) visible(seer, target ecs.EntityID) bool {
	if target.IsZero() || !d.st.Alive(target) {
		return false
	}
	if c := d.st.Combat.Get(target); c != nil && c.Dead {
		return false
	}
	return d.sees(seer, target)
}

// scan looks for the nearest visible hostile.
func (d *Director) scan(id ecs.EntityID, loc *world.Location) ecs.EntityID {
	self := d.st.Positions.Get(id).Point()
	best, bestDist := ecs.EntityID(0), -1
	for _, other := range loc.Actors() {
		if !d.st.Hostile(id, other) || !d.visible(id, other) {
			continue
		}
		dist := world.Chebyshev(self, d.st.Positions.Get(other).Point())
		if bestDist < 0 || dist < bestDist {
			best, bestDist = other, dist
		}
	}
	return best
}

// ==================== 決策 ====================

// TakeTurn decides and queues exactly one action for id. Returns false only
// when id already has a pending action.
func (d *Director) TakeTurn(id ecs.EntityID) bool {
	return world.Perform(d.st, id, d.decide(id))
}

func (d *Director) decide(id ecs.EntityID) sched.Func {
	b := d.brains.Get(id)
	loc := d.st.LocationOf(id)
	if b == nil || loc == nil {
		return d.actions.Wait(id)
	}
	b.turns++

	if !b.Alert() {
		if t := d.scan(id, loc); !t.IsZero() {
			b.spot(t, d.st.Positions.Get(t).Point())
		} else {
			return d.actions.Wait(id)
		}
	}

	if d.visible(id, b.Target) {
		tp := d.st.Positions.Get(b.Target)
		b.see(tp.Point())
		return d.engage(id, b, loc)
	}

	// Target out of sight: another hostile in view takes over.
	if t := d.scan(id, loc); !t.IsZero() {
		b.spot(t, d.st.Positions.Get(t).Point())
		return d.engage(id, b, loc)
	}

	b.lostTurns++
	if b.lostTurns > d.LostTargetTurns {
		d.log.Debug("lost target",
			zap.Uint64("entity", uint64(id)),
			zap.Uint64("target", uint64(b.Target)),
			zap.Int("turns", b.lostTurns),
		)
		b.lose()
		return d.actions.Wait(id)
	}
	self := d.st.Positions.Get(id).Point()
	if b.HasLastSeen && self != b.LastSeen && len(loc.Path(self, b.LastSeen)) > 0 {
		return d.actions.MoveToward(id, b.LastSeen)
	}
	return d.actions.Wait(id)
}

// engage picks an action against a visible target: scripted brain, then
// usable abilities by priority, then melee, then a path step.
func (d *Director) engage(id ecs.EntityID, b *Brain, loc *world.Location) sched.Func {
	if d.scripts != nil && d.scripts.HasBrain(b.Script) {
		if cmd, ok := d.scripts.RunBrain(b.Script, d.context(id, b)); ok && cmd.Kind != scripting.CmdDefault {
			return d.command(id, b, loc, cmd)
		}
	}
	return d.builtin(id, b, loc)
}

func (d *Director) builtin(id ecs.EntityID, b *Brain, loc *world.Location) sched.Func {
	for _, a := range d.aiAbilities(id) {
		if d.abil.Usable(a, b.Target) {
			return d.actions.UseAbility(id, a, b.Target)
		}
	}
	self := d.st.Positions.Get(id).Point()
	tp := d.st.Positions.Get(b.Target).Point()
	if world.Adjacent(self, tp) {
		return d.actions.Attack(id, b.Target)
	}
	if path := loc.Path(self, tp); len(path) > 0 && loc.CanEnter(path[0].X, path[0].Y) {
		return d.actions.MoveToward(id, tp)
	}
	return d.actions.Wait(id)
}

// command turns a scripted decision into an action; anything impossible
// becomes a wait.
func (d *Director) command(id ecs.EntityID, b *Brain, loc *world.Location, cmd scripting.Command) sched.Func {
	self := d.st.Positions.Get(id).Point()
	tp := d.st.Positions.Get(b.Target).Point()
	switch cmd.Kind {
	case scripting.CmdAttack:
		if world.Adjacent(self, tp) {
			return d.actions.Attack(id, b.Target)
		}
	case scripting.CmdMove:
		if loc.CanEnter(self.X+cmd.DX, self.Y+cmd.DY) {
			return d.actions.Move(id, cmd.DX, cmd.DY)
		}
	case scripting.CmdFlee:
		if dx, dy, ok := d.fleeStep(loc, self, tp); ok {
			return d.actions.Move(id, dx, dy)
		}
	case scripting.CmdAbility:
		for _, a := range d.abil.Of(id) {
			if a.Name() == cmd.Ability && d.abil.Usable(a, b.Target) {
				return d.actions.UseAbility(id, a, b.Target)
			}
		}
	}
	return d.actions.Wait(id)
}

// fleeStep picks the enterable neighbour farthest from the threat.
func (d *Director) fleeStep(loc *world.Location, self, threat world.Point) (int, int, bool) {
	best, bestDist := -1, world.Chebyshev(self, threat)
	for dir := 0; dir < 8; dir++ {
		dx, dy := world.Heading(dir)
		if !loc.CanEnter(self.X+dx, self.Y+dy) {
			continue
		}
		if dist := world.Chebyshev(world.Point{X: self.X + dx, Y: self.Y + dy}, threat); dist > bestDist {
			best, bestDist = dir, dist
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	dx, dy := world.Heading(best)
	return dx, dy, true
}

// aiAbilities returns id's activated AI-usable abilities, lowest priority
// value first.
func (d *Director) aiAbilities(id ecs.EntityID) []*ability.Ability {
	var out []*ability.Ability
	for _, a := range d.abil.Of(id) {
		if a.Template.AIUsable && a.Template.Trigger == ability.TriggerUse {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Template.Priority < out[j].Template.Priority })
	return out
}

func (d *Director) context(id ecs.EntityID, b *Brain) scripting.BrainContext {
	pos := d.st.Positions.Get(id)
	ctx := scripting.BrainContext{
		ID:    uint64(id),
		Name:  d.st.Name(id),
		X:     pos.X,
		Y:     pos.Y,
		Speed: world.EffectiveSpeed(d.st, id),
		Turn:  b.turns,
	}
	if c := d.st.Combat.Get(id); c != nil {
		ctx.HP, ctx.MaxHP = c.HP, c.MaxHP
	}
	if tp := d.st.Positions.Get(b.Target); tp != nil {
		ctx.TargetID = uint64(b.Target)
		ctx.TargetName = d.st.Name(b.Target)
		ctx.TargetX, ctx.TargetY = tp.X, tp.Y
		ctx.TargetDist = world.Chebyshev(pos.Point(), tp.Point())
		ctx.TargetVisible = d.visible(id, b.Target)
		if c := d.st.Combat.Get(b.Target); c != nil {
			ctx.TargetHP, ctx.TargetMaxHP = c.HP, c.MaxHP
		}
	}
	ctx.HasLastSeen = b.HasLastSeen
	ctx.LastSeenX, ctx.LastSeenY = b.LastSeen.X, b.LastSeen.Y
	for _, a := range d.aiAbilities(id) {
		ctx.Abilities = append(ctx.Abilities, scripting.AbilityEntry{
			Name:     a.Name(),
			Ready:    d.abil.Usable(a, b.Target),
			Range:    a.Template.Range,
			Priority: a.Template.Priority,
		})
	}
	return ctx
}
