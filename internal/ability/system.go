// Package ability runs reactive, condition-gated abilities attached to
// entities.
package ability

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/l1jgo/encounter/internal/combat"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// Ability is one instance of a template bound to an entity.
type Ability struct {
	ID       uint64
	Template *Template
	// Origin is the entity the ability belongs to (an item for item
	// abilities). Owner is whoever currently receives its trigger events:
	// the origin itself, or the wearer while the item is equipped.
	Origin   ecs.EntityID
	Owner    ecs.EntityID
	Disabled bool

	readyAt  int64
	attached bool
}

// Name returns the template name.
func (a *Ability) Name() string { return a.Template.Name }

// Attached reports whether the ability is listening on an owner channel.
func (a *Ability) Attached() bool { return a.attached }

// Env is what a condition or reaction sees when an ability fires.
type Env struct {
	sys     *System
	Ability *Ability
	Event   event.Event
	Owner   ecs.EntityID
	// Target is the event's target when it has one, else its subject.
	Target ecs.EntityID
}

// Resolve maps a role to an entity. Unknown roles are a programming error.
func (env *Env) Resolve(role Role) ecs.EntityID {
	switch role {
	case RoleOwner:
		return env.Owner
	case RoleAttacker:
		return env.Event.Payload.Attacker
	case RoleTarget:
		return env.Target
	case RoleEntity:
		return env.Event.Payload.Entity
	}
	panic(fmt.Sprintf("ability %s: unknown target role %q", env.Ability.Name(), role))
}

// System owns every ability instance.
// Accessed only from the simulation goroutine.
type System struct {
	st    *world.State
	clock *sched.Clock
	res   *combat.Resolver
	rng   *rand.Rand
	narr  *gamelog.Narrator
	log   *zap.Logger

	templates map[string]*Template
	byOrigin  map[ecs.EntityID][]*Ability
	nextID    uint64
}

// NewSystem creates the ability system. Abilities follow items between
// wearers through the state's equip hook and die with their origin.
func NewSystem(st *world.State, clock *sched.Clock, res *combat.Resolver, rng *rand.Rand,
	narr *gamelog.Narrator, log *zap.Logger, templates map[string]*Template) *System {
	s := &System{
		st:        st,
		clock:     clock,
		res:       res,
		rng:       rng,
		narr:      narr,
		log:       log.Named("ability"),
		templates: templates,
		byOrigin:  make(map[ecs.EntityID][]*Ability),
	}
	if s.templates == nil {
		s.templates = make(map[string]*Template)
	}
	st.EquipHook = func(wearer, item ecs.EntityID, equipped bool) {
		if equipped {
			s.Transfer(item, item, wearer)
		} else {
			s.Transfer(item, wearer, item)
		}
	}
	st.Bus.Subscribe(event.Location, event.EntityDestroyed, s, func(ev event.Event) {
		s.Destroy(ev.Payload.Entity)
	})
	return s
}

// Template returns a loaded template by name.
func (s *System) Template(name string) (*Template, bool) {
	t, ok := s.templates[name]
	return t, ok
}

// Create instantiates template name for origin and attaches it to origin.
func (s *System) Create(name string, origin ecs.EntityID) (*Ability, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown ability %q", name)
	}
	return s.CreateFrom(t, origin), nil
}

// CreateFrom instantiates a compiled template for origin and attaches it.
func (s *System) CreateFrom(t *Template, origin ecs.EntityID) *Ability {
	s.nextID++
	a := &Ability{ID: s.nextID, Template: t, Origin: origin}
	s.byOrigin[origin] = append(s.byOrigin[origin], a)
	s.Attach(a, origin)
	return a
}

// Attach subscribes a to owner's channel for its trigger event.
func (s *System) Attach(a *Ability, owner ecs.EntityID) {
	if a.attached {
		s.Detach(a)
	}
	a.Owner = owner
	a.attached = true
	if a.Template.Trigger == TriggerUse {
		return
	}
	s.st.Bus.Subscribe(event.EntityChannel(owner), a.Template.Trigger, a, func(ev event.Event) {
		s.handle(a, ev)
	})
}

// Detach drops every subscription of a.
func (s *System) Detach(a *Ability) {
	s.st.Bus.Unsubscribe(a)
	a.attached = false
	a.Owner = 0
}

// Transfer moves the abilities originating from origin that are attached to
// from over to to.
func (s *System) Transfer(origin, from, to ecs.EntityID) int {
	n := 0
	for _, a := range s.byOrigin[origin] {
		if a.attached && a.Owner == from {
			s.Attach(a, to)
			n++
		}
	}
	if n > 0 {
		s.log.Debug("transfer",
			zap.Uint64("origin", uint64(origin)),
			zap.Uint64("from", uint64(from)),
			zap.Uint64("to", uint64(to)),
			zap.Int("abilities", n),
		)
	}
	return n
}

// Destroy detaches everything owned by id and forgets every ability that
// originates from it.
func (s *System) Destroy(id ecs.EntityID) {
	for origin, list := range s.byOrigin {
		for _, a := range list {
			if origin == id || (a.attached && a.Owner == id) {
				s.Detach(a)
			}
		}
	}
	delete(s.byOrigin, id)
}

// Of returns the abilities currently attached to owner, in creation order.
func (s *System) Of(owner ecs.EntityID) []*Ability {
	var out []*Ability
	for _, id := range s.origins() {
		for _, a := range s.byOrigin[id] {
			if a.attached && a.Owner == owner {
				out = append(out, a)
			}
		}
	}
	sortByID(out)
	return out
}

// Originating returns every ability whose origin is id.
func (s *System) Originating(id ecs.EntityID) []*Ability {
	return append([]*Ability(nil), s.byOrigin[id]...)
}

// OnCooldown reports whether a fired too recently.
func (s *System) OnCooldown(a *Ability) bool {
	return s.clock.Now() < a.readyAt
}

// Usable reports whether owner could activate a against target now:
// enabled, off cooldown, in range and with its condition met.
func (s *System) Usable(a *Ability, target ecs.EntityID) bool {
	if !s.ready(a) || !s.inRange(a.Owner, a, target) {
		return false
	}
	env := s.useEnv(a, a.Owner, target)
	return a.Template.cond.Eval(env)
}

// Use fires an activated ability at target. The condition is taken as
// already checked by Usable; enablement, cooldown and range are checked
// again since time may have passed.
func (s *System) Use(a *Ability, target ecs.EntityID) bool {
	if !s.ready(a) || !s.inRange(a.Owner, a, target) {
		return false
	}
	s.fire(s.useEnv(a, a.Owner, target))
	return true
}

// UseItem fires the use-triggered abilities originating from item, which
// holder must carry, with holder as their owner. Returns how many fired.
func (s *System) UseItem(holder, item, target ecs.EntityID) int {
	it := s.st.Items.Get(item)
	if it == nil || it.Holder != holder {
		return 0
	}
	n := 0
	for _, a := range s.byOrigin[item] {
		if a.Template.Trigger != TriggerUse || !s.ready(a) || !s.inRange(holder, a, target) {
			continue
		}
		env := s.useEnv(a, holder, target)
		if !a.Template.cond.Eval(env) {
			continue
		}
		s.fire(env)
		n++
	}
	return n
}

func (s *System) ready(a *Ability) bool {
	return a.attached && !a.Disabled && !a.Template.Disabled && !s.OnCooldown(a)
}

func (s *System) inRange(owner ecs.EntityID, a *Ability, target ecs.EntityID) bool {
	if a.Template.Range <= 0 || target.IsZero() {
		return true
	}
	op := s.st.Positions.Get(owner)
	tp := s.st.Positions.Get(target)
	if op == nil || tp == nil || op.Loc != tp.Loc {
		return false
	}
	return world.Chebyshev(op.Point(), tp.Point()) <= a.Template.Range
}

func (s *System) useEnv(a *Ability, owner, target ecs.EntityID) *Env {
	ev := event.Event{
		Name:    TriggerUse,
		Channel: event.EntityChannel(owner),
		Payload: event.Payload{Entity: owner, Attacker: owner, Target: target},
	}
	return &Env{sys: s, Ability: a, Event: ev, Owner: owner, Target: target}
}

func (s *System) handle(a *Ability, ev event.Event) {
	if a.Disabled || a.Template.Disabled || s.OnCooldown(a) {
		return
	}
	target := ev.Payload.Target
	if target.IsZero() {
		target = ev.Payload.Entity
	}
	env := &Env{sys: s, Ability: a, Event: ev, Owner: a.Owner, Target: target}
	if !a.Template.cond.Eval(env) {
		return
	}
	s.fire(env)
}

func (s *System) fire(env *Env) {
	a := env.Ability
	if a.Template.Cooldown > 0 {
		a.readyAt = s.clock.Now() + int64(a.Template.Cooldown)
	}
	if a.Template.Message != "" {
		s.narr.Say(gamelog.ColorMagic, a.Template.Message, s.st.Name(env.Owner), s.st.Name(env.Target))
	}
	for _, r := range a.Template.reactions {
		r.Apply(env)
	}
	p := event.Payload{Ability: a.Name(), Entity: env.Owner, Target: env.Target}
	if s.st.Alive(env.Owner) {
		s.st.Bus.Publish(event.EntityChannel(env.Owner), event.AbilityFired, p)
	}
	s.st.Bus.Publish(event.Location, event.AbilityFired, p)
	s.log.Debug("fired",
		zap.String("ability", a.Name()),
		zap.Uint64("owner", uint64(env.Owner)),
		zap.Uint64("target", uint64(env.Target)),
	)
}

func (s *System) origins() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(s.byOrigin))
	for id := range s.byOrigin {
		ids = append(ids, id)
	}
	return ids
}

func sortByID(list []*Ability) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
