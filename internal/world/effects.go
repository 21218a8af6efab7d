package world

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
)

// Effect kinds with built-in meaning. Others (POISON, ARMOR_<type>,
// BLOCK_<type>) are free-form and only summed.
const (
	EffectHaste  = "HASTE"
	EffectSlowed = "SLOWED"
)

// Effect is a (kind, magnitude) modifier attached to an entity or item.
type Effect struct {
	Kind      string
	Magnitude int
	Props     map[string]any
}

// Effects is the list of effects on one entity.
type Effects struct {
	List []*Effect
}

// Sum adds up the magnitudes of every effect of kind.
func (e *Effects) Sum(kind string) int {
	total := 0
	for _, eff := range e.List {
		if eff.Kind == kind {
			total += eff.Magnitude
		}
	}
	return total
}

// Has reports whether any effect of kind is present.
func (e *Effects) Has(kind string) bool {
	for _, eff := range e.List {
		if eff.Kind == kind {
			return true
		}
	}
	return false
}

func (e *Effects) Add(eff *Effect) {
	e.List = append(e.List, eff)
}

// Remove detaches a specific effect instance.
func (e *Effects) Remove(eff *Effect) bool {
	for i, x := range e.List {
		if x == eff {
			e.List = append(e.List[:i:i], e.List[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveKind detaches every effect of kind and returns how many went.
func (e *Effects) RemoveKind(kind string) int {
	kept := e.List[:0:0]
	for _, x := range e.List {
		if x.Kind != kind {
			kept = append(kept, x)
		}
	}
	n := len(e.List) - len(kept)
	e.List = kept
	return n
}

// EffectSum sums kind over the entity's own effects and those of its
// equipped items.
func EffectSum(st *State, id ecs.EntityID, kind string) int {
	total := 0
	if fx := st.Effects.Get(id); fx != nil {
		total += fx.Sum(kind)
	}
	if eq := st.Equipment.Get(id); eq != nil {
		for _, item := range eq.Worn() {
			if fx := st.Effects.Get(item); fx != nil {
				total += fx.Sum(kind)
			}
		}
	}
	return total
}

// AddEffect attaches eff to id, creating the Effects component on demand,
// and publishes effect_applied.
func AddEffect(st *State, id ecs.EntityID, eff *Effect) {
	fx := st.Effects.Get(id)
	if fx == nil {
		fx = &Effects{}
		st.Effects.Set(id, fx)
	}
	fx.Add(eff)
	st.publish(id, event.EffectApplied, event.Payload{Entity: id, Effect: eff.Kind})
}

// RemoveEffect detaches eff and publishes effect_expired.
func RemoveEffect(st *State, id ecs.EntityID, eff *Effect) bool {
	fx := st.Effects.Get(id)
	if fx == nil || !fx.Remove(eff) {
		return false
	}
	st.publish(id, event.EffectExpired, event.Payload{Entity: id, Effect: eff.Kind})
	return true
}
