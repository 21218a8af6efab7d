// Package combat resolves strikes into damage and handles death and
// projectile flight.
package combat

import (
	"math"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/world"
)

// Kind is how a strike is delivered.
type Kind int

const (
	Melee Kind = iota
	Projectile
	Periodic
)

func (k Kind) String() string {
	switch k {
	case Melee:
		return "melee"
	case Projectile:
		return "projectile"
	case Periodic:
		return "periodic"
	}
	return "unknown"
}

// Strike modifiers.
const (
	IgnoreArmor  = "ignore_armor"
	IgnoreShield = "ignore_shield"
)

// Strike describes one hit. Damage is rolled into Resolved when the strike
// lands; abilities reacting to before_strike may change Resolved or Mods.
type Strike struct {
	Kind       Kind
	Damage     world.DamageRange
	Resolved   int
	DamageType string
	Mods       map[string]bool
	// Source is the weapon, ammunition or ability owner that produced it.
	Source ecs.EntityID
}

// NewStrike builds a strike with an empty modifier set.
func NewStrike(kind Kind, dmg world.DamageRange, dmgType string, mods ...string) *Strike {
	s := &Strike{Kind: kind, Damage: dmg, DamageType: dmgType, Mods: make(map[string]bool, len(mods))}
	for _, m := range mods {
		s.Mods[m] = true
	}
	return s
}

// Has reports whether the strike carries mod.
func (s *Strike) Has(mod string) bool { return s.Mods[mod] }

// Reduction returns the fraction of damage removed by armor a.
//
// Non-negative armor removes a/(100+a), always in [0, 1). Negative armor is a
// vulnerability: the returned fraction is never positive, so damage can only
// grow. At exactly -100 the fraction is -100 (damage ×101). Taking
// reduce = -armor literally there would give +100 and turn the worst
// vulnerability into immunity, so the sign is kept on purpose.
func Reduction(a int) float64 {
	switch {
	case a >= 0:
		return float64(a) / float64(100+a)
	case a == -100:
		return float64(a)
	default:
		return -math.Abs(float64(a) / float64(100+a))
	}
}

// Mitigate applies armor a and flat block to d. Never negative.
func Mitigate(d, a, block int) int {
	v := math.Ceil(float64(d)*(1-Reduction(a)) - float64(block) - 1e-9)
	if v < 0 {
		return 0
	}
	return int(v)
}
