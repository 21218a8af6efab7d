package ability

import (
	"fmt"

	"github.com/l1jgo/encounter/internal/combat"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
)

// Role names whom a reaction affects, relative to the firing ability.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAttacker Role = "attacker"
	RoleTarget   Role = "target"
	RoleEntity   Role = "entity"
)

func parseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleAttacker, RoleTarget, RoleEntity:
		return r, nil
	case "":
		return RoleTarget, nil
	}
	return "", fmt.Errorf("unknown target role %q", s)
}

// Reaction is one consequence of a firing ability.
type Reaction interface {
	Apply(env *Env)
}

// DealDamage strikes the role once.
type DealDamage struct {
	Role       Role
	Damage     world.DamageRange
	DamageType string
	Mods       []string
}

func (r DealDamage) Apply(env *Env) {
	target := env.Resolve(r.Role)
	if !env.sys.canHurt(target) {
		return
	}
	s := combat.NewStrike(combat.Melee, r.Damage, r.DamageType, r.Mods...)
	s.Source = env.Ability.Origin
	env.sys.res.LandStrike(env.Owner, s, target)
}

// DealPeriodic strikes the role every Interval ticks, Repeats times.
type DealPeriodic struct {
	Role       Role
	Damage     world.DamageRange
	DamageType string
	Interval   int
	Repeats    int
}

func (r DealPeriodic) Apply(env *Env) {
	target := env.Resolve(r.Role)
	loc := env.sys.st.LocationOf(target)
	if loc == nil || !env.sys.canHurt(target) {
		return
	}
	owner, origin := env.Owner, env.Ability.Origin
	remaining := r.Repeats
	var tick sched.Func
	tick = func(_ *sched.Action, mode sched.Mode) {
		if mode != sched.ModeFire || !env.sys.canHurt(target) {
			return
		}
		s := combat.NewStrike(combat.Periodic, r.Damage, r.DamageType)
		s.Source = origin
		env.sys.res.LandStrike(owner, s, target)
		remaining--
		if remaining > 0 {
			loc.Manager.Register(target, sched.LaneDefault, r.Interval, tick)
		}
	}
	if remaining > 0 {
		loc.Manager.Register(target, sched.LaneDefault, r.Interval, tick)
	}
}

// ApplyEffect attaches an effect, removed again after Duration ticks.
type ApplyEffect struct {
	Role      Role
	Kind      string
	Magnitude int
	Duration  int
}

func (r ApplyEffect) Apply(env *Env) {
	target := env.Resolve(r.Role)
	if target.IsZero() || !env.sys.st.Alive(target) {
		return
	}
	st := env.sys.st
	eff := &world.Effect{Kind: r.Kind, Magnitude: r.Magnitude, Props: map[string]any{"ability": env.Ability.Template.Name}}
	world.AddEffect(st, target, eff)
	if r.Duration <= 0 {
		return
	}
	loc := st.LocationOf(target)
	if loc == nil {
		return
	}
	loc.Manager.Register(target, sched.LaneDefault, r.Duration, func(_ *sched.Action, mode sched.Mode) {
		if mode == sched.ModeFire {
			world.RemoveEffect(st, target, eff)
		}
	})
}

// Heal restores hit points.
type Heal struct {
	Role   Role
	Amount int
}

func (r Heal) Apply(env *Env) {
	target := env.Resolve(r.Role)
	if env.sys.st.Combat.Has(target) {
		env.sys.res.Heal(target, r.Amount)
	}
}

// LaunchProjectile fires a missile from the owner toward the role.
type LaunchProjectile struct {
	Role       Role
	Damage     world.DamageRange
	DamageType string
	Range      int
}

func (r LaunchProjectile) Apply(env *Env) {
	target := env.Resolve(r.Role)
	st := env.sys.st
	from := st.Positions.Get(env.Owner)
	to := st.Positions.Get(target)
	if from == nil || to == nil || from.Loc != to.Loc {
		return
	}
	n := r.Range
	if n <= 0 {
		n = world.Chebyshev(from.Point(), to.Point())
	}
	path := world.Ray(from.Point(), to.Point(), n)
	if len(path) == 0 {
		return
	}
	s := combat.NewStrike(combat.Projectile, r.Damage, r.DamageType)
	s.Source = env.Ability.Origin
	env.sys.res.Launch(env.Owner, s, 0, path)
}

// Kill drops the role to zero hit points.
type Kill struct {
	Role Role
}

func (r Kill) Apply(env *Env) {
	target := env.Resolve(r.Role)
	if env.sys.canHurt(target) {
		env.sys.res.Kill(env.Owner, target)
	}
}

// RemoveEffect strips every effect of Kind from the role.
type RemoveEffect struct {
	Role Role
	Kind string
}

func (r RemoveEffect) Apply(env *Env) {
	target := env.Resolve(r.Role)
	fx := env.sys.st.Effects.Get(target)
	if fx == nil {
		return
	}
	list := make([]*world.Effect, len(fx.List))
	copy(list, fx.List)
	for _, eff := range list {
		if eff.Kind == r.Kind {
			world.RemoveEffect(env.sys.st, target, eff)
		}
	}
}

func compileReaction(spec ReactionSpec) (Reaction, error) {
	role, err := parseRole(spec.Target)
	if err != nil {
		return nil, err
	}
	switch spec.Type {
	case "deal_damage":
		return DealDamage{Role: role, Damage: spec.Damage, DamageType: spec.DamageType, Mods: spec.Mods}, nil
	case "deal_periodic_damage":
		if spec.Interval <= 0 || spec.Repeats <= 0 {
			return nil, fmt.Errorf("deal_periodic_damage needs positive interval and repeats")
		}
		return DealPeriodic{Role: role, Damage: spec.Damage, DamageType: spec.DamageType, Interval: spec.Interval, Repeats: spec.Repeats}, nil
	case "apply_effect":
		if spec.Effect == "" {
			return nil, fmt.Errorf("apply_effect needs an effect kind")
		}
		return ApplyEffect{Role: role, Kind: spec.Effect, Magnitude: spec.Magnitude, Duration: spec.Duration}, nil
	case "heal":
		return Heal{Role: role, Amount: spec.Amount}, nil
	case "launch_projectile":
		return LaunchProjectile{Role: role, Damage: spec.Damage, DamageType: spec.DamageType, Range: spec.Range}, nil
	case "kill":
		return Kill{Role: role}, nil
	case "remove_effect":
		if spec.Effect == "" {
			return nil, fmt.Errorf("remove_effect needs an effect kind")
		}
		return RemoveEffect{Role: role, Kind: spec.Effect}, nil
	}
	return nil, fmt.Errorf("unknown reaction type %q", spec.Type)
}

// canHurt reports whether target can still take damage.
func (s *System) canHurt(target ecs.EntityID) bool {
	if target.IsZero() || !s.st.Alive(target) {
		return false
	}
	c := s.st.Combat.Get(target)
	return c != nil && !c.Dead
}
