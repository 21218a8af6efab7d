package combat

import (
	"context"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

const (
	stateFlying  = "flying"
	stateStopped = "stopped"
	eventStop    = "stop"
)

// Flight is the state of one projectile in the air.
type Flight struct {
	Attacker ecs.EntityID
	// Item is the thrown item that lands when the flight ends; zero for
	// shots, whose ammunition is spent.
	Item   ecs.EntityID
	Strike *Strike
	Path   []world.Point
	Hit    ecs.EntityID

	step int
	fsm  *fsm.FSM
	loc  *world.Location
}

// Stopped reports whether the projectile has come to rest.
func (f *Flight) Stopped() bool { return f.fsm.Is(stateStopped) }

// State returns the flight state name.
func (f *Flight) State() string { return f.fsm.Current() }

// Flight returns the flight of projectile id, or nil.
func (r *Resolver) Flight(id ecs.EntityID) *Flight { return r.flights.Get(id) }

// Launch puts a projectile on the attacker's cell and schedules its first
// step along path. item is the thrown object, or zero for a shot.
func (r *Resolver) Launch(attacker ecs.EntityID, s *Strike, item ecs.EntityID, path []world.Point) ecs.EntityID {
	loc := r.st.LocationOf(attacker)
	pos := r.st.Positions.Get(attacker)
	if loc == nil || pos == nil {
		return 0
	}
	name := "missile"
	glyph := '*'
	if !item.IsZero() {
		name = r.st.Name(item)
		if e := r.st.Entities.Get(item); e != nil {
			glyph = e.Glyph
		}
	}
	pid := r.st.Spawn(world.Entity{Name: name, Glyph: glyph, Kind: world.KindProjectile})

	f := &Flight{
		Attacker: attacker,
		Item:     item,
		Strike:   s,
		Path:     path,
		loc:      loc,
	}
	f.fsm = fsm.NewFSM(
		stateFlying,
		fsm.Events{
			{Name: eventStop, Src: []string{stateFlying}, Dst: stateStopped},
		},
		fsm.Callbacks{
			"enter_" + stateStopped: func(_ context.Context, _ *fsm.Event) {
				r.land(pid, f)
			},
		},
	)
	r.flights.Set(pid, f)
	loc.Place(pid, pos.X, pos.Y)
	r.log.Debug("launch",
		zap.Uint64("projectile", uint64(pid)),
		zap.Uint64("attacker", uint64(attacker)),
		zap.Int("path", len(path)),
	)
	r.schedule(pid, f)
	return pid
}

func (r *Resolver) schedule(pid ecs.EntityID, f *Flight) {
	f.loc.Manager.Register(pid, sched.LaneDefault, r.StepTicks, func(_ *sched.Action, mode sched.Mode) {
		if mode == sched.ModeFire {
			r.advance(pid, f)
		}
	})
}

// advance moves the projectile one cell and decides whether it stops.
func (r *Resolver) advance(pid ecs.EntityID, f *Flight) {
	if f.Stopped() || !r.st.Alive(pid) {
		return
	}
	if f.step >= len(f.Path) {
		r.stop(f)
		return
	}
	next := f.Path[f.step]
	occ := f.loc.Occupant(next.X, next.Y)
	target := !occ.IsZero() && occ != f.Attacker && r.st.Combat.Has(occ)

	if !f.loc.InBounds(next.X, next.Y) || (!target && f.loc.Cost(next.X, next.Y) == world.Impassable) {
		r.stop(f)
		return
	}
	f.step++
	f.loc.Relocate(pid, next.X, next.Y)

	if target {
		f.Hit = occ
		f.Strike.Kind = Projectile
		r.LandStrike(f.Attacker, f.Strike, occ)
		r.stop(f)
		return
	}
	if sb := f.loc.ShotBlock(next.X, next.Y); sb > 0 && r.rng.Intn(100) < sb {
		r.stop(f)
		return
	}
	if f.step >= len(f.Path) {
		r.stop(f)
		return
	}
	r.schedule(pid, f)
}

func (r *Resolver) stop(f *Flight) {
	if err := f.fsm.Event(context.Background(), eventStop); err != nil {
		r.log.Warn("projectile stop", zap.Error(err))
	}
}

// land runs once on entering the stopped state.
func (r *Resolver) land(pid ecs.EntityID, f *Flight) {
	name := event.ShotHit
	if !f.Item.IsZero() {
		name = event.ProjectileHit
	}
	p := event.Payload{Attacker: f.Attacker, Target: f.Hit, Entity: pid, Item: f.Item, Strike: f.Strike}
	if !f.Item.IsZero() {
		r.st.Bus.Publish(event.EntityChannel(f.Item), name, p)
	}
	if r.st.Alive(f.Attacker) {
		r.st.Bus.Publish(event.EntityChannel(f.Attacker), name, p)
	}
	r.st.Bus.Publish(event.Location, name, p)

	if f.Hit.IsZero() {
		r.narr.Say(gamelog.ColorInfo, "The %s misses.", r.st.Name(pid))
	}
	if pos := r.st.Positions.Get(pid); pos != nil && !f.Item.IsZero() && r.st.Alive(f.Item) {
		if !r.st.Positions.Has(f.Item) {
			pos.Loc.Place(f.Item, pos.X, pos.Y)
		}
	}
	r.st.World.MarkForDestruction(pid)
}
