package ai

import (
	"math/rand"
	"testing"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/action"
	"github.com/l1jgo/encounter/internal/combat"
	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var (
	floor = &world.Terrain{Name: "floor", Glyph: '.'}
	wall  = &world.Terrain{Name: "wall", Glyph: '#', BlocksMove: true, BlocksSight: true}
)

const abilities = `
abilities:
  - name: bite
    trigger: use
    ai_usable: true
    priority: 2
    range: 1
    reactions:
      - type: deal_damage
        target: target
        damage: {min: 1, max: 1}
  - name: spit
    trigger: use
    ai_usable: true
    priority: 1
    range: 5
    cooldown: 50
    reactions:
      - type: deal_damage
        target: target
        damage: {min: 2, max: 2}
        damage_type: acid
`

type fixture struct {
	st      *world.State
	loc     *world.Location
	clock   *sched.Clock
	res     *combat.Resolver
	abil    *ability.System
	scripts *scripting.Engine
	dir     *Director
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := world.NewState(event.NewBus())
	loc := world.NewLocation(st, "arena", 10, 10, floor)
	clock := sched.NewClock()
	loc.Activate(clock)
	rng := rand.New(rand.NewSource(11))
	narr := gamelog.NewNarrator(gamelog.Discard{}, language.English)
	res := combat.NewResolver(st, rng, narr, zap.NewNop())
	templates, err := ability.ParseTemplates([]byte(abilities))
	if err != nil {
		t.Fatal(err)
	}
	abil := ability.NewSystem(st, clock, res, rng, narr, zap.NewNop(), templates)
	costs := config.CostsConfig{Move: 100, Attack: 100, Wait: 100, Ability: 100, Door: 50, Step: 5}
	actions := action.NewSet(st, res, abil, narr, zap.NewNop(), costs)
	scripts, err := scripting.NewEngine(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(scripts.Close)
	return &fixture{
		st:      st,
		loc:     loc,
		clock:   clock,
		res:     res,
		abil:    abil,
		scripts: scripts,
		dir:     NewDirector(st, actions, abil, scripts, zap.NewNop()),
	}
}

func (f *fixture) creature(name, faction string, x, y int) ecs.EntityID {
	id := f.st.Spawn(world.Entity{Name: name, Kind: world.KindCreature, Occupies: true, Faction: faction, Category: name})
	f.st.Combat.Set(id, &world.Combat{HP: 100, MaxHP: 100, Unarmed: world.Fixed(1)})
	f.st.Actors.Set(id, &world.Actor{Speed: 100})
	f.st.Perceptions.Set(id, world.NewPerception(8))
	f.loc.Place(id, x, y)
	return id
}

// turn lets id decide and runs the chosen action to completion. Returns the
// action kind.
func (f *fixture) turn(t *testing.T, id ecs.EntityID) string {
	t.Helper()
	if !f.dir.TakeTurn(id) {
		t.Fatal("TakeTurn queued nothing")
	}
	act := f.st.Actors.Get(id).Action
	kind, _ := act.Scratch["kind"].(string)
	f.clock.PassTime(max(act.Remaining(), 1))
	return kind
}

func TestIdleWithoutHostilesWaits(t *testing.T) {
	f := newFixture(t)
	orc := f.creature("orc", "orcs", 1, 1)
	f.creature("goblin", "orcs", 3, 3)
	b := f.dir.Attach(orc, "")
	if kind := f.turn(t, orc); kind != "wait" {
		t.Errorf("kind = %q, want wait", kind)
	}
	if b.State() != StateIdle {
		t.Errorf("state = %s, want idle", b.State())
	}
}

func TestSpotOnMoveInSight(t *testing.T) {
	f := newFixture(t)
	for y := 0; y < 10; y++ {
		f.loc.SetTerrain(5, y, wall)
	}
	orc := f.creature("orc", "orcs", 1, 1)
	hero := f.creature("hero", "heroes", 7, 1)
	b := f.dir.Attach(orc, "")

	f.loc.Relocate(hero, 7, 2)
	if b.Alert() {
		t.Fatal("spotted a hero behind a wall")
	}
	f.loc.Relocate(hero, 4, 2)
	if !b.Alert() || b.Target != hero {
		t.Fatalf("state = %s target = %d, want alert on hero", b.State(), b.Target)
	}
	if b.LastSeen != (world.Point{X: 4, Y: 2}) {
		t.Errorf("last seen = %v", b.LastSeen)
	}
}

func TestDamageAlerts(t *testing.T) {
	f := newFixture(t)
	for y := 0; y < 10; y++ {
		f.loc.SetTerrain(5, y, wall)
	}
	orc := f.creature("orc", "orcs", 1, 1)
	hero := f.creature("hero", "heroes", 7, 1)
	b := f.dir.Attach(orc, "")

	f.res.TakeDamage(hero, orc, 5, "fire")
	if !b.Alert() || b.Target != hero {
		t.Errorf("state = %s target = %d, want alert on hero", b.State(), b.Target)
	}
}

func TestAlertAttacksWhenAdjacentAndApproachesOtherwise(t *testing.T) {
	f := newFixture(t)
	orc := f.creature("orc", "orcs", 1, 1)
	hero := f.creature("hero", "heroes", 4, 1)
	f.dir.Attach(orc, "")

	if kind := f.turn(t, orc); kind != "move" {
		t.Fatalf("first turn = %q, want move", kind)
	}
	if kind := f.turn(t, orc); kind != "move" {
		t.Fatalf("second turn = %q, want move", kind)
	}
	if kind := f.turn(t, orc); kind != "attack" {
		t.Fatalf("third turn = %q, want attack", kind)
	}
	if hp := f.st.Combat.Get(hero).HP; hp != 99 {
		t.Errorf("hero hp = %d, want 99", hp)
	}
}

func TestAbilitiesTriedByPriority(t *testing.T) {
	f := newFixture(t)
	orc := f.creature("orc", "orcs", 1, 1)
	hero := f.creature("hero", "heroes", 4, 1)
	f.abil.Create("bite", orc)
	spit, _ := f.abil.Create("spit", orc)
	f.dir.Attach(orc, "")

	if kind := f.turn(t, orc); kind != "ability" {
		t.Fatalf("kind = %q, want ability", kind)
	}
	if !f.abil.OnCooldown(spit) {
		t.Error("spit was not the ability used")
	}
	if hp := f.st.Combat.Get(hero).HP; hp != 98 {
		t.Errorf("hero hp = %d, want 98", hp)
	}
	// spit cools down and bite is out of range: walk.
	if kind := f.turn(t, orc); kind != "move" {
		t.Errorf("kind = %q, want move", kind)
	}
}

func TestLostTargetRevertsToIdle(t *testing.T) {
	f := newFixture(t)
	for y := 0; y < 9; y++ {
		f.loc.SetTerrain(5, y, wall)
	}
	orc := f.creature("orc", "orcs", 1, 1)
	hero := f.creature("hero", "heroes", 3, 1)
	b := f.dir.Attach(orc, "")
	f.loc.Relocate(hero, 3, 2)
	if !b.Alert() {
		t.Fatal("not alert")
	}
	f.loc.Relocate(hero, 7, 2)

	want := []string{"move", "move", "wait", "wait"}
	for i, w := range want {
		if kind := f.turn(t, orc); kind != w {
			t.Errorf("turn %d = %q, want %q", i+1, kind, w)
		}
	}
	if got := f.st.Positions.Get(orc).Point(); got != (world.Point{X: 3, Y: 2}) {
		t.Errorf("orc at %v, want last seen position (3,2)", got)
	}
	if b.Alert() {
		t.Errorf("still alert after %d lost turns", b.LostTurns())
	}
	if !b.Target.IsZero() {
		t.Error("target kept after losing it")
	}
}

func TestScriptedBrainOverridesDefault(t *testing.T) {
	f := newFixture(t)
	err := f.scripts.LoadString(`
function brain_timid(ctx)
  if ctx.target_dist <= 1 then return "flee" end
  return "default"
end
function brain_statue(ctx) return "wait" end
`)
	if err != nil {
		t.Fatal(err)
	}
	rat := f.creature("rat", "vermin", 4, 4)
	hero := f.creature("hero", "heroes", 5, 4)
	statue := f.creature("statue", "golems", 3, 4)
	f.dir.Attach(rat, "timid")
	f.dir.Attach(statue, "statue")

	if kind := f.turn(t, rat); kind != "move" {
		t.Fatalf("kind = %q, want move", kind)
	}
	rp := f.st.Positions.Get(rat).Point()
	hp := f.st.Positions.Get(hero).Point()
	if world.Chebyshev(rp, hp) != 2 {
		t.Errorf("rat at %v did not flee from hero at %v", rp, hp)
	}
	if kind := f.turn(t, statue); kind != "wait" {
		t.Errorf("statue kind = %q, want wait", kind)
	}
}

func TestEveryTurnQueuesExactlyOneAction(t *testing.T) {
	f := newFixture(t)
	orc := f.creature("orc", "orcs", 1, 1)
	f.creature("hero", "heroes", 2, 1)
	f.dir.Attach(orc, "")

	if !f.dir.TakeTurn(orc) {
		t.Fatal("TakeTurn queued nothing")
	}
	if n := len(f.loc.Manager.PendingFor(orc)); n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
	if f.dir.TakeTurn(orc) {
		t.Error("second TakeTurn accepted while busy")
	}
}

func TestBrainlessActorWaits(t *testing.T) {
	f := newFixture(t)
	id := f.creature("stone", "nature", 1, 1)
	if kind := f.turn(t, id); kind != "wait" {
		t.Errorf("kind = %q, want wait", kind)
	}
}

func TestDestroyDropsBrain(t *testing.T) {
	f := newFixture(t)
	orc := f.creature("orc", "orcs", 1, 1)
	f.dir.Attach(orc, "")
	f.st.Destroy(orc)
	if f.dir.Has(orc) {
		t.Error("brain survived its entity")
	}
}
