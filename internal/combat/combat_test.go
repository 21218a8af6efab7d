package combat

import (
	"math/rand"
	"testing"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/gamelog/mocks"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"pgregory.net/rapid"
)

var floor = &world.Terrain{Name: "floor", Glyph: '.'}

type fixture struct {
	st   *world.State
	loc  *world.Location
	res  *Resolver
	buf  *gamelog.Buffer
	narr *gamelog.Narrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := world.NewState(event.NewBus())
	loc := world.NewLocation(st, "arena", 10, 10, floor)
	buf := gamelog.NewBuffer(0)
	narr := gamelog.NewNarrator(buf, language.English)
	return &fixture{
		st:   st,
		loc:  loc,
		res:  NewResolver(st, rand.New(rand.NewSource(1)), narr, zap.NewNop()),
		buf:  buf,
		narr: narr,
	}
}

func (f *fixture) creature(name string, hp, x, y int) ecs.EntityID {
	id := f.st.Spawn(world.Entity{Name: name, Kind: world.KindCreature, Occupies: true, Faction: name})
	f.st.Combat.Set(id, &world.Combat{HP: hp, MaxHP: hp, Armor: map[string]int{}, Block: map[string]int{}})
	f.st.Actors.Set(id, &world.Actor{Speed: 100})
	f.st.Inventories.Set(id, &world.Inventory{})
	f.loc.Place(id, x, y)
	return id
}

func TestReductionNonNegativeArmor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 1_000_000).Draw(t, "armor")
		r := Reduction(a)
		if r < 0 || r >= 1 {
			t.Fatalf("Reduction(%d) = %v, want [0,1)", a, r)
		}
	})
}

func TestZeroArmorPassesDamageMinusBlock(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.IntRange(0, 10_000).Draw(t, "damage")
		b := rapid.IntRange(0, 100).Draw(t, "block")
		want := max(d-b, 0)
		if got := Mitigate(d, 0, b); got != want {
			t.Fatalf("Mitigate(%d, 0, %d) = %d, want %d", d, b, got, want)
		}
	})
}

func TestVulnerabilityNeverReduces(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(-100_000, -1).Filter(func(v int) bool { return v != -100 }).Draw(t, "armor")
		d := rapid.IntRange(0, 10_000).Draw(t, "damage")
		if got := Mitigate(d, a, 0); got < d {
			t.Fatalf("Mitigate(%d, %d, 0) = %d, below input", d, a, got)
		}
	})
}

func TestMitigateNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.IntRange(0, 10_000).Draw(t, "damage")
		a := rapid.IntRange(-1000, 1000).Draw(t, "armor")
		b := rapid.IntRange(0, 10_000).Draw(t, "block")
		if got := Mitigate(d, a, b); got < 0 {
			t.Fatalf("Mitigate(%d, %d, %d) = %d", d, a, b, got)
		}
	})
}

func TestMinusHundredArmorDoesNotDivideByZero(t *testing.T) {
	if got := Mitigate(10, -100, 0); got != 1010 {
		t.Errorf("Mitigate(10, -100, 0) = %d, want 1010", got)
	}
}

func TestArmorHundredHalvesDamage(t *testing.T) {
	f := newFixture(t)
	a := f.creature("orc", 20, 1, 1)
	b := f.creature("knight", 20, 2, 1)
	f.st.Combat.Get(b).Armor["slashing"] = 100

	dealt := f.res.LandStrike(a, NewStrike(Melee, world.Fixed(10), "slashing"), b)
	if dealt != 5 {
		t.Errorf("dealt = %d, want 5", dealt)
	}
	if hp := f.st.Combat.Get(b).HP; hp != 15 {
		t.Errorf("hp = %d, want 15", hp)
	}
}

func TestShieldBlocksAndWears(t *testing.T) {
	f := newFixture(t)
	a := f.creature("orc", 50, 1, 1)
	b := f.creature("knight", 50, 2, 1)
	f.st.AddEquipment(b)
	shield := f.st.Spawn(world.Entity{Name: "buckler", Kind: world.KindItem})
	sh := &world.Shield{Block: map[string]int{"slashing": 6}, Durability: 10}
	f.st.Items.Set(shield, &world.Item{Slot: world.SlotShield, Shield: sh})
	world.AddToInventory(f.st, b, shield)
	world.Equip(f.st, b, shield)

	cases := []struct {
		dealt, durability int
	}{
		{4, 4},  // 6 blocked
		{6, 0},  // only 4 durability left
		{10, 0}, // broken shield is bypassed
	}
	for i, c := range cases {
		got := f.res.LandStrike(a, NewStrike(Melee, world.Fixed(10), "slashing"), b)
		if got != c.dealt {
			t.Errorf("hit %d: dealt = %d, want %d", i, got, c.dealt)
		}
		if sh.Durability != c.durability {
			t.Errorf("hit %d: durability = %d, want %d", i, sh.Durability, c.durability)
		}
	}
}

func TestShieldIgnoresTypesWithoutBlock(t *testing.T) {
	f := newFixture(t)
	a := f.creature("orc", 50, 1, 1)
	b := f.creature("knight", 50, 2, 1)
	f.st.AddEquipment(b)
	shield := f.st.Spawn(world.Entity{Name: "buckler", Kind: world.KindItem})
	sh := &world.Shield{Block: map[string]int{"slashing": 6}, Durability: 10}
	f.st.Items.Set(shield, &world.Item{Slot: world.SlotShield, Shield: sh})
	world.AddToInventory(f.st, b, shield)
	world.Equip(f.st, b, shield)

	if got := f.res.LandStrike(a, NewStrike(Melee, world.Fixed(10), "fire"), b); got != 10 {
		t.Errorf("fire dealt = %d, want 10", got)
	}
	if got := f.res.LandStrike(a, NewStrike(Melee, world.Fixed(10), "slashing", IgnoreShield), b); got != 10 {
		t.Errorf("ignore_shield dealt = %d, want 10", got)
	}
	if sh.Durability != 10 {
		t.Errorf("durability = %d, want untouched 10", sh.Durability)
	}
}

func TestBeforeStrikeMayModifyStrike(t *testing.T) {
	f := newFixture(t)
	a := f.creature("orc", 50, 1, 1)
	b := f.creature("knight", 50, 2, 1)
	f.st.Combat.Get(b).Armor["piercing"] = 100
	f.st.Bus.Subscribe(event.EntityChannel(a), event.BeforeStrike, nil, func(ev event.Event) {
		s := ev.Payload.Strike.(*Strike)
		s.Mods[IgnoreArmor] = true
		s.Resolved *= 2
	})
	if got := f.res.LandStrike(a, NewStrike(Melee, world.Fixed(5), "piercing"), b); got != 10 {
		t.Errorf("dealt = %d, want 10", got)
	}
}

func TestTakeDamageMarksDeadOnce(t *testing.T) {
	f := newFixture(t)
	b := f.creature("rat", 5, 2, 2)
	dying := 0
	f.st.Bus.Subscribe(event.EntityChannel(b), event.Dying, nil, func(event.Event) { dying++ })

	f.res.TakeDamage(0, b, 10, "bludgeoning")
	f.res.TakeDamage(0, b, 10, "bludgeoning")

	if !f.st.Combat.Get(b).Dead {
		t.Fatal("not marked dead")
	}
	if dying != 1 {
		t.Errorf("dying published %d times, want 1", dying)
	}
	if n := f.loc.PendingDead(); n != 1 {
		t.Errorf("reap list holds %d, want 1", n)
	}
}

func TestTakeDamageNeverExceedsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		b := f.creature("rat", 50, 2, 2)
		hits := rapid.SliceOf(rapid.IntRange(-100, 100)).Draw(rt, "hits")
		deaths := 0
		f.st.Bus.Subscribe(event.EntityChannel(b), event.Dying, nil, func(event.Event) { deaths++ })
		for _, h := range hits {
			f.res.TakeDamage(0, b, h, "")
			if c := f.st.Combat.Get(b); c.HP > c.MaxHP {
				rt.Fatalf("hp %d above max %d", c.HP, c.MaxHP)
			}
		}
		if deaths > 1 {
			rt.Fatalf("died %d times", deaths)
		}
	})
}

func TestDamagingNonCombatPanics(t *testing.T) {
	f := newFixture(t)
	rock := f.st.Spawn(world.Entity{Name: "rock"})
	defer func() {
		if recover() == nil {
			t.Error("damaging a rock did not panic")
		}
	}()
	f.res.TakeDamage(0, rock, 1, "")
}

func TestHealClampsAndSkipsDead(t *testing.T) {
	f := newFixture(t)
	b := f.creature("rat", 10, 2, 2)
	f.res.TakeDamage(0, b, 4, "")
	if got := f.res.Heal(b, 100); got != 4 {
		t.Errorf("healed %d, want 4", got)
	}
	f.res.Kill(0, b)
	if got := f.res.Heal(b, 5); got != 0 {
		t.Errorf("healed dead for %d", got)
	}
}

func TestRollIsInclusive(t *testing.T) {
	f := newFixture(t)
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := f.res.Roll(world.DamageRange{Min: 2, Max: 4})
		if v < 2 || v > 4 {
			t.Fatalf("roll %d outside [2,4]", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Errorf("saw %v, want all of 2..4", seen)
	}
}

func TestReapScattersAndNarrates(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().AddMessage("orc dies.", gamelog.LevelPlayer, gamelog.ColorInfo).Times(1)

	f := newFixture(t)
	orc := f.creature("orc", 5, 3, 3)
	f.st.Combat.Get(orc).LeavesCorpse = true
	f.st.Combat.Get(orc).Drops = "orc"
	f.st.AddEquipment(orc)
	club := f.st.Spawn(world.Entity{Name: "club", Kind: world.KindItem})
	f.st.Items.Set(club, &world.Item{Slot: world.SlotWeapon})
	world.AddToInventory(f.st, orc, club)
	world.Equip(f.st, orc, club)

	var lootTable string
	reaper := NewReaper(f.st, gamelog.NewNarrator(sink, language.English), zap.NewNop(),
		func(table string, loc *world.Location, x, y int) { lootTable = table })

	died := 0
	f.st.Bus.Subscribe(event.Location, event.EntityDied, nil, func(event.Event) { died++ })

	f.res.TakeDamage(0, orc, 5, "")
	if n := reaper.Reap(f.loc); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	if reaper.Reap(f.loc) != 0 {
		t.Error("second reap processed something")
	}
	if died != 1 {
		t.Errorf("entity_died published %d times", died)
	}
	if f.st.Alive(orc) {
		t.Error("orc still alive after reap")
	}
	if lootTable != "orc" {
		t.Errorf("loot table = %q", lootTable)
	}
	on := f.loc.EntitiesAt(3, 3)
	if len(on) != 2 || on[0] != club || f.st.Entities.Get(on[1]).Kind != world.KindCorpse {
		t.Errorf("cell holds %v, want [club corpse]", on)
	}
}

func TestReapCancelsPendingAction(t *testing.T) {
	f := newFixture(t)
	orc := f.creature("orc", 5, 3, 3)
	fired := false
	world.Perform(f.st, orc, func(a *sched.Action, mode sched.Mode) {
		if mode == sched.ModeRegister {
			a.Required = 10
			return
		}
		fired = true
	})
	f.res.Kill(0, orc)
	NewReaper(f.st, f.narr, zap.NewNop(), nil).Reap(f.loc)
	f.loc.Manager.PassTicks(20)
	if fired {
		t.Error("dead actor's action fired")
	}
}

func TestProjectileHitsFirstCombatant(t *testing.T) {
	f := newFixture(t)
	archer := f.creature("archer", 10, 0, 0)
	target := f.creature("orc", 10, 4, 0)
	f.res.StepTicks = 1

	var hit *Strike
	f.st.Bus.Subscribe(event.Location, event.ShotHit, nil, func(ev event.Event) {
		if ev.Payload.Target == target {
			hit = ev.Payload.Strike.(*Strike)
		}
	})
	path := world.Ray(world.Point{X: 0, Y: 0}, world.Point{X: 4, Y: 0}, 8)
	pid := f.res.Launch(archer, NewStrike(Projectile, world.Fixed(3), "piercing"), 0, path)
	fl := f.res.Flight(pid)

	for i := 0; i < 10 && !fl.Stopped(); i++ {
		f.loc.Manager.PassTicks(1)
	}
	if !fl.Stopped() || fl.State() != "stopped" {
		t.Fatalf("flight state = %s", fl.State())
	}
	if hit == nil || hit.Resolved != 3 {
		t.Fatalf("shot_hit strike = %+v", hit)
	}
	if hp := f.st.Combat.Get(target).HP; hp != 7 {
		t.Errorf("target hp = %d, want 7", hp)
	}
	if f.st.World.Pending() != 1 {
		t.Errorf("projectile not queued for destruction")
	}
	f.st.World.FlushDestroyQueue()
	if f.st.Alive(pid) || f.res.Flight(pid) != nil {
		t.Error("projectile survived flush")
	}
}

func TestThrownItemLandsAtPathEnd(t *testing.T) {
	f := newFixture(t)
	thrower := f.creature("hero", 10, 0, 0)
	rock := f.st.Spawn(world.Entity{Name: "rock", Kind: world.KindItem, Glyph: '*'})
	f.st.Items.Set(rock, &world.Item{Weight: 1})
	f.res.StepTicks = 1

	landed := false
	f.st.Bus.Subscribe(event.EntityChannel(rock), event.ProjectileHit, nil, func(ev event.Event) {
		landed = ev.Payload.Target.IsZero()
	})
	path := world.Line(world.Point{X: 0, Y: 0}, world.Point{X: 3, Y: 0})
	f.res.Launch(thrower, NewStrike(Projectile, world.Fixed(1), "bludgeoning"), rock, path)
	for i := 0; i < 10; i++ {
		f.loc.Manager.PassTicks(1)
	}
	if !landed {
		t.Error("projectile_hit without target not published on the item channel")
	}
	pos := f.st.Positions.Get(rock)
	if pos == nil || pos.X != 3 || pos.Y != 0 {
		t.Errorf("rock at %+v, want (3,0)", pos)
	}
}

// seedFor returns the first seed whose first percent roll satisfies ok.
func seedFor(ok func(roll int) bool) int64 {
	for seed := int64(1); ; seed++ {
		if ok(rand.New(rand.NewSource(seed)).Intn(100)) {
			return seed
		}
	}
}

func TestShotThroughPartialCover(t *testing.T) {
	const cover = 50
	cases := []struct {
		name    string
		seed    int64
		through bool
	}{
		{"passes", seedFor(func(roll int) bool { return roll >= cover }), true},
		{"stops", seedFor(func(roll int) bool { return roll < cover }), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			f.res.rng = rand.New(rand.NewSource(c.seed))
			f.res.StepTicks = 1
			archer := f.creature("archer", 10, 0, 0)
			target := f.creature("orc", 10, 5, 0)
			bush := f.st.Spawn(world.Entity{Name: "bush", ShotBlock: cover})
			f.loc.Place(bush, 2, 0)

			path := world.Ray(world.Point{X: 0, Y: 0}, world.Point{X: 5, Y: 0}, 8)
			pid := f.res.Launch(archer, NewStrike(Projectile, world.Fixed(3), "piercing"), 0, path)
			fl := f.res.Flight(pid)
			for i := 0; i < 10 && !fl.Stopped(); i++ {
				f.loc.Manager.PassTicks(1)
			}
			if !fl.Stopped() {
				t.Fatalf("flight state = %s", fl.State())
			}

			hp := f.st.Combat.Get(target).HP
			if c.through {
				if fl.Hit != target || hp != 7 {
					t.Errorf("hit = %d, target hp = %d; want the orc hit for 3", fl.Hit, hp)
				}
				return
			}
			if !fl.Hit.IsZero() || hp != 10 {
				t.Errorf("hit = %d, target hp = %d; want the shot stopped in cover", fl.Hit, hp)
			}
			if pos := f.st.Positions.Get(pid); pos == nil || pos.X != 2 {
				t.Errorf("projectile at %+v, want the bush cell", pos)
			}
		})
	}
}
