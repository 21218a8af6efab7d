package game

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/persist"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

const testMonsters = `
monsters:
  - name: hero
    glyph: "@"
    faction: heroes
    hp: 40
    sight: 6
    unarmed: {min: 1, max: 1}
    equipment: [short sword]
    inventory: [tonic]
  - name: rat
    glyph: r
    faction: vermin
    hp: 3
    unarmed: {min: 1, max: 1}
    drops: rat
    corpse: true
  - name: ogre
    glyph: O
    faction: ogres
    hp: 200
    sight: 6
    unarmed: {min: 50, max: 50}
`

const testItems = `
items:
  - name: short sword
    slot: weapon
    damage: {min: 3, max: 3}
    damage_type: slash
  - name: arrow
    stackable: true
  - name: tonic
  - name: tail
`

const testDrops = `
drops:
  - name: rat
    items:
      - {item: tail, chance: 1000000}
`

const testTerrain = `
terrain:
  - {name: floor, glyph: "."}
  - {name: wall, glyph: "#", blocks_move: true, blocks_sight: true, shot_block: 100}
`

func writeCatalog(t *testing.T, grid ...string) *data.Catalog {
	t.Helper()
	dir := t.TempDir()
	var arena strings.Builder
	arena.WriteString("name: test pit\nfloor: floor\ngrid:\n")
	for _, row := range grid {
		arena.WriteString("  - \"" + row + "\"\n")
	}
	arena.WriteString(`markers:
  "@": {spawn: player, template: hero}
  "r": {spawn: monster, template: rat}
  "O": {spawn: monster, template: ogre}
  "!": {spawn: item, template: arrow, count: 5}
`)
	files := map[string]string{
		"abilities.yaml": "abilities: []\n",
		"monsters.yaml":  testMonsters,
		"items.yaml":     testItems,
		"drops.yaml":     testDrops,
		"terrain.yaml":   testTerrain,
		"arena.yaml":     arena.String(),
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := data.LoadCatalog(config.CatalogConfig{
		Abilities: filepath.Join(dir, "abilities.yaml"),
		Monsters:  filepath.Join(dir, "monsters.yaml"),
		Items:     filepath.Join(dir, "items.yaml"),
		Drops:     filepath.Join(dir, "drops.yaml"),
		Terrain:   filepath.Join(dir, "terrain.yaml"),
		Arena:     filepath.Join(dir, "arena.yaml"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return cat
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Seed = 7
	cfg.Simulation.MaxTicksPerInput = 10000
	return *cfg
}

func newSim(t *testing.T, cfg config.Config, grid ...string) *Simulation {
	t.Helper()
	sim, err := New(cfg, writeCatalog(t, grid...), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim
}

// The rat is walled off, so it can never reach or see the hero.
var quietPit = []string{
	"#########",
	"#@.!#..r#",
	"#########",
}

func TestArenaBuild(t *testing.T) {
	sim := newSim(t, testConfig(t), quietPit...)
	st := sim.State()

	pos := st.Positions.Get(sim.Player())
	if pos == nil || pos.X != 1 || pos.Y != 1 {
		t.Fatalf("player position = %+v", pos)
	}
	eq := st.Equipment.Get(sim.Player())
	if eq == nil || st.Name(eq.Weapon()) != "short sword" {
		t.Fatalf("weapon not equipped: %+v", eq)
	}
	inv := st.Inventories.Get(sim.Player())
	if inv == nil || len(inv.Items) != 2 {
		t.Fatalf("inventory = %+v, want tonic and sword", inv)
	}

	loc := sim.Location()
	if len(loc.Actors()) != 2 || loc.Actors()[0] != sim.Player() {
		t.Errorf("actors = %v, want player first", loc.Actors())
	}
	var arrows *world.Item
	for _, id := range loc.EntitiesAt(3, 1) {
		if st.Name(id) == "arrow" {
			arrows = st.Items.Get(id)
		}
	}
	if arrows == nil || arrows.Charges != 5 {
		t.Errorf("arrow stack = %+v, want 5 charges", arrows)
	}
}

func TestAdvanceStopsForPlayerInput(t *testing.T) {
	sim := newSim(t, testConfig(t), quietPit...)
	ctx := context.Background()

	o, err := sim.AdvanceUntilInput(ctx)
	if err != nil || o != OutcomeInput {
		t.Fatalf("first advance = %v, %v", o, err)
	}
	if sim.Now() != 0 || !sim.WaitingForInput() {
		t.Fatalf("now=%d waiting=%v, want an immediate input point", sim.Now(), sim.WaitingForInput())
	}

	if !sim.Perform(sim.Player(), sim.Actions().Wait(sim.Player())) {
		t.Fatal("wait refused")
	}
	if sim.WaitingForInput() {
		t.Error("still waiting after an action was queued")
	}
	if sim.Perform(sim.Player(), sim.Actions().Wait(sim.Player())) {
		t.Error("second action accepted while busy")
	}

	o, err = sim.AdvanceUntilInput(ctx)
	if err != nil || o != OutcomeInput {
		t.Fatalf("second advance = %v, %v", o, err)
	}
	if sim.Now() != 100 {
		t.Errorf("now = %d, want 100 after one wait", sim.Now())
	}
	if sim.PlayerTurns() != 1 || sim.Busy() {
		t.Errorf("turns=%d busy=%v", sim.PlayerTurns(), sim.Busy())
	}
}

func TestAutopilotWinsAgainstRat(t *testing.T) {
	sim := newSim(t, testConfig(t),
		"#######",
		"#@...r#",
		"#######",
	)
	ctx := context.Background()

	var o Outcome
	var err error
	for i := 0; i < 50; i++ {
		o, err = sim.AdvanceUntilInput(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if o != OutcomeInput {
			break
		}
		if !sim.AutoTurn() {
			t.Fatalf("autopilot had nothing to do at tick %d", sim.Now())
		}
	}
	if o != OutcomeVictory {
		t.Fatalf("outcome = %v after %d turns", o, sim.PlayerTurns())
	}
	if sim.Reaped() != 1 {
		t.Errorf("reaped = %d, want 1", sim.Reaped())
	}

	st := sim.State()
	var tail, corpse bool
	for y := 0; y < sim.Location().Height; y++ {
		for x := 0; x < sim.Location().Width; x++ {
			for _, id := range sim.Location().EntitiesAt(x, y) {
				switch st.Name(id) {
				case "tail":
					tail = true
				case "rat corpse":
					corpse = true
				}
			}
		}
	}
	if !tail || !corpse {
		t.Errorf("tail=%v corpse=%v, want both on the floor", tail, corpse)
	}

	var died bool
	for _, m := range sim.Messages().Player() {
		if strings.Contains(m, "rat dies.") {
			died = true
		}
	}
	if !died {
		t.Errorf("no death message in %q", sim.Messages().Player())
	}
}

func TestPlayerDeathIsDefeat(t *testing.T) {
	sim := newSim(t, testConfig(t),
		"######",
		"#@O..#",
		"######",
	)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		o, err := sim.AdvanceUntilInput(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if o == OutcomeDefeat {
			if sim.Reaped() != 1 {
				t.Errorf("reaped = %d, want the player", sim.Reaped())
			}
			return
		}
		if o != OutcomeInput {
			t.Fatalf("outcome = %v", o)
		}
		sim.Perform(sim.Player(), sim.Actions().Wait(sim.Player()))
	}
	t.Fatal("player survived an ogre")
}

func TestPassTimeSignalsTickDone(t *testing.T) {
	sim := newSim(t, testConfig(t), quietPit...)
	sim.PassTime(7)
	sim.PassTime(3)
	select {
	case now := <-sim.TickDone():
		if now != 10 {
			t.Errorf("tick done = %d, want only the latest value", now)
		}
	default:
		t.Fatal("no tick signalled")
	}
	select {
	case now := <-sim.TickDone():
		t.Errorf("stale tick %d still queued", now)
	default:
	}
	if sim.Busy() {
		t.Error("busy after PassTime returned")
	}
}

func TestAdvanceStalls(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.MaxTicksPerInput = 50
	sim := newSim(t, cfg, quietPit...)
	ctx := context.Background()

	if _, err := sim.AdvanceUntilInput(ctx); err != nil {
		t.Fatal(err)
	}
	long := func(a *sched.Action, mode sched.Mode) {
		if mode == sched.ModeRegister {
			a.Required = 1000
		}
	}
	if !sim.Perform(sim.Player(), long) {
		t.Fatal("long action refused")
	}
	_, err := sim.AdvanceUntilInput(ctx)
	if !errors.Is(err, ErrStalled) {
		t.Fatalf("err = %v, want ErrStalled", err)
	}
}

func TestAdvanceHonoursContext(t *testing.T) {
	sim := newSim(t, testConfig(t), quietPit...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.AdvanceUntilInput(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type memWriter struct {
	mu      sync.Mutex
	entries []persist.JournalEntry
}

func (w *memWriter) WriteBatch(_ context.Context, entries []persist.JournalEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entries...)
	return nil
}

func TestJournalRecordsRun(t *testing.T) {
	sim := newSim(t, testConfig(t), quietPit...)
	w := &memWriter{}
	j := sim.EnableJournal(w, 8, 1000)
	ctx := context.Background()

	if _, err := sim.AdvanceUntilInput(ctx); err != nil {
		t.Fatal(err)
	}
	sim.Perform(sim.Player(), sim.Actions().Move(sim.Player(), 1, 0))
	if _, err := sim.AdvanceUntilInput(ctx); err != nil {
		t.Fatal(err)
	}
	sim.Close()
	if err := j.Run(ctx); err != nil {
		t.Fatal(err)
	}

	var moved bool
	for _, e := range w.entries {
		if e.RunID != sim.ID.String() {
			t.Fatalf("entry run = %q, want %q", e.RunID, sim.ID.String())
		}
		if e.Kind == persist.KindEvent && e.Name == "entity_moved" && e.Entity == uint64(sim.Player()) {
			moved = true
		}
	}
	if !moved {
		t.Errorf("player move not journaled in %d entries", len(w.entries))
	}
	if j.Dropped() != 0 {
		t.Errorf("dropped = %d", j.Dropped())
	}
}
