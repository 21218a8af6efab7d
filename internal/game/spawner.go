package game

import (
	"fmt"
	"math/rand"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/ai"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// Spawner builds entities from catalog templates.
// Accessed only from the simulation goroutine.
type Spawner struct {
	st       *world.State
	cat      *data.Catalog
	abil     *ability.System
	director *ai.Director
	rng      *rand.Rand
	log      *zap.Logger
}

func NewSpawner(st *world.State, cat *data.Catalog, abil *ability.System, director *ai.Director, rng *rand.Rand, log *zap.Logger) *Spawner {
	return &Spawner{st: st, cat: cat, abil: abil, director: director, rng: rng, log: log.Named("spawner")}
}

// Monster creates a creature from template name on (x, y). The player gets
// the player lane and a brain for autopilot; everyone else gets the brain
// their template names.
func (s *Spawner) Monster(name string, loc *world.Location, x, y int, player bool) (ecs.EntityID, error) {
	t := s.cat.Monsters.Get(name)
	if t == nil {
		return 0, fmt.Errorf("unknown monster %q", name)
	}
	id := s.st.Spawn(world.Entity{
		Name:     t.Name,
		Glyph:    t.Rune(),
		Color:    t.Color,
		Kind:     world.KindCreature,
		Category: t.Category,
		Faction:  t.Faction,
		Template: t.Name,
		Occupies: true,
	})
	s.st.Combat.Set(id, &world.Combat{
		HP:           t.HP,
		MaxHP:        t.HP,
		Armor:        cloneInts(t.Armor),
		Block:        cloneInts(t.Block),
		Unarmed:      t.Unarmed,
		UnarmedType:  t.UnarmedType,
		LeavesCorpse: t.Corpse,
		Drops:        t.Drops,
		Regen:        t.Regen,
	})
	s.st.Actors.Set(id, &world.Actor{
		Speed:         t.Speed,
		Player:        player,
		CarryCapacity: t.CarryCapacity,
		Tolerance:     t.Tolerance,
		Brain:         t.Brain,
	})
	if t.Sight > 0 {
		s.st.Perceptions.Set(id, world.NewPerception(t.Sight))
	}
	s.st.Inventories.Set(id, &world.Inventory{})
	s.st.AddEquipment(id)

	for _, a := range t.Abilities {
		if _, err := s.abil.Create(a, id); err != nil {
			s.st.Destroy(id)
			return 0, fmt.Errorf("monster %s: %w", name, err)
		}
	}
	if player {
		s.director.Attach(id, "")
	} else {
		s.director.Attach(id, t.Brain)
	}
	loc.Place(id, x, y)

	for _, it := range t.Inventory {
		item, err := s.Item(it, 0)
		if err != nil {
			return id, fmt.Errorf("monster %s: %w", name, err)
		}
		world.AddToInventory(s.st, id, item)
	}
	for _, it := range t.Equipment {
		item, err := s.Item(it, 0)
		if err != nil {
			return id, fmt.Errorf("monster %s: %w", name, err)
		}
		item = world.AddToInventory(s.st, id, item)
		if !world.Equip(s.st, id, item) {
			s.log.Warn("spawn equipment not wearable",
				zap.String("monster", name),
				zap.String("item", it),
			)
		}
	}
	s.log.Debug("spawned",
		zap.Uint64("entity", uint64(id)),
		zap.String("template", name),
		zap.Int("x", x),
		zap.Int("y", y),
	)
	return id, nil
}

// Item creates an unplaced item from template name. count sets the charges
// of a stack; 0 keeps the template's.
func (s *Spawner) Item(name string, count int) (ecs.EntityID, error) {
	t := s.cat.Items.Get(name)
	if t == nil {
		return 0, fmt.Errorf("unknown item %q", name)
	}
	id := s.st.Spawn(world.Entity{
		Name:      t.Name,
		Glyph:     t.Rune(),
		Color:     t.Color,
		Kind:      world.KindItem,
		Template:  t.Name,
		ShotBlock: t.ShotBlock,
	})
	it := t.Component()
	if it.Stackable && count > 0 {
		it.Charges = count
	}
	s.st.Items.Set(id, it)
	for _, a := range t.Abilities {
		if _, err := s.abil.Create(a, id); err != nil {
			s.st.Destroy(id)
			return 0, fmt.Errorf("item %s: %w", name, err)
		}
	}
	return id, nil
}

// ItemAt places count of item name on (x, y): one stack for stackables,
// count separate items otherwise.
func (s *Spawner) ItemAt(name string, count int, loc *world.Location, x, y int) error {
	t := s.cat.Items.Get(name)
	if t == nil {
		return fmt.Errorf("unknown item %q", name)
	}
	n := 1
	if !t.Stackable && count > 1 {
		n = count
	}
	for i := 0; i < n; i++ {
		id, err := s.Item(name, count)
		if err != nil {
			return err
		}
		loc.Place(id, x, y)
	}
	return nil
}

// Door places a door on (x, y).
func (s *Spawner) Door(loc *world.Location, x, y int, open bool) ecs.EntityID {
	id := s.st.Spawn(world.Entity{
		Name:        "door",
		Glyph:       '+',
		Color:       "brown",
		Kind:        world.KindDoor,
		Open:        open,
		BlocksMove:  !open,
		BlocksSight: !open,
	})
	loc.Place(id, x, y)
	return id
}

// Loot rolls drop table on (x, y). It is the reaper's loot hook.
func (s *Spawner) Loot(table string, loc *world.Location, x, y int) {
	for _, d := range s.cat.Drops.Roll(table, s.rng) {
		if err := s.ItemAt(d.Item, d.Count, loc, x, y); err != nil {
			s.log.Warn("drop failed", zap.String("table", table), zap.Error(err))
		}
	}
}

// Arena builds the location described by a and everything standing on it.
// Returns the location and the player.
func (s *Spawner) Arena(a *data.Arena) (*world.Location, ecs.EntityID, error) {
	loc := world.NewLocation(s.st, a.Name, a.Width, a.Height, a.At(0, 0))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			if t := a.At(x, y); t != loc.Cell(x, y).Terrain {
				loc.SetTerrain(x, y, t)
			}
		}
	}
	var player ecs.EntityID
	for _, sp := range a.Spawns {
		switch sp.Spawn {
		case data.SpawnPlayer, data.SpawnMonster:
			id, err := s.Monster(sp.Template, loc, sp.X, sp.Y, sp.Spawn == data.SpawnPlayer)
			if err != nil {
				return nil, 0, err
			}
			if sp.Spawn == data.SpawnPlayer {
				player = id
			}
		case data.SpawnItem:
			if err := s.ItemAt(sp.Template, sp.Count, loc, sp.X, sp.Y); err != nil {
				return nil, 0, err
			}
		case data.SpawnDoor:
			s.Door(loc, sp.X, sp.Y, sp.Open)
		}
	}
	return loc, player, nil
}

func cloneInts(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
