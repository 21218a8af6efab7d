package data

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/l1jgo/encounter/internal/world"
	"gopkg.in/yaml.v3"
)

// Spawn kinds an arena marker can place.
const (
	SpawnPlayer  = "player"
	SpawnMonster = "monster"
	SpawnItem    = "item"
	SpawnDoor    = "door"
)

// Marker is a legend entry placing an entity instead of terrain.
type Marker struct {
	Spawn    string `yaml:"spawn"`    // player, monster, item, door
	Template string `yaml:"template"` // monster or item template
	Count    int    `yaml:"count"`    // item stacks
	Open     bool   `yaml:"open"`     // doors
}

// ArenaSpawn is a marker resolved to a cell.
type ArenaSpawn struct {
	Marker
	X, Y int
}

// Arena is a fixed encounter map: a terrain grid plus what stands on it.
type Arena struct {
	Name   string
	Width  int
	Height int
	// Cells is row-major: Cells[y*Width+x].
	Cells  []*world.Terrain
	Spawns []ArenaSpawn
}

// At returns the terrain of (x, y).
func (a *Arena) At(x, y int) *world.Terrain { return a.Cells[y*a.Width+x] }

// Player returns the player spawn.
func (a *Arena) Player() ArenaSpawn {
	for _, s := range a.Spawns {
		if s.Spawn == SpawnPlayer {
			return s
		}
	}
	return ArenaSpawn{}
}

type arenaFile struct {
	Name    string            `yaml:"name"`
	Floor   string            `yaml:"floor"` // terrain under markers
	Grid    []string          `yaml:"grid"`
	Markers map[string]Marker `yaml:"markers"`
}

// LoadArena loads an arena fixture from a YAML file. Grid glyphs resolve
// through markers first, then the terrain legend.
func LoadArena(path string, terrain *TerrainTable) (*Arena, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arena %s: %w", path, err)
	}
	a, err := ParseArena(raw, terrain)
	if err != nil {
		return nil, fmt.Errorf("parse arena %s: %w", path, err)
	}
	return a, nil
}

// ParseArena decodes an arena fixture.
func ParseArena(raw []byte, terrain *TerrainTable) (*Arena, error) {
	var f arenaFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Grid) == 0 {
		return nil, fmt.Errorf("arena %q: empty grid", f.Name)
	}
	floor := terrain.Get(f.Floor)
	if floor == nil {
		return nil, fmt.Errorf("arena %q: unknown floor terrain %q", f.Name, f.Floor)
	}
	markers := make(map[rune]Marker, len(f.Markers))
	for k, m := range f.Markers {
		if utf8.RuneCountInString(k) != 1 {
			return nil, fmt.Errorf("arena %q: marker key %q must be one glyph", f.Name, k)
		}
		switch m.Spawn {
		case SpawnPlayer, SpawnMonster, SpawnItem:
			if m.Template == "" {
				return nil, fmt.Errorf("arena %q: marker %q needs a template", f.Name, k)
			}
		case SpawnDoor:
		default:
			return nil, fmt.Errorf("arena %q: marker %q: unknown spawn %q", f.Name, k, m.Spawn)
		}
		r, _ := utf8.DecodeRuneInString(k)
		markers[r] = m
	}

	w := utf8.RuneCountInString(f.Grid[0])
	a := &Arena{
		Name:   f.Name,
		Width:  w,
		Height: len(f.Grid),
		Cells:  make([]*world.Terrain, 0, w*len(f.Grid)),
	}
	players := 0
	for y, row := range f.Grid {
		row = strings.TrimRight(row, "\r")
		if n := utf8.RuneCountInString(row); n != w {
			return nil, fmt.Errorf("arena %q: row %d is %d wide, want %d", f.Name, y, n, w)
		}
		x := 0
		for _, g := range row {
			if m, ok := markers[g]; ok {
				a.Cells = append(a.Cells, floor)
				a.Spawns = append(a.Spawns, ArenaSpawn{Marker: m, X: x, Y: y})
				if m.Spawn == SpawnPlayer {
					players++
				}
			} else if t := terrain.ByGlyph(g); t != nil {
				a.Cells = append(a.Cells, t)
			} else {
				return nil, fmt.Errorf("arena %q: unknown glyph %q at (%d,%d)", f.Name, g, x, y)
			}
			x++
		}
	}
	if players != 1 {
		return nil, fmt.Errorf("arena %q: %d player markers, want 1", f.Name, players)
	}
	return a, nil
}

// Validate checks that every template a marker names exists.
func (a *Arena) Validate(monsters *MonsterTable, items *ItemTable) error {
	for _, s := range a.Spawns {
		switch s.Spawn {
		case SpawnPlayer, SpawnMonster:
			if monsters.Get(s.Template) == nil {
				return fmt.Errorf("arena %q: unknown monster %q at (%d,%d)", a.Name, s.Template, s.X, s.Y)
			}
		case SpawnItem:
			if items.Get(s.Template) == nil {
				return fmt.Errorf("arena %q: unknown item %q at (%d,%d)", a.Name, s.Template, s.X, s.Y)
			}
		}
	}
	return nil
}
