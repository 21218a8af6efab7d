package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/encounter/internal/world"
	"gopkg.in/yaml.v3"
)

type terrainEntry struct {
	Name        string `yaml:"name"`
	Glyph       string `yaml:"glyph"`
	Color       string `yaml:"color"`
	BlocksMove  bool   `yaml:"blocks_move"`
	BlocksSight bool   `yaml:"blocks_sight"`
	ShotBlock   int    `yaml:"shot_block"`
	Cost        int    `yaml:"cost"`
}

type terrainListFile struct {
	Terrain []terrainEntry `yaml:"terrain"`
}

// TerrainTable is the terrain legend, indexed by name and by glyph.
type TerrainTable struct {
	byName  map[string]*world.Terrain
	byGlyph map[rune]*world.Terrain
}

// Get returns terrain by name, or nil.
func (t *TerrainTable) Get(name string) *world.Terrain { return t.byName[name] }

// ByGlyph returns the terrain drawn as r, or nil.
func (t *TerrainTable) ByGlyph(r rune) *world.Terrain { return t.byGlyph[r] }

// Count returns the number of terrain kinds.
func (t *TerrainTable) Count() int { return len(t.byName) }

// LoadTerrainTable loads the terrain legend from a YAML file.
func LoadTerrainTable(path string) (*TerrainTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terrain: %w", err)
	}
	var f terrainListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse terrain: %w", err)
	}
	t := &TerrainTable{
		byName:  make(map[string]*world.Terrain, len(f.Terrain)),
		byGlyph: make(map[rune]*world.Terrain, len(f.Terrain)),
	}
	for _, e := range f.Terrain {
		g := glyphRune(e.Glyph, 0)
		if e.Name == "" || g == 0 {
			return nil, fmt.Errorf("parse terrain: entry %q needs a name and a glyph", e.Name)
		}
		if _, dup := t.byGlyph[g]; dup {
			return nil, fmt.Errorf("parse terrain: glyph %q used twice", g)
		}
		tr := &world.Terrain{
			Name:        e.Name,
			Glyph:       g,
			Color:       e.Color,
			BlocksMove:  e.BlocksMove,
			BlocksSight: e.BlocksSight,
			ShotBlock:   e.ShotBlock,
			Cost:        e.Cost,
		}
		t.byName[e.Name] = tr
		t.byGlyph[g] = tr
	}
	return t, nil
}
