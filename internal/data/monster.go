package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/encounter/internal/world"
	"gopkg.in/yaml.v3"
)

// MonsterTemplate holds static data for a creature type loaded from YAML.
type MonsterTemplate struct {
	Name          string            `yaml:"name"`
	Glyph         string            `yaml:"glyph"`
	Color         string            `yaml:"color"`
	Category      string            `yaml:"category"` // undead, beast...
	Faction       string            `yaml:"faction"`
	HP            int               `yaml:"hp"`
	Speed         int               `yaml:"speed"` // 100 = normal
	Sight         int               `yaml:"sight"` // 0 = no perception
	Armor         map[string]int    `yaml:"armor"`
	Block         map[string]int    `yaml:"block"`
	Unarmed       world.DamageRange `yaml:"unarmed"`
	UnarmedType   string            `yaml:"unarmed_type"`
	CarryCapacity int               `yaml:"carry_capacity"`
	Tolerance     int               `yaml:"tolerance"`
	Abilities     []string          `yaml:"abilities"`
	Equipment     []string          `yaml:"equipment"` // item templates, worn on spawn
	Inventory     []string          `yaml:"inventory"` // item templates, carried
	Brain         string            `yaml:"brain"`     // scripted AI, empty = built-in
	Drops         string            `yaml:"drops"`     // drop table name
	Corpse        bool              `yaml:"corpse"`
	Regen         world.Regen       `yaml:"regen"`
}

// Rune returns the display glyph, 'm' when unset.
func (t *MonsterTemplate) Rune() rune { return glyphRune(t.Glyph, 'm') }

type monsterListFile struct {
	Monsters []MonsterTemplate `yaml:"monsters"`
}

// MonsterTable holds all creature templates indexed by name.
type MonsterTable struct {
	monsters map[string]*MonsterTemplate
	names    []string
}

// Get returns a creature template by name, or nil if not found.
func (t *MonsterTable) Get(name string) *MonsterTemplate {
	return t.monsters[name]
}

// Count returns the number of loaded templates.
func (t *MonsterTable) Count() int {
	return len(t.monsters)
}

// Names returns template names in file order.
func (t *MonsterTable) Names() []string {
	return t.names
}

// LoadMonsterTable loads creature templates from a YAML file.
func LoadMonsterTable(path string) (*MonsterTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monsters: %w", err)
	}
	var f monsterListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse monsters: %w", err)
	}
	t := &MonsterTable{monsters: make(map[string]*MonsterTemplate, len(f.Monsters))}
	for i := range f.Monsters {
		m := &f.Monsters[i]
		if m.Name == "" {
			return nil, fmt.Errorf("parse monsters: entry %d has no name", i)
		}
		if _, dup := t.monsters[m.Name]; dup {
			return nil, fmt.Errorf("parse monsters: %s defined twice", m.Name)
		}
		if m.HP <= 0 {
			return nil, fmt.Errorf("parse monsters: %s: hp must be positive", m.Name)
		}
		if m.Regen.Every < 0 || m.Regen.Amount < 0 {
			return nil, fmt.Errorf("parse monsters: %s: negative regen", m.Name)
		}
		if m.Speed == 0 {
			m.Speed = 100
		}
		if m.Faction == "" {
			m.Faction = "monsters"
		}
		if m.Unarmed == (world.DamageRange{}) {
			m.Unarmed = world.DamageRange{Min: 1, Max: 2}
		}
		if m.UnarmedType == "" {
			m.UnarmedType = "blunt"
		}
		t.monsters[m.Name] = m
		t.names = append(t.names, m.Name)
	}
	return t, nil
}

// Validate checks that every ability, item and drop table a monster refers
// to exists.
func (t *MonsterTable) Validate(abilities func(string) bool, items *ItemTable, drops *DropTable) error {
	for _, name := range t.names {
		m := t.monsters[name]
		for _, a := range m.Abilities {
			if !abilities(a) {
				return fmt.Errorf("monster %s: unknown ability %q", name, a)
			}
		}
		for _, list := range [][]string{m.Equipment, m.Inventory} {
			for _, it := range list {
				if items.Get(it) == nil {
					return fmt.Errorf("monster %s: unknown item %q", name, it)
				}
			}
		}
		if m.Drops != "" && drops.Get(m.Drops) == nil {
			return fmt.Errorf("monster %s: unknown drop table %q", name, m.Drops)
		}
	}
	return nil
}
