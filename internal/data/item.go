package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/encounter/internal/world"
	"gopkg.in/yaml.v3"
)

// ItemTemplate holds static data for an item type loaded from YAML.
type ItemTemplate struct {
	Name       string            `yaml:"name"`
	Glyph      string            `yaml:"glyph"`
	Color      string            `yaml:"color"`
	Weight     int               `yaml:"weight"`
	Slot       string            `yaml:"slot"` // head, body, shield, weapon, missile...
	Stackable  bool              `yaml:"stackable"`
	Charges    int               `yaml:"charges"`
	Consumable bool              `yaml:"consumable"` // used up by UseItem
	Damage     world.DamageRange `yaml:"damage"`
	DamageType string            `yaml:"damage_type"`
	Armor      map[string]int    `yaml:"armor"`
	Block      map[string]int    `yaml:"block"`
	Shield     *world.Shield     `yaml:"shield"`
	AmmoType   string            `yaml:"ammo_type"` // ranged weapons: what they shoot
	Ammo       string            `yaml:"ammo"`      // ammunition: what it is
	Range      int               `yaml:"range"`
	ShotBlock  int               `yaml:"shot_block"`
	Abilities  []string          `yaml:"abilities"`
}

// EquipSlot returns the parsed slot, SlotNone for non-wearables.
func (t *ItemTemplate) EquipSlot() world.EquipSlot { return world.SlotFromName(t.Slot) }

// Rune returns the display glyph, '?' when unset.
func (t *ItemTemplate) Rune() rune { return glyphRune(t.Glyph, '?') }

// Component builds the Item component for a fresh instance.
func (t *ItemTemplate) Component() *world.Item {
	it := &world.Item{
		Stackable:  t.Stackable,
		Charges:    t.Charges,
		Consumable: t.Consumable,
		Weight:     t.Weight,
		Slot:       t.EquipSlot(),
		Damage:     t.Damage,
		DamageType: t.DamageType,
		Armor:      copyInts(t.Armor),
		Block:      copyInts(t.Block),
		AmmoType:   t.AmmoType,
		Ammo:       t.Ammo,
		Range:      t.Range,
	}
	if t.Stackable && it.Charges <= 0 {
		it.Charges = 1
	}
	if t.Shield != nil {
		it.Shield = &world.Shield{Block: copyInts(t.Shield.Block), Durability: t.Shield.Durability}
	}
	return it
}

type itemListFile struct {
	Items []ItemTemplate `yaml:"items"`
}

// ItemTable holds all item templates indexed by name.
type ItemTable struct {
	items map[string]*ItemTemplate
}

// Get returns an item template by name, or nil if not found.
func (t *ItemTable) Get(name string) *ItemTemplate {
	return t.items[name]
}

// Count returns the number of loaded templates.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// LoadItemTable loads item templates from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	t := &ItemTable{items: make(map[string]*ItemTemplate, len(f.Items))}
	for i := range f.Items {
		e := &f.Items[i]
		if e.Name == "" {
			return nil, fmt.Errorf("parse items: entry %d has no name", i)
		}
		if _, dup := t.items[e.Name]; dup {
			return nil, fmt.Errorf("parse items: %s defined twice", e.Name)
		}
		if e.Slot != "" && e.EquipSlot() == world.SlotNone {
			return nil, fmt.Errorf("parse items: %s: unknown slot %q", e.Name, e.Slot)
		}
		if e.Damage.Min > e.Damage.Max {
			return nil, fmt.Errorf("parse items: %s: damage min %d > max %d", e.Name, e.Damage.Min, e.Damage.Max)
		}
		t.items[e.Name] = e
	}
	return t, nil
}

func copyInts(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func glyphRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}
