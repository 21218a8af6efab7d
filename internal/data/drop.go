package data

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// ChanceScale is the denominator of DropItem.Chance (100% = 1000000).
const ChanceScale = 1000000

// DropItem represents a single possible drop.
type DropItem struct {
	Item   string `yaml:"item"`
	Min    int    `yaml:"min"`
	Max    int    `yaml:"max"`
	Chance int    `yaml:"chance"` // out of 1,000,000 (100% = 1000000)
}

type dropEntry struct {
	Name  string     `yaml:"name"`
	Items []DropItem `yaml:"items"`
}

type dropListFile struct {
	Drops []dropEntry `yaml:"drops"`
}

// Drop is one rolled result.
type Drop struct {
	Item  string
	Count int
}

// DropTable holds all drop lists indexed by table name.
type DropTable struct {
	drops map[string][]DropItem
}

// Get returns the drop list for a table, or nil if none defined.
func (t *DropTable) Get(name string) []DropItem {
	return t.drops[name]
}

// Count returns the number of drop tables.
func (t *DropTable) Count() int {
	return len(t.drops)
}

// Roll rolls every entry of the named table independently, in file order.
func (t *DropTable) Roll(name string, rng *rand.Rand) []Drop {
	var out []Drop
	for _, d := range t.drops[name] {
		if d.Chance < ChanceScale && rng.Intn(ChanceScale) >= d.Chance {
			continue
		}
		n := d.Min
		if d.Max > d.Min {
			n += rng.Intn(d.Max - d.Min + 1)
		}
		if n > 0 {
			out = append(out, Drop{Item: d.Item, Count: n})
		}
	}
	return out
}

// LoadDropTable loads drop tables from a YAML file.
func LoadDropTable(path string) (*DropTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drop_list: %w", err)
	}
	var f dropListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse drop_list: %w", err)
	}
	t := &DropTable{drops: make(map[string][]DropItem, len(f.Drops))}
	for _, entry := range f.Drops {
		for i := range entry.Items {
			d := &entry.Items[i]
			if d.Min == 0 && d.Max == 0 {
				d.Min, d.Max = 1, 1
			}
			if d.Max < d.Min {
				d.Max = d.Min
			}
		}
		t.drops[entry.Name] = entry.Items
	}
	return t, nil
}

// Validate checks that every dropped item exists.
func (t *DropTable) Validate(items *ItemTable) error {
	for name, list := range t.drops {
		for _, d := range list {
			if items.Get(d.Item) == nil {
				return fmt.Errorf("drop table %s: unknown item %q", name, d.Item)
			}
		}
	}
	return nil
}
