package data

import (
	"fmt"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/config"
	"go.uber.org/zap"
)

// Catalog bundles every static table an encounter needs.
type Catalog struct {
	Abilities map[string]*ability.Template
	Monsters  *MonsterTable
	Items     *ItemTable
	Drops     *DropTable
	Terrain   *TerrainTable
	Arena     *Arena
}

// LoadCatalog loads and cross-checks every table named in cfg.
func LoadCatalog(cfg config.CatalogConfig, log *zap.Logger) (*Catalog, error) {
	abilities, err := ability.LoadTemplates(cfg.Abilities)
	if err != nil {
		return nil, err
	}
	items, err := LoadItemTable(cfg.Items)
	if err != nil {
		return nil, err
	}
	drops, err := LoadDropTable(cfg.Drops)
	if err != nil {
		return nil, err
	}
	monsters, err := LoadMonsterTable(cfg.Monsters)
	if err != nil {
		return nil, err
	}
	terrain, err := LoadTerrainTable(cfg.Terrain)
	if err != nil {
		return nil, err
	}
	arena, err := LoadArena(cfg.Arena, terrain)
	if err != nil {
		return nil, err
	}

	known := func(name string) bool {
		_, ok := abilities[name]
		return ok
	}
	if err := drops.Validate(items); err != nil {
		return nil, err
	}
	if err := monsters.Validate(known, items, drops); err != nil {
		return nil, err
	}
	for _, it := range items.items {
		for _, a := range it.Abilities {
			if !known(a) {
				return nil, fmt.Errorf("item %s: unknown ability %q", it.Name, a)
			}
		}
	}
	if err := arena.Validate(monsters, items); err != nil {
		return nil, err
	}

	log.Info("catalog loaded",
		zap.Int("abilities", len(abilities)),
		zap.Int("monsters", monsters.Count()),
		zap.Int("items", items.Count()),
		zap.Int("drops", drops.Count()),
		zap.Int("terrain", terrain.Count()),
		zap.String("arena", arena.Name),
	)
	return &Catalog{
		Abilities: abilities,
		Monsters:  monsters,
		Items:     items,
		Drops:     drops,
		Terrain:   terrain,
		Arena:     arena,
	}, nil
}
