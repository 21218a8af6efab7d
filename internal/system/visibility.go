package system

import (
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/world"
)

// PerceptionSystem recomputes every stale field of view once the step's
// actions have fired, so readers between steps see current visibility.
// Phase 3 (PostUpdate).
type PerceptionSystem struct {
	world *world.State
}

func NewPerceptionSystem(ws *world.State) *PerceptionSystem {
	return &PerceptionSystem{world: ws}
}

func (s *PerceptionSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *PerceptionSystem) Update(_ int) {
	for _, loc := range s.world.Locations() {
		if !loc.Active() {
			continue
		}
		for _, id := range loc.Actors() {
			if p := s.world.Perceptions.Get(id); p != nil && p.Dirty() {
				loc.Refresh(id)
			}
		}
	}
}
