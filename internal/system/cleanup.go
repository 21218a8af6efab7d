package system

import (
	"github.com/l1jgo/encounter/internal/combat"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/world"
)

// ReapSystem runs death processing for everything that died this step, then
// flushes the deferred entity destruction queue. Phase 6 (Cleanup).
type ReapSystem struct {
	world  *world.State
	reaper *combat.Reaper
	reaped int
}

func NewReapSystem(ws *world.State, reaper *combat.Reaper) *ReapSystem {
	return &ReapSystem{world: ws, reaper: reaper}
}

func (s *ReapSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *ReapSystem) Update(_ int) {
	for _, loc := range s.world.Locations() {
		s.reaped += s.reaper.Reap(loc)
	}
	s.world.World.FlushDestroyQueue()
}

// Reaped returns the number of deaths processed so far.
func (s *ReapSystem) Reaped() int { return s.reaped }
