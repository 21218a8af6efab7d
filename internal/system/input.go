package system

import (
	"github.com/l1jgo/encounter/internal/ai"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/world"
	"go.uber.org/zap"
)

// TurnSystem gives every idle actor of every active location its next
// action. Players come first: an idle player stops the pass so that nobody
// decides ahead of the player's input. Phase 0 (Input).
type TurnSystem struct {
	world    *world.State
	director *ai.Director
	log      *zap.Logger

	waiting bool
	turns   int
}

func NewTurnSystem(ws *world.State, director *ai.Director, log *zap.Logger) *TurnSystem {
	return &TurnSystem{world: ws, director: director, log: log.Named("turn")}
}

func (s *TurnSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *TurnSystem) Update(_ int) {
	s.waiting = false
	for _, loc := range s.world.Locations() {
		if !loc.Active() {
			continue
		}
		for _, id := range loc.Actors() {
			a := s.world.Actors.Get(id)
			if a == nil || a.Busy() {
				continue
			}
			if c := s.world.Combat.Get(id); c != nil && c.Dead {
				continue
			}
			if a.Player {
				s.waiting = true
				return
			}
			if s.director.TakeTurn(id) {
				s.turns++
			}
		}
	}
}

// Waiting reports whether the last pass stopped at an idle player.
func (s *TurnSystem) Waiting() bool { return s.waiting }

// Turns returns how many non-player turns were handed out.
func (s *TurnSystem) Turns() int { return s.turns }
