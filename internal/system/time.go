package system

import (
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/sched"
)

// TimeSystem advances the global clock, firing every ready action of every
// active location. Phase 2 (Update).
type TimeSystem struct {
	clock *sched.Clock
}

func NewTimeSystem(clock *sched.Clock) *TimeSystem {
	return &TimeSystem{clock: clock}
}

func (s *TimeSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *TimeSystem) Update(ticks int) {
	s.clock.PassTime(ticks)
}
