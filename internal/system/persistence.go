package system

import (
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/persist"
)

// JournalSystem hands buffered journal entries to the writer goroutine
// every interval steps. Phase 5 (Persist).
type JournalSystem struct {
	journal  *persist.Journal
	steps    int
	interval int
}

func NewJournalSystem(j *persist.Journal, intervalSteps int) *JournalSystem {
	if intervalSteps < 1 {
		intervalSteps = 1
	}
	return &JournalSystem{journal: j, interval: intervalSteps}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ int) {
	s.steps++
	if s.steps < s.interval {
		return
	}
	s.steps = 0
	s.journal.Flush()
}
