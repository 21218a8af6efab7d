package system

// Phase defines execution ordering within a single simulation step.
type Phase int

const (
	PhaseInput      Phase = iota // 0: idle actors choose their next action (player first)
	PhasePreUpdate               // 1: reserved for pre-clock bookkeeping
	PhaseUpdate                  // 2: advance the clock, fire ready actions
	PhasePostUpdate              // 3: perception refresh
	PhaseOutput                  // 4: observers
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: reap the dead, destroy queued entities
)

// System is the interface every simulation system implements. ticks is the
// number of ticks the current step advances.
type System interface {
	Phase() Phase
	Update(ticks int)
}
