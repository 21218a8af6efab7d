package sched

import (
	"fmt"
	"sort"

	"github.com/l1jgo/encounter/internal/core/ecs"
)

// Manager is the pending-action queue of one location.
// Accessed only from the simulation goroutine.
type Manager struct {
	pending []*Action
	nextSeq uint64
	onTicks func(n int)
}

// NewManager creates an empty manager. onTicks, when non-nil, runs at the
// start of every PassTicks call (the owning location publishes ticks_passed
// from it).
func NewManager(onTicks func(n int)) *Manager {
	return &Manager{
		pending: make([]*Action, 0, 32),
		onTicks: onTicks,
	}
}

// Register creates an action, invokes it once in register mode and queues
// it. The returned handle can be used to cancel it.
func (m *Manager) Register(actor ecs.EntityID, lane Lane, required int, fn Func) *Action {
	m.nextSeq++
	a := &Action{
		Actor:    actor,
		Lane:     lane,
		Required: required,
		Fn:       fn,
		Scratch:  make(map[string]any),
		seq:      m.nextSeq,
	}
	fn(a, ModeRegister)
	if a.Required < 0 {
		a.Required = 0
	}
	m.pending = append(m.pending, a)
	return a
}

// PassTicks advances every non-frozen action by n ticks and fires the ready
// ones. Actions registered while the pass runs are not advanced by it.
func (m *Manager) PassTicks(n int) {
	if n < 1 {
		panic(fmt.Sprintf("sched: PassTicks(%d): tick count must be positive", n))
	}
	if m.onTicks != nil {
		m.onTicks(n)
	}

	snapshot := make([]*Action, len(m.pending))
	copy(snapshot, m.pending)

	ready := make([]*Action, 0, 4)
	for _, a := range snapshot {
		if a.state != statePending || a.Frozen {
			continue
		}
		a.Elapsed += n
		if a.Ready() {
			ready = append(ready, a)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Lane != ready[j].Lane {
			return ready[i].Lane < ready[j].Lane
		}
		return ready[i].seq < ready[j].seq
	})

	for _, a := range ready {
		// An earlier fire in this pass may have cancelled it.
		if a.state != statePending {
			continue
		}
		m.remove(a)
		a.state = stateFired
		a.Fn(a, ModeFire)
	}
}

// Cancel removes a pending action without firing it.
func (m *Manager) Cancel(a *Action) bool {
	if a == nil || a.state != statePending {
		return false
	}
	if !m.remove(a) {
		return false
	}
	a.state = stateCancelled
	return true
}

// CancelActor cancels every pending action bound to actor and returns how
// many were removed.
func (m *Manager) CancelActor(actor ecs.EntityID) int {
	n := 0
	for _, a := range m.PendingFor(actor) {
		if m.Cancel(a) {
			n++
		}
	}
	return n
}

// Freeze stops or resumes tick accumulation for a.
func (m *Manager) Freeze(a *Action, frozen bool) {
	a.Frozen = frozen
}

// PendingFor returns the queued actions bound to actor in registration order.
func (m *Manager) PendingFor(actor ecs.EntityID) []*Action {
	var out []*Action
	for _, a := range m.pending {
		if a.Actor == actor {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of queued actions.
func (m *Manager) Len() int { return len(m.pending) }

// NextReady returns the smallest number of ticks after which at least one
// non-frozen action becomes ready, or 0 when nothing is pending.
func (m *Manager) NextReady() int {
	best := 0
	for _, a := range m.pending {
		if a.Frozen {
			continue
		}
		r := a.Remaining()
		if r < 1 {
			r = 1
		}
		if best == 0 || r < best {
			best = r
		}
	}
	return best
}

func (m *Manager) remove(a *Action) bool {
	for i, p := range m.pending {
		if p == a {
			m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}
