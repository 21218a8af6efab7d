package sched

import "github.com/l1jgo/encounter/internal/core/ecs"

// Mode tells an action function why it is being invoked.
type Mode int

const (
	// ModeRegister is the single call made before the action is queued. The
	// function may set Required from the actor's current speed.
	ModeRegister Mode = iota
	// ModeFire is the single call made when Elapsed reaches Required.
	ModeFire
)

// Lane orders actions that become ready in the same pass. Lower lanes fire
// first; within a lane, registration order decides.
type Lane int

const (
	LanePlayer Lane = iota
	LaneDefault
)

// Func is the body of a scheduled action.
type Func func(a *Action, mode Mode)

type state int

const (
	statePending state = iota
	stateFired
	stateCancelled
)

// Action is a deferred single-fire unit of work bound to an actor.
type Action struct {
	Actor    ecs.EntityID
	Lane     Lane
	Elapsed  int
	Required int
	Fn       Func
	// Frozen actions stay queued but do not accumulate ticks.
	Frozen bool
	// Scratch holds arguments and local state captured at registration.
	Scratch map[string]any

	seq   uint64
	state state
}

// Pending reports whether the action is still queued.
func (a *Action) Pending() bool { return a.state == statePending }

// Fired reports whether the action ran in fire mode.
func (a *Action) Fired() bool { return a.state == stateFired }

// Cancelled reports whether the action was removed without firing.
func (a *Action) Cancelled() bool { return a.state == stateCancelled }

// Remaining returns the ticks left before the action is ready.
func (a *Action) Remaining() int {
	if r := a.Required - a.Elapsed; r > 0 {
		return r
	}
	return 0
}

// Ready reports whether the action would fire on the next pass.
func (a *Action) Ready() bool { return a.Elapsed >= a.Required }
