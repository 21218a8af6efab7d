// Package ai decides what non-player creatures (and an autopiloted player)
// do on their turn.
package ai

import (
	"context"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/world"
	"github.com/looplab/fsm"
)

const (
	StateIdle  = "idle"
	StateAlert = "alert"

	eventSpot = "spot"
	eventLose = "lose"
)

// DefaultLostTargetTurns is how many turns an alert creature hunts a target
// it cannot see before giving up.
const DefaultLostTargetTurns = 3

// Brain is the decision state of one creature.
type Brain struct {
	// Script names the Lua brain_<Script> function; empty uses the
	// built-in decision only.
	Script string

	Target      ecs.EntityID
	LastSeen    world.Point
	HasLastSeen bool

	lostTurns int
	turns     int
	fsm       *fsm.FSM
}

func newBrain(script string) *Brain {
	b := &Brain{Script: script}
	b.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventSpot, Src: []string{StateIdle}, Dst: StateAlert},
			{Name: eventLose, Src: []string{StateAlert}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_" + StateIdle: func(_ context.Context, _ *fsm.Event) {
				b.Target = 0
				b.HasLastSeen = false
				b.lostTurns = 0
			},
			"enter_" + StateAlert: func(_ context.Context, _ *fsm.Event) {
				b.lostTurns = 0
			},
		},
	)
	return b
}

// State returns "idle" or "alert".
func (b *Brain) State() string { return b.fsm.Current() }

// Alert reports whether the creature is hunting a target.
func (b *Brain) Alert() bool { return b.fsm.Is(StateAlert) }

// Turns returns how many turns the brain has taken.
func (b *Brain) Turns() int { return b.turns }

// LostTurns returns the turns spent without sight of the target.
func (b *Brain) LostTurns() int { return b.lostTurns }

// spot switches to alert on target. Already alert brains keep their state
// and just retarget.
func (b *Brain) spot(target ecs.EntityID, at world.Point) {
	if b.fsm.Can(eventSpot) {
		_ = b.fsm.Event(context.Background(), eventSpot)
	}
	b.Target = target
	b.see(at)
}

func (b *Brain) see(at world.Point) {
	b.LastSeen = at
	b.HasLastSeen = true
	b.lostTurns = 0
}

func (b *Brain) lose() {
	if b.fsm.Can(eventLose) {
		_ = b.fsm.Event(context.Background(), eventLose)
	}
}
