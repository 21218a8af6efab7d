// Package game wires the simulation core together and drives it: one
// goroutine owns the world and advances it step by step until the player
// needs to decide.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/action"
	"github.com/l1jgo/encounter/internal/ai"
	"github.com/l1jgo/encounter/internal/combat"
	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/gamelog"
	"github.com/l1jgo/encounter/internal/persist"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/l1jgo/encounter/internal/system"
	"github.com/l1jgo/encounter/internal/world"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Outcome is why AdvanceUntilInput returned.
type Outcome int

const (
	// OutcomeInput: the player is idle and must be given an action.
	OutcomeInput Outcome = iota
	// OutcomeDefeat: the player died.
	OutcomeDefeat
	// OutcomeVictory: nothing hostile to the player is left alive.
	OutcomeVictory
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInput:
		return "input"
	case OutcomeDefeat:
		return "defeat"
	case OutcomeVictory:
		return "victory"
	}
	return "unknown"
}

// ErrStalled is returned when the clock ran the configured maximum number of
// ticks without the player becoming idle.
var ErrStalled = errors.New("game: no player input point reached")

// messageBacklog bounds the in-memory narration kept for readers.
const messageBacklog = 500

// Simulation owns one encounter. Every method except Busy, WaitingForInput,
// TickDone and ID must be called from the simulation goroutine, or while
// Busy reports false.
type Simulation struct {
	ID  ulid.ULID
	cfg config.Config
	log *zap.Logger

	bus      *event.Bus
	st       *world.State
	clock    *sched.Clock
	rng      *rand.Rand
	hub      *gamelog.Hub
	messages *gamelog.Buffer
	narr     *gamelog.Narrator

	res      *combat.Resolver
	reaper   *combat.Reaper
	abil     *ability.System
	actions  *action.Set
	director *ai.Director
	spawner  *Spawner

	runner *coresys.Runner
	turns  *system.TurnSystem
	reap   *system.ReapSystem

	loc         *world.Location
	player      ecs.EntityID
	playerTurns int
	journal     *persist.Journal

	busy     atomic.Bool
	waiting  atomic.Bool
	tickDone chan int64
}

// New builds a simulation over the catalog's arena. scripts may be nil;
// extra sinks receive every narrated message.
func New(cfg config.Config, cat *data.Catalog, scripts *scripting.Engine, log *zap.Logger, sinks ...gamelog.Sink) (*Simulation, error) {
	s := &Simulation{
		ID:       ulid.Make(),
		cfg:      cfg,
		bus:      event.NewBus(),
		clock:    sched.NewClock(),
		rng:      rand.New(rand.NewSource(cfg.Simulation.Seed)),
		hub:      &gamelog.Hub{},
		messages: gamelog.NewBuffer(messageBacklog),
		tickDone: make(chan int64, 1),
	}
	s.log = log.Named("game").With(zap.String("run", s.ID.String()))
	s.st = world.NewState(s.bus)

	s.hub.Add(s.messages)
	for _, sink := range sinks {
		s.hub.Add(sink)
	}
	tag, err := language.Parse(cfg.Simulation.Language)
	if err != nil {
		tag = language.English
	}
	s.narr = gamelog.NewNarrator(s.hub, tag)

	s.res = combat.NewResolver(s.st, s.rng, s.narr, log)
	if cfg.Costs.Step > 0 {
		s.res.StepTicks = cfg.Costs.Step
	}
	s.abil = ability.NewSystem(s.st, s.clock, s.res, s.rng, s.narr, log, cat.Abilities)
	s.actions = action.NewSet(s.st, s.res, s.abil, s.narr, log, cfg.Costs)
	s.director = ai.NewDirector(s.st, s.actions, s.abil, scripts, log)
	if cfg.Simulation.LostTargetTurns > 0 {
		s.director.LostTargetTurns = cfg.Simulation.LostTargetTurns
	}
	s.spawner = NewSpawner(s.st, cat, s.abil, s.director, s.rng, log)
	s.reaper = combat.NewReaper(s.st, s.narr, log, s.spawner.Loot)

	s.loc, s.player, err = s.spawner.Arena(cat.Arena)
	if err != nil {
		return nil, fmt.Errorf("build arena: %w", err)
	}
	s.loc.Activate(s.clock)

	s.runner = coresys.NewRunner()
	s.turns = system.NewTurnSystem(s.st, s.director, log)
	s.reap = system.NewReapSystem(s.st, s.reaper)
	s.runner.Register(s.turns)
	s.runner.Register(system.NewTimeSystem(s.clock))
	s.runner.Register(system.NewPerceptionSystem(s.st))
	s.runner.Register(system.NewRegenSystem(s.st))
	s.runner.Register(s.reap)

	s.log.Info("simulation ready",
		zap.String("arena", s.loc.Name),
		zap.Int64("seed", cfg.Simulation.Seed),
		zap.Int("actors", len(s.loc.Actors())),
	)
	return s, nil
}

// EnableJournal records messages and location events of this run to w.
// The caller runs the returned journal's Run on its own goroutine.
func (s *Simulation) EnableJournal(w persist.BatchWriter, queueSize, batchSize int) *persist.Journal {
	j := persist.NewJournal(s.ID.String(), w, s.clock.Now, queueSize, batchSize, s.log)
	j.Attach(s.bus)
	s.hub.Add(j)
	s.runner.Register(system.NewJournalSystem(j, 1))
	s.journal = j
	return j
}

// ==================== 邊界 ====================

// Perform queues fn as actor's next action. Returns false when the actor is
// already mid-action.
func (s *Simulation) Perform(actor ecs.EntityID, fn sched.Func) bool {
	if !world.Perform(s.st, actor, fn) {
		return false
	}
	if actor == s.player {
		s.playerTurns++
		s.waiting.Store(false)
	}
	return true
}

// AutoTurn lets the AI choose the player's next action.
func (s *Simulation) AutoTurn() bool {
	if !s.director.TakeTurn(s.player) {
		return false
	}
	s.playerTurns++
	s.waiting.Store(false)
	return true
}

// PassTime advances the clock by ticks and runs end-of-step processing,
// without handing out turns.
func (s *Simulation) PassTime(ticks int) {
	s.busy.Store(true)
	defer s.busy.Store(false)
	s.advance(ticks)
}

// AdvanceUntilInput steps the simulation until the player is idle, the
// encounter is decided, or ctx is done. Each step hands idle actors their
// turn, then jumps the clock to the next ready action.
func (s *Simulation) AdvanceUntilInput(ctx context.Context) (Outcome, error) {
	s.busy.Store(true)
	defer s.busy.Store(false)

	start := s.clock.Now()
	for {
		if o, done := s.outcome(); done {
			s.log.Info("encounter decided",
				zap.Stringer("outcome", o),
				zap.Int64("tick", s.clock.Now()),
				zap.Int("player_turns", s.playerTurns),
			)
			return o, nil
		}
		if err := ctx.Err(); err != nil {
			return OutcomeInput, err
		}
		s.runner.TickPhase(coresys.PhaseInput, 0)
		if s.turns.Waiting() {
			s.waiting.Store(true)
			return OutcomeInput, nil
		}
		if limit := s.cfg.Simulation.MaxTicksPerInput; limit > 0 && s.clock.Now()-start >= int64(limit) {
			return OutcomeInput, fmt.Errorf("%w after %d ticks", ErrStalled, s.clock.Now()-start)
		}
		n := s.clock.NextReady()
		if n < 1 {
			n = 1
		}
		s.advance(n)
	}
}

func (s *Simulation) advance(ticks int) {
	for ph := coresys.PhasePreUpdate; ph <= coresys.PhaseCleanup; ph++ {
		s.runner.TickPhase(ph, ticks)
	}
	select {
	case <-s.tickDone:
	default:
	}
	select {
	case s.tickDone <- s.clock.Now():
	default:
	}
}

func (s *Simulation) outcome() (Outcome, bool) {
	if !s.st.Alive(s.player) {
		return OutcomeDefeat, true
	}
	if c := s.st.Combat.Get(s.player); c != nil && c.Dead {
		return OutcomeDefeat, true
	}
	for _, id := range s.loc.Actors() {
		if id == s.player || !s.st.Hostile(s.player, id) {
			continue
		}
		if c := s.st.Combat.Get(id); c != nil && !c.Dead {
			return OutcomeInput, false
		}
	}
	return OutcomeVictory, true
}

// ==================== 觀察 ====================

// Busy reports whether a step is in progress. Safe from any goroutine.
func (s *Simulation) Busy() bool { return s.busy.Load() }

// WaitingForInput reports whether the player is idle and the simulation
// stopped for it. Safe from any goroutine.
func (s *Simulation) WaitingForInput() bool { return s.waiting.Load() }

// TickDone delivers the clock after each step; only the latest value is
// kept. Safe from any goroutine.
func (s *Simulation) TickDone() <-chan int64 { return s.tickDone }

// Player returns the player entity.
func (s *Simulation) Player() ecs.EntityID { return s.player }

// PlayerTurns returns how many actions the player has queued.
func (s *Simulation) PlayerTurns() int { return s.playerTurns }

// State returns the world for reading.
func (s *Simulation) State() *world.State { return s.st }

// Location returns the arena.
func (s *Simulation) Location() *world.Location { return s.loc }

// Now returns the current tick.
func (s *Simulation) Now() int64 { return s.clock.Now() }

// Actions returns the action set used to build functions for Perform.
func (s *Simulation) Actions() *action.Set { return s.actions }

// Abilities returns the ability system.
func (s *Simulation) Abilities() *ability.System { return s.abil }

// Messages returns the recent narration.
func (s *Simulation) Messages() *gamelog.Buffer { return s.messages }

// Reaped returns how many creatures have died so far.
func (s *Simulation) Reaped() int { return s.reap.Reaped() }

// Close detaches the journal, if any, and flushes its last entries.
func (s *Simulation) Close() {
	if s.journal != nil {
		s.journal.Detach(s.bus)
		s.journal.Close()
	}
}
