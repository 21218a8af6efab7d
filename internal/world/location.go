package world

import (
	"fmt"

	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/sched"
	"github.com/zyedidia/generic/mapset"
)

const (
	// Impassable marks a cell no path may cross.
	Impassable = -1
	// OccupiedCost is the extra path cost of a cell holding an occupant.
	OccupiedCost = 8
)

// Terrain is the static description of a cell's floor.
type Terrain struct {
	Name        string
	Glyph       rune
	Color       string
	BlocksMove  bool
	BlocksSight bool
	ShotBlock   int // percent
	Cost        int // pass-cost multiplier, 0 means 1
}

// Cell is one grid square: terrain plus the entities on it in arrival order.
type Cell struct {
	Terrain  *Terrain
	Entities []ecs.EntityID
}

// Location is a fixed-size grid plus the live indexes the simulation needs.
type Location struct {
	Name          string
	Width, Height int
	// Manager schedules every action of actors placed here.
	Manager *sched.Manager

	st     *State
	cells  []Cell
	costs  []int
	actors []ecs.EntityID
	seers  mapset.Set[ecs.EntityID]
	dead   []ecs.EntityID
	clock  *sched.Clock
}

// NewLocation creates a w×h location filled with fill and builds its cost map.
func NewLocation(st *State, name string, w, h int, fill *Terrain) *Location {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("world: location %q has invalid size %dx%d", name, w, h))
	}
	l := &Location{
		Name:   name,
		Width:  w,
		Height: h,
		st:     st,
		cells:  make([]Cell, w*h),
		costs:  make([]int, w*h),
		seers:  mapset.New[ecs.EntityID](),
	}
	for i := range l.cells {
		l.cells[i].Terrain = fill
	}
	l.Manager = sched.NewManager(func(n int) {
		st.Bus.Publish(event.Time, event.TicksPassed, event.Payload{Ticks: n})
	})
	l.RebuildCosts()
	st.locations = append(st.locations, l)
	return l
}

func (l *Location) idx(x, y int) int { return y*l.Width + x }

// InBounds reports whether (x, y) lies on the grid.
func (l *Location) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width && y < l.Height
}

// Cell returns the cell at (x, y), or nil outside the grid.
func (l *Location) Cell(x, y int) *Cell {
	if !l.InBounds(x, y) {
		return nil
	}
	return &l.cells[l.idx(x, y)]
}

// SetTerrain replaces the terrain of one cell.
func (l *Location) SetTerrain(x, y int, t *Terrain) {
	c := l.mustCell("SetTerrain", x, y)
	sight := c.Terrain != nil && c.Terrain.BlocksSight
	c.Terrain = t
	l.UpdateCell(x, y)
	if sight || (t != nil && t.BlocksSight) {
		l.InvalidateSeers()
	}
}

// Activate registers the location's scheduler with clock.
func (l *Location) Activate(clock *sched.Clock) {
	l.clock = clock
	clock.Register(l.Manager)
}

// Deactivate stops clock from advancing this location.
func (l *Location) Deactivate() {
	if l.clock != nil {
		l.clock.Unregister(l.Manager)
		l.clock = nil
	}
}

// Active reports whether the location is registered with a clock.
func (l *Location) Active() bool { return l.clock != nil }

// Place puts id on (x, y). Placing outside the grid or placing an entity
// that is already positioned is a caller bug.
func (l *Location) Place(id ecs.EntityID, x, y int) {
	if !l.InBounds(x, y) {
		panic(fmt.Sprintf("world: place %s at (%d,%d) outside %q (%dx%d)", l.st.Name(id), x, y, l.Name, l.Width, l.Height))
	}
	if l.st.Positions.Has(id) {
		panic(fmt.Sprintf("world: place %s: already positioned", l.st.Name(id)))
	}
	l.st.Positions.Set(id, &Position{Loc: l, X: x, Y: y})
	c := &l.cells[l.idx(x, y)]
	c.Entities = append(c.Entities, id)

	if a := l.st.Actors.Get(id); a != nil {
		l.insertActor(id, a.Player)
	}
	if p := l.st.Perceptions.Get(id); p != nil {
		l.seers.Put(id)
		p.Invalidate()
	}
	l.UpdateCell(x, y)
	if e := l.st.Entities.Get(id); e != nil && e.BlocksSight {
		l.InvalidateSeers()
	}
	l.st.publish(id, event.EntityMoved, event.Payload{Entity: id, X: x, Y: y})
}

// Relocate moves id, which must already be in this location, to (x, y).
func (l *Location) Relocate(id ecs.EntityID, x, y int) {
	pos := l.st.Positions.Get(id)
	if pos == nil || pos.Loc != l {
		panic(fmt.Sprintf("world: relocate %s: not in location %q", l.st.Name(id), l.Name))
	}
	if !l.InBounds(x, y) {
		panic(fmt.Sprintf("world: relocate %s to (%d,%d) outside %q (%dx%d)", l.st.Name(id), x, y, l.Name, l.Width, l.Height))
	}
	ox, oy := pos.X, pos.Y
	old := &l.cells[l.idx(ox, oy)]
	old.Entities = removeID(old.Entities, id)
	c := &l.cells[l.idx(x, y)]
	c.Entities = append(c.Entities, id)
	pos.X, pos.Y = x, y

	l.UpdateCell(ox, oy)
	l.UpdateCell(x, y)
	if p := l.st.Perceptions.Get(id); p != nil {
		p.Invalidate()
	}
	if e := l.st.Entities.Get(id); e != nil && e.BlocksSight {
		l.InvalidateSeers()
	}
	l.st.publish(id, event.EntityMoved, event.Payload{Entity: id, X: x, Y: y})
}

// Remove takes id off the grid and cancels its pending actions. Returns
// false when id is not in this location.
func (l *Location) Remove(id ecs.EntityID) bool {
	pos := l.st.Positions.Get(id)
	if pos == nil || pos.Loc != l {
		return false
	}
	l.Manager.CancelActor(id)
	if a := l.st.Actors.Get(id); a != nil {
		a.Action = nil
	}
	c := &l.cells[l.idx(pos.X, pos.Y)]
	c.Entities = removeID(c.Entities, id)
	l.actors = removeID(l.actors, id)
	l.seers.Remove(id)
	x, y := pos.X, pos.Y
	l.st.Positions.Remove(id)

	l.UpdateCell(x, y)
	if e := l.st.Entities.Get(id); e != nil && e.BlocksSight {
		l.InvalidateSeers()
	}
	return true
}

// EntitiesAt returns the entities on (x, y) in arrival order.
func (l *Location) EntitiesAt(x, y int) []ecs.EntityID {
	c := l.Cell(x, y)
	if c == nil {
		return nil
	}
	out := make([]ecs.EntityID, len(c.Entities))
	copy(out, c.Entities)
	return out
}

// Occupant returns the first occupying entity on (x, y), or zero.
func (l *Location) Occupant(x, y int) ecs.EntityID {
	c := l.Cell(x, y)
	if c == nil {
		return 0
	}
	for _, id := range c.Entities {
		if e := l.st.Entities.Get(id); e != nil && e.Occupies {
			return id
		}
	}
	return 0
}

// CanEnter reports whether a mover could step onto (x, y) now.
func (l *Location) CanEnter(x, y int) bool {
	if !l.InBounds(x, y) {
		return false
	}
	return l.costs[l.idx(x, y)] != Impassable && l.Occupant(x, y).IsZero()
}

// Cost returns the cached movement cost of (x, y); Impassable outside the
// grid or on blocked cells.
func (l *Location) Cost(x, y int) int {
	if !l.InBounds(x, y) {
		return Impassable
	}
	return l.costs[l.idx(x, y)]
}

// UpdateCell recomputes the cost of one cell from its terrain and entities.
// Call after any change to occupancy or blocking flags on the cell.
func (l *Location) UpdateCell(x, y int) {
	l.costs[l.idx(x, y)] = l.cellCost(x, y)
}

// RebuildCosts recomputes the whole cost map. Used at load time only.
func (l *Location) RebuildCosts() {
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			l.costs[l.idx(x, y)] = l.cellCost(x, y)
		}
	}
}

func (l *Location) cellCost(x, y int) int {
	c := &l.cells[l.idx(x, y)]
	cost := 1
	if c.Terrain != nil {
		if c.Terrain.BlocksMove {
			return Impassable
		}
		if c.Terrain.Cost > 0 {
			cost = c.Terrain.Cost
		}
	}
	for _, id := range c.Entities {
		e := l.st.Entities.Get(id)
		if e == nil {
			continue
		}
		if e.BlocksMove {
			return Impassable
		}
		if e.Occupies {
			cost += OccupiedCost
		}
	}
	return cost
}

// BlocksSight reports whether (x, y) stops line of sight. Cells outside the
// grid block.
func (l *Location) BlocksSight(x, y int) bool {
	c := l.Cell(x, y)
	if c == nil {
		return true
	}
	if c.Terrain != nil && c.Terrain.BlocksSight {
		return true
	}
	for _, id := range c.Entities {
		if e := l.st.Entities.Get(id); e != nil && e.BlocksSight {
			return true
		}
	}
	return false
}

// ShotBlock returns the percent chance that a projectile stops on (x, y).
func (l *Location) ShotBlock(x, y int) int {
	c := l.Cell(x, y)
	if c == nil {
		return 100
	}
	best := 0
	if c.Terrain != nil {
		if c.Terrain.BlocksMove {
			return 100
		}
		best = c.Terrain.ShotBlock
	}
	for _, id := range c.Entities {
		if e := l.st.Entities.Get(id); e != nil && e.ShotBlock > best {
			best = e.ShotBlock
		}
	}
	return best
}

// Actors returns the actors in turn order: players first, then everyone
// else in arrival order.
func (l *Location) Actors() []ecs.EntityID {
	out := make([]ecs.EntityID, len(l.actors))
	copy(out, l.actors)
	return out
}

// Seers returns the number of entities with perception in the location.
func (l *Location) Seers() int { return l.seers.Size() }

// InvalidateSeers marks every perception in the location for recompute.
func (l *Location) InvalidateSeers() {
	l.seers.Each(func(id ecs.EntityID) {
		if p := l.st.Perceptions.Get(id); p != nil {
			p.Invalidate()
		}
	})
}

// MarkDead queues id for the end-of-tick reap.
func (l *Location) MarkDead(id ecs.EntityID) {
	l.dead = append(l.dead, id)
}

// TakeDead returns and clears the reap list.
func (l *Location) TakeDead() []ecs.EntityID {
	out := l.dead
	l.dead = nil
	return out
}

// PendingDead returns the number of entities waiting to be reaped.
func (l *Location) PendingDead() int { return len(l.dead) }

func (l *Location) insertActor(id ecs.EntityID, player bool) {
	if !player {
		l.actors = append(l.actors, id)
		return
	}
	i := 0
	for i < len(l.actors) {
		if a := l.st.Actors.Get(l.actors[i]); a == nil || !a.Player {
			break
		}
		i++
	}
	l.actors = append(l.actors, 0)
	copy(l.actors[i+1:], l.actors[i:])
	l.actors[i] = id
}

func (l *Location) mustCell(op string, x, y int) *Cell {
	if !l.InBounds(x, y) {
		panic(fmt.Sprintf("world: %s (%d,%d) outside %q (%dx%d)", op, x, y, l.Name, l.Width, l.Height))
	}
	return &l.cells[l.idx(x, y)]
}

func removeID(list []ecs.EntityID, id ecs.EntityID) []ecs.EntityID {
	for i, x := range list {
		if x == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
