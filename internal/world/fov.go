package world

import (
	"github.com/l1jgo/encounter/internal/core/ecs"
	"github.com/zyedidia/generic/mapset"
)

// Octant transforms for recursive shadowcasting.
var multipliers = [4][8]int{
	{1, 0, 0, -1, -1, 0, 0, 1},
	{0, 1, -1, 0, 0, -1, 1, 0},
	{0, 1, 1, 0, 0, -1, -1, 0},
	{1, 0, 0, 1, -1, 0, 0, -1},
}

// FOV returns the cells visible from origin within radius.
func (l *Location) FOV(origin Point, radius int) mapset.Set[Point] {
	visible := mapset.New[Point]()
	if !l.InBounds(origin.X, origin.Y) {
		return visible
	}
	visible.Put(origin)
	if radius <= 0 {
		return visible
	}
	for i := 0; i < 8; i++ {
		l.castLight(origin.X, origin.Y, 1, 1.0, 0.0, radius,
			multipliers[0][i], multipliers[1][i],
			multipliers[2][i], multipliers[3][i], visible)
	}
	return visible
}

func (l *Location) castLight(cx, cy, row int, start, end float64, radius, xx, xy, yx, yy int, visible mapset.Set[Point]) {
	if start < end {
		return
	}
	radiusSq := radius * radius
	for j := row; j <= radius; j++ {
		dx, dy := -j-1, -j
		blocked := false
		newStart := start
		for {
			dx++
			if dx > 0 {
				break
			}
			lSlope := (float64(dx) - 0.5) / (float64(dy) + 0.5)
			rSlope := (float64(dx) + 0.5) / (float64(dy) - 0.5)
			if start < rSlope {
				continue
			}
			if end > lSlope {
				break
			}

			x := cx + dx*xx + dy*xy
			y := cy + dx*yx + dy*yy
			if l.InBounds(x, y) && dx*dx+dy*dy <= radiusSq {
				visible.Put(Point{x, y})
			}

			if blocked {
				if l.BlocksSight(x, y) {
					newStart = rSlope
					continue
				}
				blocked = false
				start = newStart
			} else if l.BlocksSight(x, y) && j < radius {
				blocked = true
				l.castLight(cx, cy, j+1, start, lSlope, radius, xx, xy, yx, yy, visible)
				newStart = rSlope
			}
		}
		if blocked {
			break
		}
	}
}

// Refresh recomputes the visible set of seer id if it is dirty.
func (l *Location) Refresh(id ecs.EntityID) {
	p := l.st.Perceptions.Get(id)
	pos := l.st.Positions.Get(id)
	if p == nil || pos == nil || pos.Loc != l || !p.dirty {
		return
	}
	p.Visible = l.FOV(pos.Point(), p.Radius)
	p.dirty = false
}

// Sees reports whether seer id currently sees cell pt. The visible set is
// refreshed first when stale.
func (l *Location) Sees(id ecs.EntityID, pt Point) bool {
	p := l.st.Perceptions.Get(id)
	if p == nil {
		return false
	}
	l.Refresh(id)
	return p.Visible.Has(pt)
}

// CanSeeEntity reports whether seer sees the cell target stands on.
func (l *Location) CanSeeEntity(seer, target ecs.EntityID) bool {
	tp := l.st.Positions.Get(target)
	if tp == nil || tp.Loc != l {
		return false
	}
	return l.Sees(seer, tp.Point())
}
