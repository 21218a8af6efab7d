package world

import "container/heap"

type pathNode struct {
	pt    Point
	f, h  int
	seq   int
	index int
}

// pathQueue is a min-heap on (f, h, seq) so ties resolve the same way on
// every run.
type pathQueue []*pathNode

func (q pathQueue) Len() int { return len(q) }

func (q pathQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].h != q[j].h {
		return q[i].h < q[j].h
	}
	return q[i].seq < q[j].seq
}

func (q pathQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *pathQueue) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Path finds a cheapest 8-way route from `from` to `to` over the cached cost
// map. The result excludes the start and ends at `to`; it is empty when no
// route exists. The goal cell is treated as enterable even when occupied.
func (l *Location) Path(from, to Point) []Point {
	if from == to || !l.InBounds(from.X, from.Y) || !l.InBounds(to.X, to.Y) {
		return nil
	}
	size := l.Width * l.Height
	gScore := make([]int, size)
	cameFrom := make([]int, size)
	closed := make([]bool, size)
	for i := range gScore {
		gScore[i] = -1
		cameFrom[i] = -1
	}

	start := l.idx(from.X, from.Y)
	goal := l.idx(to.X, to.Y)
	gScore[start] = 0

	seq := 0
	open := &pathQueue{}
	h0 := Chebyshev(from, to)
	heap.Push(open, &pathNode{pt: from, f: h0, h: h0})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		ci := l.idx(cur.pt.X, cur.pt.Y)
		if closed[ci] {
			continue
		}
		if ci == goal {
			return l.walkBack(cameFrom, start, goal)
		}
		closed[ci] = true

		for d := 0; d < 8; d++ {
			nx, ny := cur.pt.X+headingDX[d], cur.pt.Y+headingDY[d]
			if !l.InBounds(nx, ny) {
				continue
			}
			ni := l.idx(nx, ny)
			if closed[ni] {
				continue
			}
			step := l.costs[ni]
			if ni == goal {
				step = 1
			} else if step == Impassable {
				continue
			}
			g := gScore[ci] + step
			if gScore[ni] >= 0 && g >= gScore[ni] {
				continue
			}
			gScore[ni] = g
			cameFrom[ni] = ci
			np := Point{nx, ny}
			h := Chebyshev(np, to)
			seq++
			heap.Push(open, &pathNode{pt: np, f: g + h, h: h, seq: seq})
		}
	}
	return nil
}

func (l *Location) walkBack(cameFrom []int, start, goal int) []Point {
	var rev []Point
	for i := goal; i != start; i = cameFrom[i] {
		rev = append(rev, Point{i % l.Width, i / l.Width})
	}
	out := make([]Point, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}
