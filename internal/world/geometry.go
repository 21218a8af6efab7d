package world

// Eight neighbour offsets, clockwise from north.
var (
	headingDX = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
	headingDY = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
)

// Heading returns the offset of direction dir (0-7, clockwise from north).
func Heading(dir int) (dx, dy int) {
	dir &= 7
	return headingDX[dir], headingDY[dir]
}

// Chebyshev returns the king-move distance between a and b.
func Chebyshev(a, b Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dy > dx {
		return dy
	}
	return dx
}

// Adjacent reports whether a and b are distinct neighbouring cells.
func Adjacent(a, b Point) bool { return a != b && Chebyshev(a, b) == 1 }

// StepToward returns the unit step from a toward b.
func StepToward(a, b Point) (int, int) {
	return sign(b.X - a.X), sign(b.Y - a.Y)
}

// Line returns the Bresenham cells from a to b, excluding a and including b.
func Line(a, b Point) []Point {
	return bresenham(a, b, Chebyshev(a, b))
}

// Ray follows the line from a through b and keeps going until it holds
// max cells.
func Ray(a, b Point, max int) []Point {
	if a == b || max <= 0 {
		return nil
	}
	return bresenham(a, b, max)
}

func bresenham(a, b Point, n int) []Point {
	if a == b || n <= 0 {
		return nil
	}
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	err := dx + dy
	x, y := a.X, a.Y
	out := make([]Point, 0, n)
	for len(out) < n {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		out = append(out, Point{x, y})
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
