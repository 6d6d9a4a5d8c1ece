package gamemap

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (m *Map) EuclideanDistSquared(a, b TileRef) int {
	dx := m.X(a) - m.X(b)
	dy := m.Y(a) - m.Y(b)
	return dx*dx + dy*dy
}

func (m *Map) ManhattanDist(a, b TileRef) int {
	return abs(m.X(a)-m.X(b)) + abs(m.Y(a)-m.Y(b))
}

// RectDist is the Chebyshev distance.
func (m *Map) RectDist(a, b TileRef) int {
	dx := abs(m.X(a) - m.X(b))
	dy := abs(m.Y(a) - m.Y(b))
	if dx > dy {
		return dx
	}
	return dy
}

// HexDist treats the grid as odd-row offset hexes.
func (m *Map) HexDist(a, b TileRef) int {
	ax, ay, az := toCube(m.X(a), m.Y(a))
	bx, by, bz := toCube(m.X(b), m.Y(b))
	d := abs(ax - bx)
	if v := abs(ay - by); v > d {
		d = v
	}
	if v := abs(az - bz); v > d {
		d = v
	}
	return d
}

func toCube(col, row int) (int, int, int) {
	x := col - (row-(row&1))/2
	z := row
	return x, -x - z, z
}
