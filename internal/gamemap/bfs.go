package gamemap

// BFS walks outward from start with a FIFO queue and returns the accepted tiles in
// discovery order. The filter runs at most once per tile, start first, and then in the
// order tiles are discovered through Neighbors. Random filters therefore draw their
// numbers in a fixed sequence.
func (m *Map) BFS(start TileRef, filter Filter) []TileRef {
	visited := make(map[TileRef]struct{})
	visited[start] = struct{}{}
	if !filter(m, start) {
		return nil
	}
	result := []TileRef{start}
	queue := []TileRef{start}
	for head := 0; head < len(queue); head++ {
		for _, n := range m.Neighbors(queue[head]) {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			if !filter(m, n) {
				continue
			}
			result = append(result, n)
			queue = append(queue, n)
		}
	}
	return result
}

// DistanceFilter accepts tiles within radius (Euclidean) of center.
func DistanceFilter(center TileRef, radius int) Filter {
	r2 := radius * radius
	return func(gm GameMap, ref TileRef) bool {
		return gm.EuclideanDistSquared(center, ref) <= r2
	}
}
