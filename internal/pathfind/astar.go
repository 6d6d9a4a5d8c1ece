package pathfind

import (
	"container/heap"

	"openfront/engine/internal/gamemap"
)

// SearchState reports the progress of a budgeted search.
type SearchState int

const (
	SearchPending SearchState = iota
	SearchCompleted
	SearchFailed
)

type searchNode struct {
	tile   gamemap.TileRef
	g      int
	f      int
	seq    int
	index  int
	parent *searchNode
}

type searchQueue []*searchNode

func (q searchQueue) Len() int { return len(q) }

// Less orders by f, then g (deeper first), then insertion sequence.
func (q searchQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g > q[j].g
	}
	return q[i].seq < q[j].seq
}

func (q searchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *searchQueue) Push(x any) {
	item := x.(*searchNode)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// AStar is a grid search that can be advanced a bounded number of expansions at a time.
type AStar struct {
	gm            gamemap.GameMap
	src, dst      gamemap.TileRef
	canMoveOnLand bool
	iterations    int
	maxTries      int

	tries  int
	seq    int
	open   *searchQueue
	gScore map[gamemap.TileRef]int
	closed map[gamemap.TileRef]struct{}
	found  *searchNode
	state  SearchState
}

// NewAStar prepares a search from src to dst. Each Compute call expands at most
// iterations nodes; the search fails after maxTries calls without a result.
func NewAStar(gm gamemap.GameMap, src, dst gamemap.TileRef, iterations, maxTries int, canMoveOnLand bool) *AStar {
	a := &AStar{
		gm:            gm,
		src:           src,
		dst:           dst,
		canMoveOnLand: canMoveOnLand,
		iterations:    iterations,
		maxTries:      maxTries,
		open:          &searchQueue{},
		gScore:        map[gamemap.TileRef]int{src: 0},
		closed:        make(map[gamemap.TileRef]struct{}),
	}
	heap.Init(a.open)
	heap.Push(a.open, &searchNode{tile: src, f: gm.ManhattanDist(src, dst)})
	return a
}

func (a *AStar) traversable(tile gamemap.TileRef) bool {
	if tile == a.dst || tile == a.src {
		return true
	}
	return a.canMoveOnLand || a.gm.IsWater(tile)
}

// Compute advances the search.
func (a *AStar) Compute() SearchState {
	if a.state != SearchPending {
		return a.state
	}
	a.tries++
	for budget := a.iterations; budget > 0; budget-- {
		if a.open.Len() == 0 {
			a.state = SearchFailed
			return a.state
		}
		current := heap.Pop(a.open).(*searchNode)
		if _, seen := a.closed[current.tile]; seen {
			continue
		}
		a.closed[current.tile] = struct{}{}
		if current.tile == a.dst {
			a.found = current
			a.state = SearchCompleted
			return a.state
		}
		for _, n := range a.gm.Neighbors(current.tile) {
			if !a.traversable(n) {
				continue
			}
			if _, seen := a.closed[n]; seen {
				continue
			}
			tentative := current.g + 1
			if prev, ok := a.gScore[n]; ok && tentative >= prev {
				continue
			}
			a.gScore[n] = tentative
			a.seq++
			heap.Push(a.open, &searchNode{
				tile:   n,
				g:      tentative,
				f:      tentative + a.gm.ManhattanDist(n, a.dst),
				seq:    a.seq,
				parent: current,
			})
		}
	}
	if a.maxTries > 0 && a.tries >= a.maxTries {
		a.state = SearchFailed
	}
	return a.state
}

// Path returns the tiles from src to dst inclusive once the search completed.
func (a *AStar) Path() []gamemap.TileRef {
	if a.found == nil {
		return nil
	}
	var path []gamemap.TileRef
	for node := a.found; node != nil; node = node.parent {
		path = append(path, node.tile)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
