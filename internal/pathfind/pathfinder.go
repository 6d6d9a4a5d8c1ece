// Package pathfind provides the resumable water/land pathfinder and the ballistic
// trajectory used by nukes.
package pathfind

import (
	"fmt"

	"openfront/engine/internal/gamemap"
)

// Result classifies one NextTile call.
type Result int

const (
	Completed Result = iota
	NextTile
	Pending
	PathNotFound
)

func (r Result) String() string {
	switch r {
	case Completed:
		return "completed"
	case NextTile:
		return "next_tile"
	case Pending:
		return "pending"
	case PathNotFound:
		return "path_not_found"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Step is the outcome of NextTile. Tile is set only for NextTile.
type Step struct {
	Result Result
	Tile   gamemap.TileRef
}

const (
	defaultMaxTries = 20
)

// PathFinder steps a unit one tile at a time toward a destination that may move.
// Search work is spread across calls so no tick ever runs an unbounded search.
type PathFinder struct {
	gm            gamemap.GameMap
	iterations    int
	canMoveOnLand bool
	maxTries      int

	search *AStar
	dst    gamemap.TileRef
	at     gamemap.TileRef
	path   []gamemap.TileRef
}

// New returns a water pathfinder unless canMoveOnLand is set. maxTries <= 0 uses the default.
func New(gm gamemap.GameMap, iterations int, canMoveOnLand bool, maxTries int) *PathFinder {
	if maxTries <= 0 {
		maxTries = defaultMaxTries
	}
	return &PathFinder{
		gm:            gm,
		iterations:    iterations,
		canMoveOnLand: canMoveOnLand,
		maxTries:      maxTries,
		dst:           gamemap.NoTile,
		at:            gamemap.NoTile,
	}
}

// Mini is the water-only pathfinder used by ships.
func Mini(gm gamemap.GameMap, iterations int) *PathFinder {
	return New(gm, iterations, false, 0)
}

// NextTile advances toward dst. Completed is returned once curr lies within dist
// (Manhattan, exclusive) of dst.
func (p *PathFinder) NextTile(curr, dst gamemap.TileRef, dist int) Step {
	if dist < 1 {
		dist = 1
	}
	if p.gm.ManhattanDist(curr, dst) < dist {
		return Step{Result: Completed, Tile: curr}
	}
	if p.search == nil || p.dst != dst || curr != p.at && p.search.state == SearchCompleted {
		//1.- Restart the search when the target moved or the unit left the cached route.
		p.restart(curr, dst)
	}
	if p.search.state == SearchPending {
		switch p.search.Compute() {
		case SearchPending:
			return Step{Result: Pending}
		case SearchFailed:
			return Step{Result: PathNotFound}
		case SearchCompleted:
			p.path = p.search.Path()
			if len(p.path) > 0 {
				p.path = p.path[1:]
			}
		}
	}
	if p.search.state == SearchFailed {
		return Step{Result: PathNotFound}
	}
	if len(p.path) == 0 {
		p.restart(curr, dst)
		return Step{Result: Pending}
	}
	next := p.path[0]
	p.path = p.path[1:]
	p.at = next
	return Step{Result: NextTile, Tile: next}
}

func (p *PathFinder) restart(curr, dst gamemap.TileRef) {
	p.search = NewAStar(p.gm, curr, dst, p.iterations, p.maxTries, p.canMoveOnLand)
	p.dst = dst
	p.at = curr
	p.path = nil
}
