package pathfind

import (
	"math"

	"openfront/engine/internal/gamemap"
)

const (
	// ParabolaMinHeight is the lowest apex used for distance-based arcs.
	ParabolaMinHeight = 50.0
	curveSamples      = 256
)

type point struct{ x, y float64 }

// ParabolaPathFinder precomputes a ballistic arc as one tile per unit of arc length
// and serves it by index.
type ParabolaPathFinder struct {
	gm    gamemap.GameMap
	tiles []gamemap.TileRef
	index int
}

// NewParabola returns an empty trajectory; call ComputeControlPoints before NextTile.
func NewParabola(gm gamemap.GameMap) *ParabolaPathFinder {
	return &ParabolaPathFinder{gm: gm}
}

// ComputeControlPoints lays out a cubic Bezier from src to dst. With distanceBasedHeight
// the apex rises with the horizontal distance, otherwise the arc is flat.
func (p *ParabolaPathFinder) ComputeControlPoints(src, dst gamemap.TileRef, distanceBasedHeight bool) {
	p0 := point{float64(p.gm.X(src)), float64(p.gm.Y(src))}
	p3 := point{float64(p.gm.X(dst)), float64(p.gm.Y(dst))}
	dx := p3.x - p0.x
	dy := p3.y - p0.y
	height := 0.0
	if distanceBasedHeight {
		height = math.Max(math.Hypot(dx, dy)/3, ParabolaMinHeight)
	}
	maxY := float64(p.gm.Height() - 1)
	p1 := point{p0.x + dx/4, clamp(p0.y+dy/4-height, 0, maxY)}
	p2 := point{p0.x + dx*3/4, clamp(p0.y+dy*3/4-height, 0, maxY)}
	p.tiles = p.sample(p0, p1, p2, p3)
	p.index = 0
}

// sample walks the curve by arc length and emits one tile per unit, ending exactly at p3.
func (p *ParabolaPathFinder) sample(p0, p1, p2, p3 point) []gamemap.TileRef {
	//1.- Build a cumulative arc length table over evenly spaced t values.
	pts := make([]point, curveSamples+1)
	lengths := make([]float64, curveSamples+1)
	for i := 0; i <= curveSamples; i++ {
		pts[i] = bezier(p0, p1, p2, p3, float64(i)/curveSamples)
		if i > 0 {
			lengths[i] = lengths[i-1] + math.Hypot(pts[i].x-pts[i-1].x, pts[i].y-pts[i-1].y)
		}
	}
	total := lengths[curveSamples]
	steps := int(math.Ceil(total))
	//2.- Interpolate a point for every whole unit of distance, the last one clamped to the end.
	tiles := make([]gamemap.TileRef, 0, steps+1)
	seg := 0
	for s := 0; s <= steps; s++ {
		target := math.Min(float64(s), total)
		for seg < curveSamples && lengths[seg+1] < target {
			seg++
		}
		pt := pts[seg]
		if seg < curveSamples {
			span := lengths[seg+1] - lengths[seg]
			if span > 0 {
				f := (target - lengths[seg]) / span
				pt = point{pts[seg].x + f*(pts[seg+1].x-pts[seg].x), pts[seg].y + f*(pts[seg+1].y-pts[seg].y)}
			}
		}
		tiles = append(tiles, p.toTile(pt))
	}
	tiles[len(tiles)-1] = p.toTile(p3)
	return tiles
}

func (p *ParabolaPathFinder) toTile(pt point) gamemap.TileRef {
	x := int(clamp(math.Floor(pt.x+1e-9), 0, float64(p.gm.Width()-1)))
	y := int(clamp(math.Floor(pt.y+1e-9), 0, float64(p.gm.Height()-1)))
	return p.gm.Ref(x, y)
}

// NextTile advances speed samples. It returns the final tile and true once the end
// of the arc is reached.
func (p *ParabolaPathFinder) NextTile(speed int) (gamemap.TileRef, bool) {
	if len(p.tiles) == 0 {
		panic("pathfind: parabola used before ComputeControlPoints")
	}
	p.index += speed
	if p.index >= len(p.tiles)-1 {
		p.index = len(p.tiles) - 1
		return p.tiles[p.index], true
	}
	return p.tiles[p.index], false
}

// Tiles returns the precomputed trajectory.
func (p *ParabolaPathFinder) Tiles() []gamemap.TileRef { return p.tiles }

func bezier(p0, p1, p2, p3 point, t float64) point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return point{
		x: a*p0.x + b*p1.x + c*p2.x + d*p3.x,
		y: a*p0.y + b*p1.y + c*p2.y + d*p3.y,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StepToward moves one tile from src toward dst along the dominant axis.
func StepToward(gm gamemap.GameMap, src, dst gamemap.TileRef) gamemap.TileRef {
	x, y := gm.X(src), gm.Y(src)
	dx := gm.X(dst) - x
	dy := gm.Y(dst) - y
	switch {
	case dx == 0 && dy == 0:
		return src
	case abs(dx) >= abs(dy):
		x += sign(dx)
	default:
		y += sign(dy)
	}
	return gm.Ref(x, y)
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
