// Package gamemap holds the tile grid consumed by the simulation: terrain, the per-tile
// owner index, fallout, and the spatial queries built on them.
package gamemap

import "fmt"

// TileRef is a flat index into the tile array.
type TileRef uint32

// NoTile marks an absent tile reference.
const NoTile TileRef = ^TileRef(0)

// Filter decides whether a tile joins a BFS region.
type Filter func(gm GameMap, ref TileRef) bool

// GameMap is the spatial surface the simulation reads and mutates.
type GameMap interface {
	Width() int
	Height() int
	Ref(x, y int) TileRef
	X(ref TileRef) int
	Y(ref TileRef) int
	IsValidCoord(x, y int) bool
	IsValidRef(ref TileRef) bool

	IsLand(ref TileRef) bool
	IsWater(ref TileRef) bool
	IsOcean(ref TileRef) bool
	IsShoreline(ref TileRef) bool
	IsShore(ref TileRef) bool
	NumLandTiles() int

	OwnerID(ref TileRef) uint16
	SetOwnerID(ref TileRef, id uint16)
	HasOwner(ref TileRef) bool
	HasFallout(ref TileRef) bool
	SetFallout(ref TileRef, value bool)
	NumTilesWithFallout() int
	TileState(ref TileRef) uint32
	IsBorder(ref TileRef) bool

	Neighbors(ref TileRef) []TileRef
	BFS(start TileRef, filter Filter) []TileRef
	EuclideanDistSquared(a, b TileRef) int
	ManhattanDist(a, b TileRef) int
	RectDist(a, b TileRef) int
	HexDist(a, b TileRef) int
}

// Map is the in-memory GameMap.
type Map struct {
	width   int
	height  int
	land    []bool
	ocean   []bool
	owner   []uint16
	fallout []bool

	numLand    int
	numFallout int
}

var _ GameMap = (*Map)(nil)

// New builds a map from a land mask laid out row by row.
func New(width, height int, land []bool) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("map dimensions must be positive, got %dx%d", width, height)
	}
	if len(land) != width*height {
		return nil, fmt.Errorf("land mask has %d tiles, want %d", len(land), width*height)
	}
	m := &Map{
		width:   width,
		height:  height,
		land:    append([]bool(nil), land...),
		ocean:   make([]bool, width*height),
		owner:   make([]uint16, width*height),
		fallout: make([]bool, width*height),
	}
	for _, isLand := range m.land {
		if isLand {
			m.numLand++
		}
	}
	m.markOcean()
	return m, nil
}

// NewPlains builds a map made entirely of land.
func NewPlains(width, height int) *Map {
	land := make([]bool, width*height)
	for i := range land {
		land[i] = true
	}
	m, err := New(width, height, land)
	if err != nil {
		panic(err)
	}
	return m
}

// markOcean flags water connected to the map edge.
func (m *Map) markOcean() {
	var edge []TileRef
	for x := 0; x < m.width; x++ {
		edge = append(edge, m.Ref(x, 0), m.Ref(x, m.height-1))
	}
	for y := 1; y < m.height-1; y++ {
		edge = append(edge, m.Ref(0, y), m.Ref(m.width-1, y))
	}
	for _, ref := range edge {
		if m.land[ref] || m.ocean[ref] {
			continue
		}
		for _, t := range m.BFS(ref, func(gm GameMap, r TileRef) bool { return gm.IsWater(r) }) {
			m.ocean[t] = true
		}
	}
}

func (m *Map) Width() int  { return m.width }
func (m *Map) Height() int { return m.height }

func (m *Map) Ref(x, y int) TileRef {
	if !m.IsValidCoord(x, y) {
		panic(fmt.Sprintf("gamemap: invalid coordinate (%d,%d)", x, y))
	}
	return TileRef(y*m.width + x)
}

func (m *Map) X(ref TileRef) int { return int(ref) % m.width }
func (m *Map) Y(ref TileRef) int { return int(ref) / m.width }

func (m *Map) IsValidCoord(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

func (m *Map) IsValidRef(ref TileRef) bool { return int(ref) < len(m.land) }

func (m *Map) IsLand(ref TileRef) bool  { return m.land[ref] }
func (m *Map) IsWater(ref TileRef) bool { return !m.land[ref] }
func (m *Map) IsOcean(ref TileRef) bool { return m.ocean[ref] }
func (m *Map) NumLandTiles() int        { return m.numLand }

// IsShoreline reports water tiles touching land.
func (m *Map) IsShoreline(ref TileRef) bool {
	if m.land[ref] {
		return false
	}
	for _, n := range m.Neighbors(ref) {
		if m.land[n] {
			return true
		}
	}
	return false
}

// IsShore reports land tiles touching water.
func (m *Map) IsShore(ref TileRef) bool {
	if !m.land[ref] {
		return false
	}
	for _, n := range m.Neighbors(ref) {
		if !m.land[n] {
			return true
		}
	}
	return false
}

func (m *Map) OwnerID(ref TileRef) uint16 { return m.owner[ref] }
func (m *Map) HasOwner(ref TileRef) bool  { return m.owner[ref] != 0 }

func (m *Map) SetOwnerID(ref TileRef, id uint16) {
	if id > maxOwnerID {
		panic(fmt.Sprintf("gamemap: owner id %d exceeds %d", id, maxOwnerID))
	}
	m.owner[ref] = id
}

func (m *Map) HasFallout(ref TileRef) bool { return m.fallout[ref] }

func (m *Map) SetFallout(ref TileRef, value bool) {
	if m.fallout[ref] == value {
		return
	}
	m.fallout[ref] = value
	if value {
		m.numFallout++
	} else {
		m.numFallout--
	}
}

func (m *Map) NumTilesWithFallout() int { return m.numFallout }

// IsBorder reports whether any neighbour has a different owner.
func (m *Map) IsBorder(ref TileRef) bool {
	owner := m.owner[ref]
	for _, n := range m.Neighbors(ref) {
		if m.owner[n] != owner {
			return true
		}
	}
	return false
}

// Neighbors returns the orthogonal neighbours in the fixed order up, down, left, right.
func (m *Map) Neighbors(ref TileRef) []TileRef {
	x, y := m.X(ref), m.Y(ref)
	out := make([]TileRef, 0, 4)
	if y > 0 {
		out = append(out, ref-TileRef(m.width))
	}
	if y < m.height-1 {
		out = append(out, ref+TileRef(m.width))
	}
	if x > 0 {
		out = append(out, ref-1)
	}
	if x < m.width-1 {
		out = append(out, ref+1)
	}
	return out
}
