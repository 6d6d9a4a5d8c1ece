package gamemap

// TileSet is an insertion-ordered set of tiles. Removal swaps the last element into
// the removed slot, so iteration order depends only on the sequence of operations.
type TileSet struct {
	index map[TileRef]int
	tiles []TileRef
}

// NewTileSet returns an empty set.
func NewTileSet() *TileSet {
	return &TileSet{index: make(map[TileRef]int)}
}

func (s *TileSet) Add(ref TileRef) bool {
	if _, ok := s.index[ref]; ok {
		return false
	}
	s.index[ref] = len(s.tiles)
	s.tiles = append(s.tiles, ref)
	return true
}

func (s *TileSet) Remove(ref TileRef) bool {
	i, ok := s.index[ref]
	if !ok {
		return false
	}
	last := len(s.tiles) - 1
	moved := s.tiles[last]
	s.tiles[i] = moved
	s.index[moved] = i
	s.tiles = s.tiles[:last]
	delete(s.index, ref)
	return true
}

func (s *TileSet) Has(ref TileRef) bool {
	_, ok := s.index[ref]
	return ok
}

func (s *TileSet) Len() int { return len(s.tiles) }

// Slice returns the members. The slice must not be modified.
func (s *TileSet) Slice() []TileRef { return s.tiles }

// Copy returns an independent slice of the members.
func (s *TileSet) Copy() []TileRef { return append([]TileRef(nil), s.tiles...) }
