package gamemap

const (
	maxOwnerID = 1<<12 - 1
	falloutBit = 1 << 13
	landBit    = 1 << 14
)

// TileState packs owner, fallout and land flags into the low 16 bits.
func (m *Map) TileState(ref TileRef) uint32 {
	state := uint32(m.owner[ref])
	if m.fallout[ref] {
		state |= falloutBit
	}
	if m.land[ref] {
		state |= landBit
	}
	return state
}

// PackTileUpdate combines a tile reference with its packed state.
func PackTileUpdate(ref TileRef, state uint32) uint64 {
	return uint64(ref)<<16 | uint64(state&0xffff)
}

// UnpackTileUpdate splits a packed tile update.
func UnpackTileUpdate(v uint64) (TileRef, uint16, bool) {
	state := uint16(v & 0xffff)
	return TileRef(v >> 16), state & maxOwnerID, state&falloutBit != 0
}
