package game

import "openfront/engine/internal/gamemap"

// Attack is a land offensive from one player against another player or TerraNullius
// (a nil target).
type Attack struct {
	g          *Game
	id         string
	attacker   *Player
	target     *Player
	troops     int64
	sourceTile gamemap.TileRef
	border     *gamemap.TileSet
	active     bool
	retreating bool
	retreated  bool
}

func (a *Attack) ID() string                  { return a.id }
func (a *Attack) Attacker() *Player           { return a.attacker }
func (a *Attack) Target() *Player             { return a.target }
func (a *Attack) Troops() int64               { return a.troops }
func (a *Attack) SetTroops(troops int64)      { a.troops = max(0, troops) }
func (a *Attack) IsActive() bool              { return a.active }
func (a *Attack) Retreating() bool            { return a.retreating }
func (a *Attack) Retreated() bool             { return a.retreated }
func (a *Attack) SourceTile() gamemap.TileRef { return a.sourceTile }

// OrderRetreat asks the attack execution to pull back on its next tick.
func (a *Attack) OrderRetreat() { a.retreating = true }

// ExecuteRetreat marks the retreat as carried out.
func (a *Attack) ExecuteRetreat() { a.retreated = true }

// Delete detaches the attack from both players.
func (a *Attack) Delete() {
	if !a.active {
		return
	}
	a.active = false
	a.attacker.outgoingAttacks = removeAttack(a.attacker.outgoingAttacks, a)
	if a.target != nil {
		a.target.incomingAttacks = removeAttack(a.target.incomingAttacks, a)
	}
}

func (a *Attack) AddBorderTile(t gamemap.TileRef)    { a.border.Add(t) }
func (a *Attack) RemoveBorderTile(t gamemap.TileRef) { a.border.Remove(t) }
func (a *Attack) ClearBorder()                       { a.border = gamemap.NewTileSet() }
func (a *Attack) BorderSize() int                    { return a.border.Len() }

// AveragePosition is the centroid of the front, or false when the front is empty.
func (a *Attack) AveragePosition() (x, y int, ok bool) {
	tiles := a.border.Slice()
	if len(tiles) == 0 {
		return 0, 0, false
	}
	gm := a.g.Map()
	var sx, sy int
	for _, t := range tiles {
		sx += gm.X(t)
		sy += gm.Y(t)
	}
	return sx / len(tiles), sy / len(tiles), true
}

func (a *Attack) toUpdate() AttackUpdate {
	return AttackUpdate{
		AttackerID: a.attacker.SmallID(),
		TargetID:   a.target.SmallID(),
		Troops:     a.troops,
		ID:         a.id,
		Retreating: a.retreating,
	}
}

func removeAttack(list []*Attack, a *Attack) []*Attack {
	for i, candidate := range list {
		if candidate == a {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
