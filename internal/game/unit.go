package game

import (
	"fmt"

	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/prng"
)

// UnitParams carries the type-specific fields given at build time. TargetTile is read
// for nukes, warheads and transport ships, PatrolTile for warships, TargetUnit for
// trade ships.
type UnitParams struct {
	Troops     int64
	TargetTile gamemap.TileRef
	PatrolTile gamemap.TileRef
	TargetUnit *Unit
}

// Unit is a building, ship or missile owned by a player.
type Unit struct {
	g     *Game
	id    int
	typ   UnitType
	owner *Player

	tile     gamemap.TileRef
	lastTile gamemap.TileRef
	troops   int64
	health   int
	active   bool
	level    int

	constructionType    UnitType
	hasConstructionType bool

	targetTile    gamemap.TileRef
	targetUnit    *Unit
	targetedBySAM bool
	reachedTarget bool
	targetable    bool
	retreating    bool
	patrolTile    gamemap.TileRef

	missileTimers       []Tick
	lastSafeFromPirates Tick
}

func newUnit(g *Game, id int, t UnitType, owner *Player, tile gamemap.TileRef, params UnitParams) *Unit {
	info := g.UnitInfo(t)
	maxHealth := info.MaxHealth
	if maxHealth == 0 {
		maxHealth = 2
	}
	u := &Unit{
		g:                   g,
		id:                  id,
		typ:                 t,
		owner:               owner,
		tile:                tile,
		lastTile:            tile,
		troops:              params.Troops,
		health:              int(float64(maxHealth) * 0.6),
		active:              true,
		level:               1,
		targetTile:          gamemap.NoTile,
		targetable:          true,
		patrolTile:          gamemap.NoTile,
		lastSafeFromPirates: -1,
	}
	switch t {
	case AtomBomb, HydrogenBomb, MIRVWarhead, MIRV, TransportShip:
		u.targetTile = params.TargetTile
	case Warship:
		u.patrolTile = params.PatrolTile
	case TradeShip:
		u.targetUnit = params.TargetUnit
	}
	return u
}

func (u *Unit) ID() int                   { return u.id }
func (u *Unit) Type() UnitType            { return u.typ }
func (u *Unit) Owner() *Player            { return u.owner }
func (u *Unit) Info() UnitInfo            { return u.g.UnitInfo(u.typ) }
func (u *Unit) Tile() gamemap.TileRef     { return u.tile }
func (u *Unit) LastTile() gamemap.TileRef { return u.lastTile }
func (u *Unit) IsActive() bool            { return u.active }
func (u *Unit) Troops() int64             { return u.troops }
func (u *Unit) Level() int                { return u.level }

func (u *Unit) String() string {
	return fmt.Sprintf("Unit:%s,id:%d,owner:%s", u.typ, u.id, u.owner.Name())
}

// Move relocates the unit and emits an update.
func (u *Unit) Move(tile gamemap.TileRef) {
	if tile == gamemap.NoTile {
		panic("game: unit moved to no tile")
	}
	u.lastTile = u.tile
	u.tile = tile
	u.g.AddUpdate(u.ToUpdate())
}

// Touch re-emits the unit so observers redraw it.
func (u *Unit) Touch() { u.g.AddUpdate(u.ToUpdate()) }

// SetTroops replaces the troop payload, never going below zero.
func (u *Unit) SetTroops(troops int64) { u.troops = max(0, troops) }

// SetOwner transfers the unit without recreating it. Health and troops persist.
func (u *Unit) SetOwner(newOwner *Player) {
	old := u.owner
	old.removeUnit(u)
	u.owner = newOwner
	newOwner.units = append(newOwner.units, u)
	update := u.ToUpdate()
	update.LastOwnerID = old.SmallID()
	u.g.AddUpdate(update)
	u.g.DisplayMessage(
		fmt.Sprintf("Your %s was captured by %s", u.typ, newOwner.DisplayName()),
		MsgError, old.ID(), 0,
	)
}

func (u *Unit) HasHealth() bool { return u.Info().HasHealth() }
func (u *Unit) Health() int     { return u.health }

// ModifyHealth adds delta and clamps to [0, maxHealth].
func (u *Unit) ModifyHealth(delta int, attacker *Player) {
	maxHealth := u.Info().MaxHealth
	if maxHealth == 0 {
		maxHealth = 1
	}
	u.health = min(max(u.health+delta, 0), maxHealth)
}

// Delete removes the unit for good. Deleting twice is an engine bug and panics.
func (u *Unit) Delete(displayMessage bool, destroyer *Player) {
	if !u.active {
		panic(fmt.Sprintf("game: cannot delete %s, not active", u))
	}
	u.owner.removeUnit(u)
	u.active = false
	u.g.removeUnit(u)
	u.g.AddUpdate(u.ToUpdate())
	if displayMessage {
		u.g.DisplayMessage(fmt.Sprintf("Your %s was destroyed", u.typ), MsgError, u.owner.ID(), 0)
	}
	if destroyer != nil && destroyer != u.owner {
		switch {
		case u.typ == TransportShip || u.typ == TradeShip:
			u.g.Stats().BoatDestroy(u.owner.ID(), u.typ)
		case u.typ.IsStructure() || u.typ == Warship:
			u.g.Stats().UnitDestroy(destroyer.ID(), u.typ)
			u.g.Stats().UnitLose(u.owner.ID(), u.typ)
		}
	}
}

// ConstructionType is only defined for Construction units.
func (u *Unit) ConstructionType() (UnitType, bool) {
	if u.typ != Construction {
		panic(fmt.Sprintf("game: cannot get construction type on %s", u.typ))
	}
	return u.constructionType, u.hasConstructionType
}

func (u *Unit) SetConstructionType(t UnitType) {
	if u.typ != Construction {
		panic(fmt.Sprintf("game: cannot set construction type on %s", u.typ))
	}
	u.constructionType = t
	u.hasConstructionType = true
	u.g.AddUpdate(u.ToUpdate())
}

func (u *Unit) TargetTile() gamemap.TileRef     { return u.targetTile }
func (u *Unit) SetTargetTile(t gamemap.TileRef) { u.targetTile = t }
func (u *Unit) TargetUnit() *Unit               { return u.targetUnit }
func (u *Unit) SetTargetUnit(t *Unit)           { u.targetUnit = t }
func (u *Unit) TargetedBySAM() bool             { return u.targetedBySAM }
func (u *Unit) SetTargetedBySAM(v bool)         { u.targetedBySAM = v }
func (u *Unit) ReachedTarget() bool             { return u.reachedTarget }
func (u *Unit) IsTargetable() bool              { return u.targetable }
func (u *Unit) SetTargetable(v bool)            { u.targetable = v }
func (u *Unit) Retreating() bool                { return u.retreating }
func (u *Unit) PatrolTile() gamemap.TileRef     { return u.patrolTile }
func (u *Unit) SetPatrolTile(t gamemap.TileRef) { u.patrolTile = t }

func (u *Unit) SetReachedTarget() {
	u.reachedTarget = true
	u.g.AddUpdate(u.ToUpdate())
}

// OrderBoatRetreat turns a transport ship around.
func (u *Unit) OrderBoatRetreat() {
	if u.typ != TransportShip {
		panic(fmt.Sprintf("game: cannot order retreat on %s", u.typ))
	}
	u.retreating = true
}

// IncreaseLevel upgrades a structure by one level.
func (u *Unit) IncreaseLevel() {
	u.level++
	u.g.AddUpdate(u.ToUpdate())
}

// Launch stamps a missile timer. The unit holds one missile per level.
func (u *Unit) Launch() {
	u.missileTimers = append(u.missileTimers, u.g.Ticks())
	u.g.AddUpdate(u.ToUpdate())
}

// ReloadMissile clears the oldest timer.
func (u *Unit) ReloadMissile() {
	if len(u.missileTimers) == 0 {
		return
	}
	u.missileTimers = u.missileTimers[1:]
	u.g.AddUpdate(u.ToUpdate())
}

// IsInCooldown reports whether every missile is spent.
func (u *Unit) IsInCooldown() bool { return len(u.missileTimers) >= u.level }

// MissileTimerQueue returns the launch ticks of spent missiles, oldest first.
func (u *Unit) MissileTimerQueue() []Tick { return append([]Tick(nil), u.missileTimers...) }

// TicksLeftInCooldown returns how long until the oldest missile is back, given the
// cooldown of this unit's type.
func (u *Unit) TicksLeftInCooldown(cooldown int) int {
	if len(u.missileTimers) == 0 {
		return 0
	}
	return max(0, cooldown-(u.g.Ticks()-u.missileTimers[0]))
}

// SetCooldown forces the unit to be fully spent or fully loaded.
func (u *Unit) SetCooldown(spent bool) {
	u.missileTimers = u.missileTimers[:0]
	if spent {
		for range u.level {
			u.missileTimers = append(u.missileTimers, u.g.Ticks())
		}
	}
}

// SetSafeFromPirates marks a trade ship as protected for SafeFromPiratesCooldown ticks.
func (u *Unit) SetSafeFromPirates() { u.lastSafeFromPirates = u.g.Ticks() }

func (u *Unit) IsSafeFromPirates() bool {
	return u.lastSafeFromPirates >= 0 &&
		u.g.Ticks()-u.lastSafeFromPirates < u.g.Config().SafeFromPiratesCooldown()
}

// Hash mixes tile, type and ID into the game hash.
func (u *Unit) Hash() int64 {
	return int64(u.tile) + prng.SimpleHash(u.typ.String())*int64(u.id)
}

// ToUpdate snapshots the unit for the per-tick diff.
func (u *Unit) ToUpdate() UnitUpdate {
	update := UnitUpdate{
		UnitType:          u.typ,
		ID:                u.id,
		Troops:            u.troops,
		OwnerID:           u.owner.SmallID(),
		LastOwnerID:       u.owner.SmallID(),
		Pos:               u.tile,
		LastPos:           u.lastTile,
		IsActive:          u.active,
		ReachedTarget:     u.reachedTarget,
		Retreating:        u.retreating,
		Targetable:        u.targetable,
		TargetTile:        u.targetTile,
		Health:            u.health,
		HasHealth:         u.HasHealth(),
		ConstructionType:  u.constructionType,
		HasConstruction:   u.hasConstructionType,
		MissileTimerQueue: u.MissileTimerQueue(),
		ReadyMissileCount: max(0, u.level-len(u.missileTimers)),
		Level:             u.level,
	}
	if u.targetUnit != nil {
		update.TargetUnitID = u.targetUnit.ID()
	}
	return update
}
