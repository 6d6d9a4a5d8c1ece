package game

import (
	"fmt"
	"math"
	"slices"

	"openfront/engine/internal/gamemap"
)

// troopScale is the fixed-point factor of troops and workers. Growth accumulates in
// tenths so that small per-tick rates are not lost to rounding.
const troopScale = 10

// Player is a territory-owning participant. A nil *Player stands for TerraNullius, and
// the identity accessors accept it.
type Player struct {
	g       *Game
	info    PlayerInfo
	smallID uint16

	tiles  *gamemap.TileSet
	border *gamemap.TileSet

	gold             Gold
	troops           int64 // tenths
	workers          int64 // tenths
	targetTroopRatio float64

	units []*Unit

	relations map[uint16]int

	pastOutgoingRequests []*AllianceRequest
	targets              []targetRecord
	outgoingEmojis       []EmojiMessage
	sentDonations        []donation
	embargoes            map[uint16]Embargo

	outgoingAttacks []*Attack
	incomingAttacks []*Attack

	markedTraitorTick Tick
	hasSpawned        bool
	disconnected      bool
	lastTileChange    Tick
}

type targetRecord struct {
	target uint16
	tick   Tick
}

type donation struct {
	recipient uint16
	tick      Tick
}

func newPlayer(g *Game, info PlayerInfo, smallID uint16, manpower int64) *Player {
	return &Player{
		g:                 g,
		info:              info,
		smallID:           smallID,
		tiles:             gamemap.NewTileSet(),
		border:            gamemap.NewTileSet(),
		troops:            manpower * troopScale,
		targetTroopRatio:  0.95,
		relations:         make(map[uint16]int),
		embargoes:         make(map[uint16]Embargo),
		markedTraitorTick: -1,
	}
}

// SmallID is 0 for TerraNullius.
func (p *Player) SmallID() uint16 {
	if p == nil {
		return 0
	}
	return p.smallID
}

// ID is empty for TerraNullius.
func (p *Player) ID() string {
	if p == nil {
		return ""
	}
	return p.info.ID
}

func (p *Player) Name() string {
	if p == nil {
		return "TerraNullius"
	}
	return p.info.Name
}

func (p *Player) Info() PlayerInfo    { return p.info }
func (p *Player) DisplayName() string { return p.info.Name }
func (p *Player) ClientID() string    { return p.info.ClientID }
func (p *Player) Type() PlayerType    { return p.info.Type }
func (p *Player) Team() string        { return p.info.Team }
func (p *Player) Clan() string        { return p.info.Clan() }

func (p *Player) String() string {
	return fmt.Sprintf("Player:{name:%s,smallID:%d}", p.Name(), p.SmallID())
}

func (p *Player) IsAlive() bool                   { return p.tiles.Len() > 0 }
func (p *Player) HasSpawned() bool                { return p.hasSpawned }
func (p *Player) SetHasSpawned(v bool)            { p.hasSpawned = v }
func (p *Player) IsDisconnected() bool            { return p.disconnected }
func (p *Player) MarkDisconnected(v bool)         { p.disconnected = v }
func (p *Player) LastTileChange() Tick            { return p.lastTileChange }
func (p *Player) NumTilesOwned() int              { return p.tiles.Len() }
func (p *Player) Tiles() []gamemap.TileRef        { return p.tiles.Copy() }
func (p *Player) BorderTiles() []gamemap.TileRef  { return p.border.Copy() }
func (p *Player) OwnsTile(t gamemap.TileRef) bool { return p.tiles.Has(t) }

// IsTraitor stays true for TraitorDuration ticks after the player broke an alliance.
func (p *Player) IsTraitor() bool {
	return p.markedTraitorTick >= 0 &&
		p.g.Ticks()-p.markedTraitorTick < p.g.Config().TraitorDuration()
}

func (p *Player) MarkTraitor() {
	p.markedTraitorTick = p.g.Ticks()
	p.g.Stats().Betray(p.ID())
}

// Conquer takes the tile from its current owner.
func (p *Player) Conquer(tile gamemap.TileRef) { p.g.conquer(p, tile) }

// Relinquish hands an owned tile back to TerraNullius.
func (p *Player) Relinquish(tile gamemap.TileRef) {
	if p.g.Owner(tile) != p {
		panic(fmt.Sprintf("game: %s cannot relinquish tile %d it does not own", p, tile))
	}
	p.g.relinquish(tile)
}

func (p *Player) Gold() Gold { return p.gold }

// AddGold credits gold, saturating at math.MaxInt64. Negative amounts are ignored.
func (p *Player) AddGold(amount Gold) {
	if amount <= 0 {
		return
	}
	if p.gold > math.MaxInt64-amount {
		p.gold = math.MaxInt64
		return
	}
	p.gold += amount
}

// RemoveGold debits at most the current balance and returns what was removed.
func (p *Player) RemoveGold(amount Gold) Gold {
	if amount <= 0 {
		return 0
	}
	removed := min(amount, p.gold)
	p.gold -= removed
	return removed
}

func (p *Player) Troops() int64  { return p.troops / troopScale }
func (p *Player) Workers() int64 { return p.workers / troopScale }

// Population is troops plus workers.
func (p *Player) Population() int64 { return (p.troops + p.workers) / troopScale }

func (p *Player) SetTroops(troops int64) { p.troops = max(0, troops) * troopScale }

func (p *Player) AddTroops(troops int64) {
	if troops < 0 {
		p.RemoveTroops(-troops)
		return
	}
	p.troops += troops * troopScale
}

// RemoveTroops never takes the player below zero and returns what was removed.
func (p *Player) RemoveTroops(troops int64) int64 {
	if troops <= 0 {
		return 0
	}
	removed := min(troops, p.Troops())
	p.troops -= removed * troopScale
	return removed
}

func (p *Player) AddWorkers(workers int64) {
	if workers < 0 {
		p.RemoveWorkers(-workers)
		return
	}
	p.workers += workers * troopScale
}

func (p *Player) RemoveWorkers(workers int64) int64 {
	if workers <= 0 {
		return 0
	}
	removed := min(workers, p.Workers())
	p.workers -= removed * troopScale
	return removed
}

// Grow adds humans split by the target troop ratio, keeping tenths.
func (p *Player) Grow(humans int64) {
	if humans <= 0 {
		return
	}
	scaled := humans * troopScale
	toTroops := int64(float64(float64(scaled) * p.targetTroopRatio))
	p.troops += toTroops
	p.workers += scaled - toTroops
}

// ShiftTroops moves humans between workers (negative) and troops (positive).
func (p *Player) ShiftTroops(delta int64) {
	scaled := delta * troopScale
	if scaled > 0 {
		scaled = min(scaled, p.workers)
	} else {
		scaled = max(scaled, -p.troops)
	}
	p.troops += scaled
	p.workers -= scaled
}

func (p *Player) TargetTroopRatio() float64 { return p.targetTroopRatio }

// SetTargetTroopRatio clamps to [0, 1].
func (p *Player) SetTargetTroopRatio(ratio float64) {
	p.targetTroopRatio = min(max(ratio, 0), 1)
}

// Units returns the active units, optionally filtered by type, in build order.
func (p *Player) Units(types ...UnitType) []*Unit {
	out := make([]*Unit, 0, len(p.units))
	for _, u := range p.units {
		if len(types) == 0 || slices.Contains(types, u.typ) {
			out = append(out, u)
		}
	}
	return out
}

// UnitCount counts units of one type regardless of level.
func (p *Player) UnitCount(t UnitType) int {
	n := 0
	for _, u := range p.units {
		if u.typ == t {
			n++
		}
	}
	return n
}

// UnitsOwned sums the levels of owned units of type t.
func (p *Player) UnitsOwned(t UnitType) int {
	n := 0
	for _, u := range p.units {
		if u.typ == t {
			n += u.level
		}
	}
	return n
}

// UnitsConstructed is UnitsOwned plus constructions of type t still in progress.
func (p *Player) UnitsConstructed(t UnitType) int {
	n := p.UnitsOwned(t)
	for _, u := range p.units {
		if u.typ == Construction && u.hasConstructionType && u.constructionType == t {
			n++
		}
	}
	return n
}

func (p *Player) removeUnit(u *Unit) {
	if i := slices.Index(p.units, u); i >= 0 {
		p.units = slices.Delete(p.units, i, i+1)
	}
}

// BuildableUnit describes whether the player can place or upgrade a type at a tile.
type BuildableUnit struct {
	Type       UnitType
	CanBuild   gamemap.TileRef // NoTile when not buildable
	CanUpgrade int             // unit ID, 0 when nothing can be upgraded
	Cost       Gold
}

var buildMenu = []UnitType{
	City, Factory, Port, DefensePost, MissileSilo, SAMLauncher, Warship,
	AtomBomb, HydrogenBomb, MIRV, TransportShip,
}

// BuildableUnits lists every player-buildable type for tile.
func (p *Player) BuildableUnits(tile gamemap.TileRef) []BuildableUnit {
	out := make([]BuildableUnit, 0, len(buildMenu))
	for _, t := range buildMenu {
		bu := BuildableUnit{Type: t, CanBuild: gamemap.NoTile, Cost: p.g.UnitInfo(t).Cost(p)}
		if spawn, ok := p.CanBuild(t, tile); ok {
			bu.CanBuild = spawn
		}
		if u, ok := p.FindUnitToUpgrade(t, tile); ok {
			bu.CanUpgrade = u.ID()
		}
		out = append(out, bu)
	}
	return out
}

// CanBuild returns the tile the unit would spawn on, or false.
func (p *Player) CanBuild(t UnitType, target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	if !gm.IsValidRef(target) || !p.IsAlive() {
		return gamemap.NoTile, false
	}
	if p.g.UnitInfo(t).Cost(p) > p.gold {
		return gamemap.NoTile, false
	}
	switch t {
	case AtomBomb, HydrogenBomb, MIRV:
		return p.nukeSpawn(target)
	case MIRVWarhead, Shell, SAMMissile:
		return target, true
	case Port:
		return p.portSpawn(target)
	case Warship:
		return p.warshipSpawn(target)
	case TransportShip:
		return p.transportShipSpawn(target)
	case TradeShip:
		return p.tradeShipSpawn(target)
	case CityUpgrade:
		if city, ok := p.FindUnitToUpgrade(City, target); ok {
			return city.Tile(), true
		}
		return gamemap.NoTile, false
	case MissileSilo, DefensePost, SAMLauncher, City, Factory, Construction:
		return p.landBasedStructureSpawn(target)
	}
	return gamemap.NoTile, false
}

// nukeSpawn picks the ready silo closest to the target.
func (p *Player) nukeSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	best := gamemap.NoTile
	bestDist := 0
	for _, silo := range p.units {
		if silo.typ != MissileSilo || silo.IsInCooldown() {
			continue
		}
		d := gm.ManhattanDist(silo.tile, target)
		if best == gamemap.NoTile || d < bestDist {
			best, bestDist = silo.tile, d
		}
	}
	return best, best != gamemap.NoTile
}

func (p *Player) landBasedStructureSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	if !gm.IsLand(target) || p.g.Owner(target) != p {
		return gamemap.NoTile, false
	}
	if len(p.g.NearbyUnits(target, p.g.Config().StructureMinDist(), structureTypes, nil)) > 0 {
		return gamemap.NoTile, false
	}
	return target, true
}

// portSpawn searches owned ocean shore near the target.
func (p *Player) portSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	candidates := gm.BFS(target, func(gm gamemap.GameMap, t gamemap.TileRef) bool {
		return gm.ManhattanDist(target, t) <= 20 && p.g.Owner(t) == p
	})
	for _, t := range candidates {
		if !p.isOceanShore(t) {
			continue
		}
		if len(p.g.NearbyUnits(t, p.g.Config().StructureMinDist(), structureTypes, nil)) > 0 {
			continue
		}
		return t, true
	}
	return gamemap.NoTile, false
}

func (p *Player) isOceanShore(t gamemap.TileRef) bool {
	gm := p.g.Map()
	if !gm.IsShore(t) {
		return false
	}
	for _, n := range gm.Neighbors(t) {
		if gm.IsOcean(n) {
			return true
		}
	}
	return false
}

// warshipSpawn launches from the owned port nearest to an ocean target.
func (p *Player) warshipSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	if !gm.IsOcean(target) {
		return gamemap.NoTile, false
	}
	best := gamemap.NoTile
	bestDist := 0
	for _, port := range p.units {
		if port.typ != Port {
			continue
		}
		d := gm.ManhattanDist(port.tile, target)
		if best == gamemap.NoTile || d < bestDist {
			best, bestDist = port.tile, d
		}
	}
	return best, best != gamemap.NoTile
}

func (p *Player) transportShipSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	if p.UnitCount(TransportShip) >= p.g.Config().BoatMaxNumber() {
		return gamemap.NoTile, false
	}
	if !gm.IsShore(target) || p.g.Owner(target) == p {
		return gamemap.NoTile, false
	}
	if other := p.g.Owner(target); other != nil && p.IsFriendly(other) {
		return gamemap.NoTile, false
	}
	return p.BestTransportShipSpawn(target)
}

func (p *Player) tradeShipSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	for _, port := range p.units {
		if port.typ == Port && port.tile == target {
			return target, true
		}
	}
	return gamemap.NoTile, false
}

// BestTransportShipSpawn is the owned ocean shore tile nearest to target. It scans the
// whole border and is meant for intents, not per-tick use.
func (p *Player) BestTransportShipSpawn(target gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := p.g.Map()
	best := gamemap.NoTile
	bestDist := 0
	for _, t := range p.border.Slice() {
		if !p.isOceanShore(t) {
			continue
		}
		d := gm.ManhattanDist(t, target)
		if best == gamemap.NoTile || d < bestDist || (d == bestDist && t < best) {
			best, bestDist = t, d
		}
	}
	return best, best != gamemap.NoTile
}

// BuildUnit pays for and places a unit. Callers check CanBuild first.
func (p *Player) BuildUnit(t UnitType, spawn gamemap.TileRef, params UnitParams) *Unit {
	cost := p.g.UnitInfo(t).Cost(p)
	p.RemoveGold(cost)
	u := p.g.newUnit(t, p, spawn, params)
	p.units = append(p.units, u)
	p.g.AddUpdate(u.ToUpdate())
	if t.IsStructure() && t != Construction || t == Warship {
		p.g.Stats().UnitBuild(p.ID(), t)
	}
	return u
}

// FindUnitToUpgrade returns an owned unit of type t within StructureMinDist of target
// when the type is upgradable and the player can pay for it.
func (p *Player) FindUnitToUpgrade(t UnitType, target gamemap.TileRef) (*Unit, bool) {
	if !p.CanUpgradeUnit(t) {
		return nil, false
	}
	owned := func(u *Unit) bool { return u.owner == p }
	nearby := p.g.NearbyUnits(target, p.g.Config().StructureMinDist(), []UnitType{t}, owned)
	if len(nearby) == 0 {
		return nil, false
	}
	return nearby[0].Unit, true
}

// CanUpgradeUnit reports whether type t is upgradable and affordable.
func (p *Player) CanUpgradeUnit(t UnitType) bool {
	info := p.g.UnitInfo(t)
	return info.Upgradable && p.gold >= info.Cost(p)
}

// UpgradeUnit pays for one more level.
func (p *Player) UpgradeUnit(u *Unit) {
	p.RemoveGold(p.g.UnitInfo(u.typ).Cost(p))
	u.IncreaseLevel()
	p.g.Stats().UnitBuild(p.ID(), u.typ)
}

// CaptureUnit takes a unit from its owner.
func (p *Player) CaptureUnit(u *Unit) {
	if u.owner == p {
		panic(fmt.Sprintf("game: %s cannot capture its own %s", p, u))
	}
	p.g.Stats().UnitCapture(p.ID(), u.typ)
	p.g.Stats().UnitLose(u.owner.ID(), u.typ)
	u.SetOwner(p)
}

// CanAttack reports whether the tile is land held by a non-friendly owner and touches
// the player's territory.
func (p *Player) CanAttack(tile gamemap.TileRef) bool {
	gm := p.g.Map()
	owner := p.g.Owner(tile)
	if owner == p || !gm.IsLand(tile) {
		return false
	}
	if owner != nil && p.IsFriendly(owner) {
		return false
	}
	for _, n := range gm.Neighbors(tile) {
		if p.g.Owner(n) == p {
			return true
		}
	}
	return false
}

// CreateAttack registers an attack. A nil target attacks TerraNullius.
func (p *Player) CreateAttack(target *Player, troops int64, sourceTile gamemap.TileRef, border []gamemap.TileRef) *Attack {
	a := &Attack{
		g:          p.g,
		id:         p.g.nextAttackID(),
		attacker:   p,
		target:     target,
		troops:     max(0, troops),
		sourceTile: sourceTile,
		border:     gamemap.NewTileSet(),
		active:     true,
	}
	for _, t := range border {
		a.border.Add(t)
	}
	p.outgoingAttacks = append(p.outgoingAttacks, a)
	if target != nil {
		target.incomingAttacks = append(target.incomingAttacks, a)
	}
	return a
}

func (p *Player) OutgoingAttacks() []*Attack { return slices.Clone(p.outgoingAttacks) }
func (p *Player) IncomingAttacks() []*Attack { return slices.Clone(p.incomingAttacks) }

// OrderRetreat flags the outgoing attack with the given ID.
func (p *Player) OrderRetreat(id string) {
	for _, a := range p.outgoingAttacks {
		if a.id == id {
			a.OrderRetreat()
			return
		}
	}
	p.g.Logger().Warn("retreat ordered for unknown attack")
}

// ExecuteRetreat marks the outgoing attack with the given ID as retreated.
func (p *Player) ExecuteRetreat(id string) {
	for _, a := range p.outgoingAttacks {
		if a.id == id {
			a.ExecuteRetreat()
			return
		}
	}
}

// OrderBoatRetreat turns around the player's transport ship with the given ID.
func (p *Player) OrderBoatRetreat(unitID int) bool {
	for _, u := range p.units {
		if u.id == unitID && u.typ == TransportShip {
			u.OrderBoatRetreat()
			return true
		}
	}
	return false
}

// Neighbors lists the players sharing a border, ordered by small ID.
func (p *Player) Neighbors() []*Player {
	gm := p.g.Map()
	seen := make(map[uint16]struct{})
	for _, t := range p.border.Slice() {
		for _, n := range gm.Neighbors(t) {
			id := gm.OwnerID(n)
			if id != 0 && id != p.smallID {
				seen[id] = struct{}{}
			}
		}
	}
	out := make([]*Player, 0, len(seen))
	for id := range seen {
		out = append(out, p.g.PlayerBySmallID(id))
	}
	slices.SortFunc(out, func(a, b *Player) int { return int(a.smallID) - int(b.smallID) })
	return out
}

// SharesBorderWith reports a common border. A nil other tests for unclaimed land.
func (p *Player) SharesBorderWith(other *Player) bool {
	gm := p.g.Map()
	want := other.SmallID()
	for _, t := range p.border.Slice() {
		for _, n := range gm.Neighbors(t) {
			if gm.OwnerID(n) == want && (want != 0 || gm.IsLand(n)) {
				return true
			}
		}
	}
	return false
}

// TradingPorts lists the ports of trading partners, nearest to port first.
func (p *Player) TradingPorts(port *Unit) []*Unit {
	gm := p.g.Map()
	var out []*Unit
	for _, partner := range p.TradingPartners() {
		out = append(out, partner.Units(Port)...)
	}
	slices.SortStableFunc(out, func(a, b *Unit) int {
		da, db := gm.ManhattanDist(port.tile, a.tile), gm.ManhattanDist(port.tile, b.tile)
		if da != db {
			return da - db
		}
		return a.id - b.id
	})
	return out
}

// ToUpdate snapshots the player for the per-tick diff.
func (p *Player) ToUpdate() PlayerUpdate {
	update := PlayerUpdate{
		ClientID:         p.info.ClientID,
		Name:             p.info.Name,
		DisplayName:      p.DisplayName(),
		ID:               p.info.ID,
		Team:             p.info.Team,
		SmallID:          p.smallID,
		PlayerType:       p.info.Type,
		IsAlive:          p.IsAlive(),
		IsDisconnected:   p.disconnected,
		TilesOwned:       p.tiles.Len(),
		Gold:             p.gold,
		Population:       p.Population(),
		Workers:          p.Workers(),
		Troops:           p.Troops(),
		TargetTroopRatio: p.targetTroopRatio,
		IsTraitor:        p.IsTraitor(),
		OutgoingEmojis:   p.OutgoingEmojis(),
		HasSpawned:       p.hasSpawned,
		Betrayals:        p.g.Stats().PlayerStats(p.info.ID).Betrayals,
	}
	for _, ally := range p.Allies() {
		update.Allies = append(update.Allies, ally.smallID)
	}
	for _, e := range p.Embargoes() {
		update.Embargoes = append(update.Embargoes, e.Target)
	}
	for _, t := range p.Targets() {
		update.Targets = append(update.Targets, t.smallID)
	}
	for _, a := range p.outgoingAttacks {
		update.OutgoingAttacks = append(update.OutgoingAttacks, a.toUpdate())
	}
	for _, a := range p.incomingAttacks {
		update.IncomingAttacks = append(update.IncomingAttacks, a.toUpdate())
	}
	for _, r := range p.OutgoingAllianceRequests() {
		update.OutgoingAllianceRequests = append(update.OutgoingAllianceRequests, r.recipient.smallID)
	}
	return update
}

// hashInto feeds the state that must agree across replicas.
func (p *Player) hashInto(h *hasher) {
	h.u64(uint64(p.smallID))
	h.u64(uint64(p.tiles.Len()))
	h.u64(uint64(p.troops))
	h.u64(uint64(p.workers))
	h.u64(uint64(p.gold))
	h.bool(p.hasSpawned)
}
