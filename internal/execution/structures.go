package execution

import (
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/prng"
)

// structureExecution places a land structure and ends.
type structureExecution struct {
	g        *game.Game
	ownerID  string
	tile     gamemap.TileRef
	unitType game.UnitType
	unit     *game.Unit
	active   bool
}

func newStructureExecution(t game.UnitType, ownerID string, tile gamemap.TileRef) *structureExecution {
	return &structureExecution{ownerID: ownerID, tile: tile, unitType: t, active: true}
}

func (e *structureExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

func (e *structureExecution) Tick(game.Tick) {
	e.active = false
	player, ok := lookupPlayer(e.g, e.unitType.String(), e.ownerID)
	if !ok {
		return
	}
	spawn, ok := player.CanBuild(e.unitType, e.tile)
	if !ok {
		warn(e.g, "cannot build structure",
			logging.String("player", e.ownerID), logging.String("unit", e.unitType.String()))
		return
	}
	e.unit = player.BuildUnit(e.unitType, spawn, game.UnitParams{})
}

// Unit is nil until built.
func (e *structureExecution) Unit() *game.Unit { return e.unit }

func (e *structureExecution) IsActive() bool               { return e.active }
func (e *structureExecution) ActiveDuringSpawnPhase() bool { return false }

// CityExecution builds a city, raising the owner's population cap.
type CityExecution struct{ *structureExecution }

func NewCityExecution(ownerID string, tile gamemap.TileRef) *CityExecution {
	return &CityExecution{newStructureExecution(game.City, ownerID, tile)}
}

// DefensePostExecution builds a defense post, which makes nearby tiles costlier to take.
type DefensePostExecution struct{ *structureExecution }

func NewDefensePostExecution(ownerID string, tile gamemap.TileRef) *DefensePostExecution {
	return &DefensePostExecution{newStructureExecution(game.DefensePost, ownerID, tile)}
}

// FactoryExecution builds a factory.
type FactoryExecution struct{ *structureExecution }

func NewFactoryExecution(ownerID string, tile gamemap.TileRef) *FactoryExecution {
	return &FactoryExecution{newStructureExecution(game.Factory, ownerID, tile)}
}

// CityUpgradeExecution raises the level of the owner's city near tile.
type CityUpgradeExecution struct {
	g       *game.Game
	ownerID string
	tile    gamemap.TileRef
	active  bool
}

func NewCityUpgradeExecution(ownerID string, tile gamemap.TileRef) *CityUpgradeExecution {
	return &CityUpgradeExecution{ownerID: ownerID, tile: tile, active: true}
}

func (e *CityUpgradeExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

func (e *CityUpgradeExecution) Tick(game.Tick) {
	e.active = false
	player, ok := lookupPlayer(e.g, "city upgrade", e.ownerID)
	if !ok {
		return
	}
	city, ok := player.FindUnitToUpgrade(game.City, e.tile)
	if !ok {
		warn(e.g, "no city to upgrade", logging.String("player", e.ownerID))
		return
	}
	player.UpgradeUnit(city)
}

func (e *CityUpgradeExecution) IsActive() bool               { return e.active }
func (e *CityUpgradeExecution) ActiveDuringSpawnPhase() bool { return false }

// PortExecution builds a port and then, while it stands, occasionally sends a trade
// ship to a random port of a trading partner.
type PortExecution struct {
	g       *game.Game
	ownerID string
	tile    gamemap.TileRef
	port    *game.Unit
	rand    *prng.Random
	active  bool
}

func NewPortExecution(ownerID string, tile gamemap.TileRef) *PortExecution {
	return &PortExecution{ownerID: ownerID, tile: tile, active: true}
}

func (e *PortExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

// Port is nil until built.
func (e *PortExecution) Port() *game.Unit { return e.port }

func (e *PortExecution) Tick(game.Tick) {
	if e.port == nil {
		player, ok := lookupPlayer(e.g, "port", e.ownerID)
		if !ok {
			e.active = false
			return
		}
		spawn, ok := player.CanBuild(game.Port, e.tile)
		if !ok {
			warn(e.g, "cannot build port", logging.String("player", e.ownerID))
			e.active = false
			return
		}
		e.port = player.BuildUnit(game.Port, spawn, game.UnitParams{})
		e.rand = prng.New(int64(e.port.ID()))
	}
	if !e.port.IsActive() {
		e.active = false
		return
	}
	owner := e.port.Owner()
	odds := e.g.Config().TradeShipSpawnRate(owner.UnitCount(game.Port))
	if !e.rand.Chance(odds) {
		return
	}
	ports := owner.TradingPorts(e.port)
	if len(ports) == 0 {
		return
	}
	dst := prng.Pick(e.rand, ports)
	e.g.AddExecution(NewTradeShipExecution(owner.ID(), e.port, dst))
}

func (e *PortExecution) IsActive() bool               { return e.active }
func (e *PortExecution) ActiveDuringSpawnPhase() bool { return false }
