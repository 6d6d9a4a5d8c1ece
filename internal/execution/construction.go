package execution

import (
	"fmt"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
)

// ConstructionExecution places a Construction placeholder, holds the price for the
// build duration, then hands over to the execution that creates the real unit.
// The placeholder can be destroyed or captured while it waits.
type ConstructionExecution struct {
	g                *game.Game
	ownerID          string
	player           *game.Player
	tile             gamemap.TileRef
	constructionType game.UnitType

	construction       *game.Unit
	ticksUntilComplete int
	cost               game.Gold
	active             bool
}

func NewConstructionExecution(ownerID string, tile gamemap.TileRef, t game.UnitType) *ConstructionExecution {
	return &ConstructionExecution{ownerID: ownerID, tile: tile, constructionType: t, active: true}
}

func (e *ConstructionExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "construction", e.ownerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
}

func (e *ConstructionExecution) Tick(game.Tick) {
	if e.construction == nil {
		e.start()
		return
	}
	if !e.construction.IsActive() {
		e.active = false
		return
	}
	if e.ticksUntilComplete == 0 {
		e.player = e.construction.Owner()
		e.construction.Delete(false, nil)
		e.player.AddGold(e.cost)
		e.complete()
		e.active = false
		return
	}
	e.ticksUntilComplete--
}

func (e *ConstructionExecution) start() {
	info := e.g.UnitInfo(e.constructionType)
	if info.ConstructionDuration == nil {
		e.complete()
		e.active = false
		return
	}
	if e.constructionType == game.CityUpgrade {
		if city := e.g.NearbyCity(e.tile, e.player); city != nil {
			e.tile = city.Tile()
		}
	}
	spawn, ok := e.player.CanBuild(e.constructionType, e.tile)
	if !ok {
		warn(e.g, "cannot build construction",
			logging.String("player", e.ownerID), logging.String("unit", e.constructionType.String()))
		e.active = false
		return
	}
	e.construction = e.player.BuildUnit(game.Construction, spawn, game.UnitParams{})
	e.cost = info.Cost(e.player)
	e.player.RemoveGold(e.cost)
	e.construction.SetConstructionType(e.constructionType)
	e.ticksUntilComplete = *info.ConstructionDuration
}

func (e *ConstructionExecution) complete() {
	id := e.player.ID()
	switch e.constructionType {
	case game.AtomBomb, game.HydrogenBomb:
		e.g.AddExecution(NewNukeExecution(e.constructionType, id, e.tile))
	case game.MIRV:
		e.g.AddExecution(NewMIRVExecution(id, e.tile))
	case game.Warship:
		e.g.AddExecution(NewWarshipExecution(id, e.tile))
	case game.Port:
		e.g.AddExecution(NewPortExecution(id, e.tile))
	case game.MissileSilo:
		e.g.AddExecution(NewMissileSiloExecution(id, e.tile))
	case game.DefensePost:
		e.g.AddExecution(NewDefensePostExecution(id, e.tile))
	case game.SAMLauncher:
		e.g.AddExecution(NewSAMLauncherExecution(id, e.tile))
	case game.City:
		e.g.AddExecution(NewCityExecution(id, e.tile))
	case game.CityUpgrade:
		e.g.AddExecution(NewCityUpgradeExecution(id, e.tile))
	case game.Factory:
		e.g.AddExecution(NewFactoryExecution(id, e.tile))
	default:
		panic(fmt.Sprintf("execution: construction of %s is not supported", e.constructionType))
	}
}

func (e *ConstructionExecution) IsActive() bool               { return e.active }
func (e *ConstructionExecution) ActiveDuringSpawnPhase() bool { return false }
