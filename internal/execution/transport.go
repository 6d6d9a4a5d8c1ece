package execution

import (
	"fmt"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/pathfind"
)

// TransportShipExecution carries troops over water and turns into a land attack at the
// landing tile. A retreating boat sails home and returns its troops.
type TransportShipExecution struct {
	g        *game.Game
	ownerID  string
	targetID string
	dst      gamemap.TileRef
	troops   int64

	attacker   *game.Player
	target     *game.Player
	src        gamemap.TileRef
	boat       *game.Unit
	path       *pathfind.PathFinder
	retreating bool
	active     bool
}

// NewTransportShipExecution sends troops (negative for the default amount) to dst.
func NewTransportShipExecution(ownerID, targetID string, dst gamemap.TileRef, troops int64) *TransportShipExecution {
	return &TransportShipExecution{ownerID: ownerID, targetID: targetID, dst: dst, troops: troops, src: gamemap.NoTile, active: true}
}

func (e *TransportShipExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	attacker, ok := lookupPlayer(g, "transport ship", e.ownerID)
	if !ok {
		e.active = false
		return
	}
	target, ok := lookupTarget(g, "transport ship", e.targetID)
	if !ok {
		e.active = false
		return
	}
	e.attacker, e.target = attacker, target
	if e.troops < 0 {
		e.troops = g.Config().BoatAttackAmount(attacker)
	}
	e.path = pathfind.Mini(g.Map(), 10_000)
}

// Boat is nil until launched.
func (e *TransportShipExecution) Boat() *game.Unit { return e.boat }

func (e *TransportShipExecution) Tick(game.Tick) {
	if e.boat == nil {
		e.launch()
		return
	}
	if !e.boat.IsActive() {
		e.active = false
		return
	}
	if e.boat.Retreating() && !e.retreating {
		e.retreating = true
		e.boat.SetTargetTile(e.src)
	}
	dst := e.dst
	if e.retreating {
		dst = e.src
	}

	step := e.path.NextTile(e.boat.Tile(), dst, 1)
	switch step.Result {
	case pathfind.Completed:
		if e.retreating {
			e.returnTroops()
			return
		}
		e.land()
	case pathfind.NextTile:
		e.boat.Move(step.Tile)
	case pathfind.Pending:
	case pathfind.PathNotFound:
		warn(e.g, "transport ship cannot find route", logging.Int("unit", e.boat.ID()))
		e.returnTroops()
	}
}

func (e *TransportShipExecution) launch() {
	if e.target != nil && e.attacker.IsFriendly(e.target) {
		warn(e.g, "cannot send boat to friendly player",
			logging.String("player", e.ownerID), logging.String("target", e.targetID))
		e.active = false
		return
	}
	spawn, ok := e.attacker.CanBuild(game.TransportShip, e.dst)
	if !ok {
		warn(e.g, "cannot build transport ship", logging.String("player", e.ownerID))
		e.active = false
		return
	}
	e.src = spawn
	troops := e.attacker.RemoveTroops(e.troops)
	e.boat = e.attacker.BuildUnit(game.TransportShip, spawn, game.UnitParams{Troops: troops, TargetTile: e.dst})
	e.g.Stats().BoatSend(e.attacker.ID(), game.TransportShip)
	if e.target != nil {
		e.g.DisplayIncomingUnit(e.boat.ID(), fmt.Sprintf("Naval invasion incoming from %s", e.attacker.DisplayName()),
			game.MsgNavalInvasionInbound, e.target.ID())
	}
}

// land conquers the landing tile and hands the troops to a land attack against whoever
// holds it now.
func (e *TransportShipExecution) land() {
	owner := e.g.Owner(e.dst)
	if owner == e.attacker {
		e.g.Stats().BoatArrive(e.attacker.ID(), game.TransportShip)
		e.returnTroops()
		return
	}
	if owner != nil && e.attacker.IsFriendly(owner) {
		e.returnTroops()
		return
	}
	e.attacker.Conquer(e.dst)
	e.g.AddExecution(NewAttackExecution(e.boat.Troops(), e.attacker.ID(), owner.ID(), e.dst, false))
	e.g.Stats().BoatArrive(e.attacker.ID(), game.TransportShip)
	e.boat.Delete(false, nil)
	e.active = false
}

func (e *TransportShipExecution) returnTroops() {
	e.attacker.AddTroops(e.boat.Troops())
	e.boat.Delete(false, nil)
	e.active = false
}

func (e *TransportShipExecution) IsActive() bool               { return e.active }
func (e *TransportShipExecution) ActiveDuringSpawnPhase() bool { return false }
