package execution

import (
	"cmp"
	"fmt"
	"slices"

	"openfront/engine/internal/game"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/pathfind"
)

// TradeShipExecution sails from one port to a partner's port and pays both owners on
// arrival. A captured ship sails to its captor's nearest port instead and pays only the
// captor.
type TradeShipExecution struct {
	g             *game.Game
	origOwnerID   string
	origOwner     *game.Player
	srcPort       *game.Unit
	dstPort       *game.Unit
	ship          *game.Unit
	path          *pathfind.PathFinder
	wasCaptured   bool
	tilesTraveled int
	active        bool
}

func NewTradeShipExecution(ownerID string, srcPort, dstPort *game.Unit) *TradeShipExecution {
	return &TradeShipExecution{origOwnerID: ownerID, srcPort: srcPort, dstPort: dstPort, active: true}
}

func (e *TradeShipExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	owner, ok := lookupPlayer(g, "trade ship", e.origOwnerID)
	if !ok {
		e.active = false
		return
	}
	e.origOwner = owner
	e.path = pathfind.Mini(g.Map(), 2500)
}

// Ship is nil until launched.
func (e *TradeShipExecution) Ship() *game.Unit { return e.ship }

// DstPort is the port the ship is currently heading for.
func (e *TradeShipExecution) DstPort() *game.Unit { return e.dstPort }

func (e *TradeShipExecution) Tick(game.Tick) {
	if e.ship == nil {
		spawn, ok := e.origOwner.CanBuild(game.TradeShip, e.srcPort.Tile())
		if !ok {
			warn(e.g, "cannot build trade ship", logging.String("player", e.origOwnerID))
			e.active = false
			return
		}
		e.ship = e.origOwner.BuildUnit(game.TradeShip, spawn, game.UnitParams{TargetUnit: e.dstPort})
		e.ship.SetSafeFromPirates()
	}
	if !e.ship.IsActive() {
		e.active = false
		return
	}
	if e.ship.Owner() != e.origOwner {
		// Sticky: a ship recaptured by its first owner still counts as captured.
		e.wasCaptured = true
	}

	//1.- A port changing hands can make the route a domestic one.
	if e.dstPort.Owner() == e.srcPort.Owner() {
		e.stop()
		return
	}
	if !e.wasCaptured && (!e.dstPort.IsActive() || !e.ship.Owner().CanTrade(e.dstPort.Owner())) {
		e.stop()
		return
	}
	if e.wasCaptured && !e.reroute() {
		e.stop()
		return
	}

	//2.- Sail.
	gm := e.g.Map()
	step := e.path.NextTile(e.ship.Tile(), e.dstPort.Tile(), 1)
	switch step.Result {
	case pathfind.Completed:
		e.complete()
	case pathfind.Pending:
		e.ship.Move(e.ship.Tile())
	case pathfind.NextTile:
		if gm.IsWater(step.Tile) && gm.IsShoreline(step.Tile) {
			e.ship.SetSafeFromPirates()
		}
		e.ship.Move(step.Tile)
		e.tilesTraveled++
	case pathfind.PathNotFound:
		warn(e.g, "trade ship cannot find route", logging.Int("unit", e.ship.ID()))
		e.stop()
	}
}

// reroute points a captured ship at its owner's nearest port.
func (e *TradeShipExecution) reroute() bool {
	gm := e.g.Map()
	ports := e.ship.Owner().Units(game.Port)
	if len(ports) == 0 {
		return false
	}
	from := e.ship.Tile()
	//1.- Equidistant ports resolve to the lowest unit ID so every replay picks the same one.
	slices.SortFunc(ports, func(a, b *game.Unit) int {
		return cmp.Or(
			cmp.Compare(gm.ManhattanDist(from, a.Tile()), gm.ManhattanDist(from, b.Tile())),
			cmp.Compare(a.ID(), b.ID()),
		)
	})
	e.dstPort = ports[0]
	e.ship.SetTargetUnit(e.dstPort)
	return true
}

func (e *TradeShipExecution) stop() {
	if e.ship.IsActive() {
		e.ship.Delete(false, nil)
	}
	e.active = false
}

func (e *TradeShipExecution) complete() {
	e.active = false
	e.ship.Delete(false, nil)
	gold := e.g.Config().TradeShipGold(e.tilesTraveled)
	if e.wasCaptured {
		captor := e.ship.Owner()
		captor.AddGold(gold)
		e.g.DisplayMessage(fmt.Sprintf("Received %d gold from ship captured from %s", gold, e.origOwner.DisplayName()),
			game.MsgCapturedEnemyUnit, captor.ID(), gold)
		e.g.Stats().GoldTrade(captor.ID(), "", gold)
		return
	}
	src, dst := e.srcPort.Owner(), e.dstPort.Owner()
	src.AddGold(gold)
	dst.AddGold(gold)
	e.g.DisplayMessage(fmt.Sprintf("Received %d gold from trade with %s", gold, src.DisplayName()),
		game.MsgReceivedGoldFromTrade, dst.ID(), gold)
	e.g.DisplayMessage(fmt.Sprintf("Received %d gold from trade with %s", gold, dst.DisplayName()),
		game.MsgReceivedGoldFromTrade, src.ID(), gold)
	e.g.Stats().GoldTrade(src.ID(), dst.ID(), gold)
}

func (e *TradeShipExecution) IsActive() bool               { return e.active }
func (e *TradeShipExecution) ActiveDuringSpawnPhase() bool { return false }
