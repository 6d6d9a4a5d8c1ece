package execution

import (
	"fmt"
	"slices"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/pathfind"
	"openfront/engine/internal/prng"
)

const (
	// mirvSeparationHeight is how far above the target the carrier splits.
	mirvSeparationHeight = 500
	// mirvSearchRange bounds where warheads may land around the aim point.
	mirvSearchRange    = 1500
	mirvPlacementTries = 1000
)

// MIRVExecution flies a carrier to a separation point above the target and splits it
// into warheads spread over the target's land.
type MIRVExecution struct {
	g       *game.Game
	ownerID string
	player  *game.Player
	target  *game.Player
	dst     gamemap.TileRef

	separation gamemap.TileRef
	speed      int
	nuke       *game.Unit
	path       *pathfind.ParabolaPathFinder
	rand       *prng.Random
	active     bool
}

func NewMIRVExecution(ownerID string, dst gamemap.TileRef) *MIRVExecution {
	return &MIRVExecution{ownerID: ownerID, dst: dst, active: true}
}

func (e *MIRVExecution) Init(g *game.Game, ticks game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "mirv", e.ownerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
	e.target = g.Owner(e.dst)
	e.speed = g.Config().DefaultNukeSpeed()
	e.path = pathfind.NewParabola(g.Map())
	e.rand = prng.New(int64(ticks) + 7)
}

func (e *MIRVExecution) Tick(game.Tick) {
	if e.nuke == nil {
		e.launch()
		return
	}
	if !e.nuke.IsActive() {
		e.active = false
		return
	}
	next, arrived := e.path.NextTile(e.speed)
	if arrived {
		e.separate()
		e.active = false
		return
	}
	e.nuke.Move(next)
}

func (e *MIRVExecution) launch() {
	spawn, ok := e.player.CanBuild(game.MIRV, e.dst)
	if !ok {
		warn(e.g, "cannot build MIRV", logging.String("player", e.ownerID))
		e.active = false
		return
	}
	gm := e.g.Map()
	e.separation = gm.Ref(gm.X(e.dst), max(0, gm.Y(e.dst)-mirvSeparationHeight))
	e.path.ComputeControlPoints(spawn, e.separation, true)
	e.nuke = e.player.BuildUnit(game.MIRV, spawn, game.UnitParams{TargetTile: e.dst})
	e.g.Stats().BombLaunch(e.player.ID(), e.target.ID(), game.MIRV)
	for _, silo := range e.player.Units(game.MissileSilo) {
		if silo.Tile() == spawn {
			silo.Launch()
			break
		}
	}
	if e.target == nil {
		return
	}
	e.g.DisplayIncomingUnit(e.nuke.ID(), fmt.Sprintf("%s - MIRV inbound", e.player.Name()),
		game.MsgMIRVInbound, e.target.ID())
	if a := e.player.AllianceWith(e.target); a != nil {
		e.player.BreakAlliance(a)
	}
	if e.target != e.player {
		e.target.UpdateRelation(e.player, -100)
	}
}

// separate replaces the carrier with warheads, nearest to the aim point first.
func (e *MIRVExecution) separate() {
	gm := e.g.Map()
	dsts := []gamemap.TileRef{e.dst}
	for tries := mirvPlacementTries; tries > 0 && len(dsts) < e.g.Config().MIRVWarheadCount(); tries-- {
		if t, ok := e.randomLand(dsts); ok {
			dsts = append(dsts, t)
		}
	}
	slices.SortStableFunc(dsts, func(a, b gamemap.TileRef) int {
		return gm.ManhattanDist(a, e.dst) - gm.ManhattanDist(b, e.dst)
	})
	from := e.nuke.Tile()
	for i, d := range dsts {
		speed := 15 + i*5/len(dsts)
		e.g.AddExecution(newNukeExecution(game.MIRVWarhead, e.ownerID, d, from, speed, e.rand.NextInt(0, 15)))
	}
	e.nuke.Delete(false, nil)
}

func (e *MIRVExecution) randomLand(taken []gamemap.TileRef) (gamemap.TileRef, bool) {
	gm := e.g.Map()
	x, y := gm.X(e.dst), gm.Y(e.dst)
	spread := e.g.Config().MIRVSpread()
	nx := e.rand.NextInt(x-mirvSearchRange, x+mirvSearchRange)
	ny := e.rand.NextInt(y-mirvSearchRange, y+mirvSearchRange)
	if !gm.IsValidCoord(nx, ny) {
		return gamemap.NoTile, false
	}
	t := gm.Ref(nx, ny)
	if !gm.IsLand(t) || gm.ManhattanDist(t, e.dst) > mirvSearchRange || e.g.Owner(t) != e.target {
		return gamemap.NoTile, false
	}
	for _, other := range taken {
		if gm.ManhattanDist(other, t) < spread {
			return gamemap.NoTile, false
		}
	}
	return t, true
}

func (e *MIRVExecution) IsActive() bool               { return e.active }
func (e *MIRVExecution) ActiveDuringSpawnPhase() bool { return false }
