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
	// nukeTargetableRadius is how close to either end of its flight a nuke can be shot.
	nukeTargetableRadius = 120
	// spriteRadius widens the redraw area around a blast.
	spriteRadius = 16
	// allianceBreakingTiles is how many tiles a bomb must destroy to end an alliance.
	allianceBreakingTiles = 100
)

// NukeExecution flies a bomb from a silo along a ballistic arc and detonates it.
// A bomb whose unit is deleted in flight (intercepted) ends without exploding.
type NukeExecution struct {
	g        *game.Game
	nukeType game.UnitType
	ownerID  string
	player   *game.Player
	dst      gamemap.TileRef
	src      gamemap.TileRef
	speed    int
	wait     int

	nuke      *game.Unit
	path      *pathfind.ParabolaPathFinder
	toDestroy []gamemap.TileRef
	active    bool
}

// NewNukeExecution launches from the owner's nearest ready silo at the default speed.
func NewNukeExecution(t game.UnitType, ownerID string, dst gamemap.TileRef) *NukeExecution {
	return newNukeExecution(t, ownerID, dst, gamemap.NoTile, -1, 0)
}

func newNukeExecution(t game.UnitType, ownerID string, dst, src gamemap.TileRef, speed, wait int) *NukeExecution {
	return &NukeExecution{
		nukeType: t,
		ownerID:  ownerID,
		dst:      dst,
		src:      src,
		speed:    speed,
		wait:     wait,
		active:   true,
	}
}

func (e *NukeExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "nuke", e.ownerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
	if e.speed < 0 {
		e.speed = g.Config().DefaultNukeSpeed()
	}
	e.path = pathfind.NewParabola(g.Map())
}

// Target is the current owner of the aim point.
func (e *NukeExecution) Target() *game.Player { return e.g.Owner(e.dst) }

// Nuke is nil until the bomb is built.
func (e *NukeExecution) Nuke() *game.Unit { return e.nuke }

func (e *NukeExecution) Tick(game.Tick) {
	if e.nuke == nil {
		e.launch()
		return
	}
	if !e.nuke.IsActive() {
		e.g.Logger().Debug("nuke destroyed before reaching target", logging.Int("unit", e.nuke.ID()))
		e.active = false
		return
	}
	if e.wait > 0 {
		e.wait--
		return
	}
	next, arrived := e.path.NextTile(e.speed)
	if arrived {
		e.detonate()
		return
	}
	e.updateTargetable()
	e.nuke.Move(next)
}

func (e *NukeExecution) launch() {
	spawn := e.src
	if spawn == gamemap.NoTile {
		var ok bool
		spawn, ok = e.player.CanBuild(e.nukeType, e.dst)
		if !ok {
			warn(e.g, "cannot build nuke", logging.String("player", e.ownerID), logging.String("unit", e.nukeType.String()))
			e.active = false
			return
		}
	}
	e.src = spawn
	e.path.ComputeControlPoints(spawn, e.dst, e.nukeType != game.MIRVWarhead)
	e.nuke = e.player.BuildUnit(e.nukeType, spawn, game.UnitParams{TargetTile: e.dst})

	if target := e.g.Owner(e.dst); target != nil {
		switch e.nukeType {
		case game.AtomBomb:
			e.g.DisplayIncomingUnit(e.nuke.ID(), fmt.Sprintf("%s - atom bomb inbound", e.player.Name()),
				game.MsgNukeInbound, target.ID())
			e.breakAlliances(e.tilesToDestroy())
		case game.HydrogenBomb:
			e.g.DisplayIncomingUnit(e.nuke.ID(), fmt.Sprintf("%s - hydrogen bomb inbound", e.player.Name()),
				game.MsgHydrogenBombInbound, target.ID())
			e.breakAlliances(e.tilesToDestroy())
		}
		e.g.Stats().BombLaunch(e.player.ID(), target.ID(), e.nukeType)
	}

	for _, silo := range e.player.Units(game.MissileSilo) {
		if silo.Tile() == spawn {
			silo.Launch()
			break
		}
	}
}

// tilesToDestroy is a BFS from the aim point: everything inside the inner radius plus a
// coin flip per tile up to the outer radius. The result is computed once.
func (e *NukeExecution) tilesToDestroy() []gamemap.TileRef {
	if e.toDestroy != nil {
		return e.toDestroy
	}
	if e.nuke == nil {
		panic("execution: nuke blast requested before launch")
	}
	magnitude := e.g.Config().NukeMagnitudes(e.nuke.Type())
	rand := prng.New(int64(e.g.Ticks()))
	inner2 := magnitude.Inner * magnitude.Inner
	outer2 := magnitude.Outer * magnitude.Outer
	e.toDestroy = e.g.Map().BFS(e.dst, func(gm gamemap.GameMap, t gamemap.TileRef) bool {
		d2 := gm.EuclideanDistSquared(e.dst, t)
		return d2 <= outer2 && (d2 <= inner2 || rand.Chance(2))
	})
	if e.toDestroy == nil {
		e.toDestroy = []gamemap.TileRef{}
	}
	return e.toDestroy
}

// breakAlliances ends the launcher's alliance with every player losing more than
// allianceBreakingTiles, and sours their relation. Warheads never break alliances.
func (e *NukeExecution) breakAlliances(toDestroy []gamemap.TileRef) {
	if e.nukeType == game.MIRVWarhead {
		return
	}
	hits := make(map[uint16]int)
	for _, t := range toDestroy {
		if id := e.g.Map().OwnerID(t); id != 0 {
			hits[id]++
		}
	}
	ids := make([]uint16, 0, len(hits))
	for id := range hits {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if hits[id] <= allianceBreakingTiles {
			continue
		}
		other := e.g.PlayerBySmallID(id)
		if a := e.player.AllianceWith(other); a != nil {
			e.player.BreakAlliance(a)
		}
		if other != e.player {
			other.UpdateRelation(e.player, -100)
		}
	}
}

func (e *NukeExecution) updateTargetable() {
	r2 := nukeTargetableRadius * nukeTargetableRadius
	gm := e.g.Map()
	tile := e.nuke.Tile()
	e.nuke.SetTargetable(gm.EuclideanDistSquared(tile, e.nuke.TargetTile()) < r2 ||
		gm.EuclideanDistSquared(e.src, tile) < r2)
}

func (e *NukeExecution) detonate() {
	cfg := e.g.Config()
	gm := e.g.Map()
	magnitude := cfg.NukeMagnitudes(e.nuke.Type())
	toDestroy := e.tilesToDestroy()
	e.breakAlliances(toDestroy)

	//1.- Burn the territory and kill in proportion to the share of land lost.
	for _, t := range toDestroy {
		if owner := e.g.Owner(t); owner != nil {
			owner.Relinquish(t)
			tiles := owner.NumTilesOwned()
			owner.RemoveTroops(cfg.NukeDeathFactor(owner.Troops(), tiles))
			owner.RemoveWorkers(cfg.NukeDeathFactor(owner.Workers(), tiles))
			for _, attack := range owner.OutgoingAttacks() {
				attack.SetTroops(attack.Troops() - cfg.NukeDeathFactor(attack.Troops(), tiles))
			}
			for _, boat := range owner.Units(game.TransportShip) {
				boat.SetTroops(boat.Troops() - cfg.NukeDeathFactor(boat.Troops(), tiles))
			}
		}
		if gm.IsLand(t) {
			e.g.SetFallout(t, true)
		}
	}

	//2.- Wreck every non-ballistic unit in the outer radius.
	outer2 := magnitude.Outer * magnitude.Outer
	for _, u := range e.g.Units() {
		if u.Type().IsNuke() || !u.IsActive() {
			continue
		}
		if gm.EuclideanDistSquared(e.dst, u.Tile()) < outer2 {
			u.Delete(true, e.player)
		}
	}

	//3.- Structures near the blast are redrawn even when they survive.
	redraw := magnitude.Outer + spriteRadius
	for _, u := range e.g.Units() {
		if u.Type().IsStructure() && gm.EuclideanDistSquared(e.dst, u.Tile()) < redraw*redraw {
			u.Touch()
		}
	}

	e.active = false
	e.nuke.SetReachedTarget()
	e.nuke.Delete(false, nil)
	e.g.Stats().BombLand(e.player.ID(), e.Target().ID(), e.nuke.Type())
}

func (e *NukeExecution) IsActive() bool               { return e.active }
func (e *NukeExecution) ActiveDuringSpawnPhase() bool { return false }
