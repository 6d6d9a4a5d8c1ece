package execution

import (
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/pathfind"
	"openfront/engine/internal/prng"
)

const (
	warshipPatrolTries  = 500
	warshipCaptureRange = 5
	shellStepsPerTick   = 3
)

var warshipTargetTypes = []game.UnitType{game.TransportShip, game.Warship, game.TradeShip}

// WarshipExecution patrols around its patrol tile, shells hostile ships and captures
// trade ships that are no longer under coastal protection.
type WarshipExecution struct {
	g          *game.Game
	ownerID    string
	patrolTile gamemap.TileRef
	warship    *game.Unit
	path       *pathfind.PathFinder
	rand       *prng.Random
	target     *game.Unit
	moveTarget gamemap.TileRef
	lastShell  game.Tick
	active     bool
}

func NewWarshipExecution(ownerID string, patrolTile gamemap.TileRef) *WarshipExecution {
	return &WarshipExecution{ownerID: ownerID, patrolTile: patrolTile, moveTarget: gamemap.NoTile, lastShell: -1, active: true}
}

func (e *WarshipExecution) Init(g *game.Game, ticks game.Tick) {
	e.g = g
	e.path = pathfind.Mini(g.Map(), 5000)
	e.rand = prng.New(int64(ticks))
}

// Warship is nil until launched.
func (e *WarshipExecution) Warship() *game.Unit { return e.warship }

func (e *WarshipExecution) Tick(ticks game.Tick) {
	if e.warship == nil {
		player, ok := lookupPlayer(e.g, "warship", e.ownerID)
		if !ok {
			e.active = false
			return
		}
		spawn, ok := player.CanBuild(game.Warship, e.patrolTile)
		if !ok {
			warn(e.g, "cannot build warship", logging.String("player", e.ownerID))
			e.active = false
			return
		}
		e.warship = player.BuildUnit(game.Warship, spawn, game.UnitParams{PatrolTile: e.patrolTile})
		return
	}
	if !e.warship.IsActive() {
		e.active = false
		return
	}
	if e.warship.Health() <= 0 {
		e.warship.Delete(true, nil)
		e.active = false
		return
	}

	e.target = e.findTarget()
	switch {
	case e.target == nil:
		e.warship.SetTargetUnit(nil)
		e.patrol()
	case e.target.Type() == game.TradeShip:
		e.warship.SetTargetUnit(e.target)
		e.hunt()
	default:
		e.warship.SetTargetUnit(e.target)
		e.shoot(ticks)
		e.patrol()
	}
}

// findTarget orders candidates transport ships first, then warships, then trade ships,
// nearest first within each kind.
func (e *WarshipExecution) findTarget() *game.Unit {
	owner := e.warship.Owner()
	hasPort := owner.UnitCount(game.Port) > 0
	nearby := e.g.NearbyUnits(e.warship.Tile(), e.g.Config().WarshipTargetRange(), warshipTargetTypes,
		func(u *game.Unit) bool {
			if u == e.warship || u.Owner() == owner || owner.IsFriendly(u.Owner()) {
				return false
			}
			if u.Type() != game.TradeShip {
				return true
			}
			dst := u.TargetUnit()
			return hasPort && !u.IsSafeFromPirates() && (dst == nil || dst.Owner() != owner)
		})
	for _, t := range warshipTargetTypes {
		for _, n := range nearby {
			if n.Unit.Type() == t {
				return n.Unit
			}
		}
	}
	return nil
}

func (e *WarshipExecution) shoot(ticks game.Tick) {
	if e.lastShell >= 0 && ticks-e.lastShell <= e.g.Config().WarshipShellAttackRate() {
		return
	}
	e.lastShell = ticks
	e.g.AddExecution(NewShellExecution(e.warship.Tile(), e.warship.Owner().ID(), e.warship, e.target))
}

// hunt chases a trade ship and captures it once in range.
func (e *WarshipExecution) hunt() {
	for range 2 {
		step := e.path.NextTile(e.warship.Tile(), e.target.Tile(), warshipCaptureRange)
		switch step.Result {
		case pathfind.Completed:
			e.warship.Owner().CaptureUnit(e.target)
			e.target = nil
			e.warship.SetTargetUnit(nil)
			e.warship.Move(e.warship.Tile())
			return
		case pathfind.NextTile:
			e.warship.Move(step.Tile)
		case pathfind.Pending:
			e.warship.Move(e.warship.Tile())
			return
		case pathfind.PathNotFound:
			warn(e.g, "warship cannot reach trade ship", logging.Int("unit", e.warship.ID()))
			return
		}
	}
}

func (e *WarshipExecution) patrol() {
	if e.moveTarget == gamemap.NoTile {
		e.moveTarget = e.randomPatrolTile()
		if e.moveTarget == gamemap.NoTile {
			return
		}
	}
	step := e.path.NextTile(e.warship.Tile(), e.moveTarget, 1)
	switch step.Result {
	case pathfind.Completed:
		e.moveTarget = gamemap.NoTile
		e.warship.Move(e.warship.Tile())
	case pathfind.NextTile:
		e.warship.Move(step.Tile)
	case pathfind.Pending:
		e.warship.Move(e.warship.Tile())
	case pathfind.PathNotFound:
		e.moveTarget = gamemap.NoTile
	}
}

// randomPatrolTile picks an ocean tile within the patrol range of the patrol tile.
func (e *WarshipExecution) randomPatrolTile() gamemap.TileRef {
	gm := e.g.Map()
	r := e.g.Config().WarshipPatrolRange() / 2
	x, y := gm.X(e.warship.PatrolTile()), gm.Y(e.warship.PatrolTile())
	for range warshipPatrolTries {
		nx := e.rand.NextInt(x-r, x+r+1)
		ny := e.rand.NextInt(y-r, y+r+1)
		if !gm.IsValidCoord(nx, ny) {
			continue
		}
		t := gm.Ref(nx, ny)
		if gm.IsOcean(t) && !gm.IsShoreline(t) {
			return t
		}
	}
	return gamemap.NoTile
}

func (e *WarshipExecution) IsActive() bool               { return e.active }
func (e *WarshipExecution) ActiveDuringSpawnPhase() bool { return false }

// ShellExecution flies a shell from a warship to its target and applies the shell's
// damage on contact.
type ShellExecution struct {
	g         *game.Game
	spawn     gamemap.TileRef
	ownerID   string
	ownerUnit *game.Unit
	target    *game.Unit
	shell     *game.Unit
	path      *pathfind.PathFinder
	active    bool
}

func NewShellExecution(spawn gamemap.TileRef, ownerID string, ownerUnit, target *game.Unit) *ShellExecution {
	return &ShellExecution{spawn: spawn, ownerID: ownerID, ownerUnit: ownerUnit, target: target, active: true}
}

func (e *ShellExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	e.path = pathfind.New(g.Map(), 2000, true, 10)
}

func (e *ShellExecution) Tick(game.Tick) {
	if e.shell == nil {
		owner, ok := lookupPlayer(e.g, "shell", e.ownerID)
		if !ok {
			e.active = false
			return
		}
		e.shell = owner.BuildUnit(game.Shell, e.spawn, game.UnitParams{})
	}
	if !e.shell.IsActive() {
		e.active = false
		return
	}
	if !e.target.IsActive() || !e.ownerUnit.IsActive() || e.target.Owner() == e.shell.Owner() {
		e.shell.Delete(false, nil)
		e.active = false
		return
	}
	for range shellStepsPerTick {
		step := e.path.NextTile(e.shell.Tile(), e.target.Tile(), 3)
		switch step.Result {
		case pathfind.Completed:
			e.active = false
			e.target.ModifyHealth(-e.shell.Info().Damage, e.shell.Owner())
			e.shell.Delete(false, nil)
			if e.target.IsActive() && e.target.Health() == 0 {
				e.target.Delete(true, e.shell.Owner())
			}
			return
		case pathfind.NextTile:
			e.shell.Move(step.Tile)
		case pathfind.Pending:
			return
		case pathfind.PathNotFound:
			e.g.Logger().Debug("shell lost its target", logging.Int("unit", e.shell.ID()))
			e.active = false
			e.shell.Delete(false, nil)
			return
		}
	}
}

func (e *ShellExecution) IsActive() bool               { return e.active }
func (e *ShellExecution) ActiveDuringSpawnPhase() bool { return false }
