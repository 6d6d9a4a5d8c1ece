package execution

import (
	"fmt"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/pathfind"
	"openfront/engine/internal/prng"
)

const (
	samSearchRadius = 80
	// Warheads are fast, so they are tracked from far away but only engaged when they
	// would land close to the launcher.
	mirvWarheadSearchRadius     = 400
	mirvWarheadProtectionRadius = 50
	samMissileSpeed             = 12
)

// SAMLauncherExecution builds a launcher and shoots down hostile bombs in range.
type SAMLauncherExecution struct {
	g       *game.Game
	ownerID string
	player  *game.Player
	tile    gamemap.TileRef
	sam     *game.Unit
	rand    *prng.Random
	active  bool
}

func NewSAMLauncherExecution(ownerID string, tile gamemap.TileRef) *SAMLauncherExecution {
	return &SAMLauncherExecution{ownerID: ownerID, tile: tile, active: true}
}

// NewSAMLauncherExecutionFor drives an existing launcher.
func NewSAMLauncherExecutionFor(sam *game.Unit) *SAMLauncherExecution {
	return &SAMLauncherExecution{ownerID: sam.Owner().ID(), tile: sam.Tile(), sam: sam, active: true}
}

func (e *SAMLauncherExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "sam launcher", e.ownerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
}

// SAM is nil until the launcher is built.
func (e *SAMLauncherExecution) SAM() *game.Unit { return e.sam }

func (e *SAMLauncherExecution) hostile(u *game.Unit) bool {
	return u.Owner() != e.player && !e.player.IsFriendly(u.Owner())
}

// singleTarget prefers hydrogen bombs, then the nearest bomb.
func (e *SAMLauncherExecution) singleTarget() *game.Unit {
	nukes := e.g.NearbyUnits(e.sam.Tile(), samSearchRadius, []game.UnitType{game.AtomBomb, game.HydrogenBomb}, e.hostile)
	var best *game.UnitDistance
	for i := range nukes {
		n := &nukes[i]
		switch {
		case best == nil:
			best = n
		case n.Unit.Type() == game.HydrogenBomb && best.Unit.Type() != game.HydrogenBomb:
			best = n
		}
	}
	if best == nil {
		return nil
	}
	return best.Unit
}

func (e *SAMLauncherExecution) isHit(t game.UnitType, roll float64) bool {
	switch t {
	case game.AtomBomb:
		return true
	case game.MIRVWarhead:
		return roll < e.g.Config().SAMWarheadHitChance()
	}
	return roll < e.g.Config().SAMHitChance()
}

func (e *SAMLauncherExecution) Tick(game.Tick) {
	if e.sam == nil {
		spawn, ok := e.player.CanBuild(game.SAMLauncher, e.tile)
		if !ok {
			warn(e.g, "cannot build SAM launcher", logging.String("player", e.ownerID))
			e.active = false
			return
		}
		e.sam = e.player.BuildUnit(game.SAMLauncher, spawn, game.UnitParams{})
	}
	if !e.sam.IsActive() {
		e.active = false
		return
	}
	e.player = e.sam.Owner()
	if e.rand == nil {
		e.rand = prng.New(int64(e.sam.ID()))
	}

	//1.- Reload every missile whose cooldown has elapsed.
	cooldown := e.g.Config().SAMCooldown()
	for len(e.sam.MissileTimerQueue()) > 0 && e.sam.TicksLeftInCooldown(cooldown) == 0 {
		e.sam.ReloadMissile()
	}

	//2.- Warheads about to land nearby take priority over single bombs.
	gm := e.g.Map()
	samTile := e.sam.Tile()
	warheads := e.g.NearbyUnits(samTile, mirvWarheadSearchRadius, []game.UnitType{game.MIRVWarhead},
		func(u *game.Unit) bool {
			return e.hostile(u) && gm.ManhattanDist(u.TargetTile(), samTile) < mirvWarheadProtectionRadius
		})
	var target *game.Unit
	if len(warheads) == 0 {
		target = e.singleTarget()
	}
	engage := len(warheads) > 0 || (target != nil && !target.TargetedBySAM())
	if !engage || e.sam.IsInCooldown() {
		return
	}

	//3.- Fire. A miss still spends the missile.
	e.sam.Launch()
	t := game.MIRVWarhead
	if len(warheads) == 0 {
		t = target.Type()
	}
	if !e.isHit(t, e.rand.Next()) {
		e.g.DisplayMessage(fmt.Sprintf("Missile failed to intercept %s", t), game.MsgSAMMiss, e.player.ID(), 0)
		return
	}
	if len(warheads) > 0 {
		e.g.DisplayMessage(fmt.Sprintf("%d MIRV warheads intercepted", len(warheads)), game.MsgSAMHit, e.player.ID(), 0)
		for _, w := range warheads {
			e.g.Stats().BombIntercept(w.Unit.Owner().ID(), e.player.ID(), game.MIRVWarhead)
			w.Unit.Delete(true, e.player)
		}
		return
	}
	target.SetTargetedBySAM(true)
	e.g.AddExecution(NewSAMMissileExecution(samTile, e.player.ID(), e.sam, target))
}

func (e *SAMLauncherExecution) IsActive() bool               { return e.active }
func (e *SAMLauncherExecution) ActiveDuringSpawnPhase() bool { return false }

// SAMMissileExecution flies an interceptor straight at a bomb and destroys it on contact.
type SAMMissileExecution struct {
	g       *game.Game
	spawn   gamemap.TileRef
	ownerID string
	sam     *game.Unit
	target  *game.Unit
	missile *game.Unit
	active  bool
}

func NewSAMMissileExecution(spawn gamemap.TileRef, ownerID string, sam, target *game.Unit) *SAMMissileExecution {
	return &SAMMissileExecution{spawn: spawn, ownerID: ownerID, sam: sam, target: target, active: true}
}

func (e *SAMMissileExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

func (e *SAMMissileExecution) Tick(game.Tick) {
	if e.missile == nil {
		owner, ok := lookupPlayer(e.g, "sam missile", e.ownerID)
		if !ok {
			e.active = false
			return
		}
		e.missile = owner.BuildUnit(game.SAMMissile, e.spawn, game.UnitParams{})
	}
	if !e.missile.IsActive() {
		e.active = false
		return
	}
	if !e.target.IsActive() || e.target.Owner() == e.missile.Owner() {
		e.missile.Delete(false, nil)
		e.active = false
		return
	}
	gm := e.g.Map()
	for i := 0; i < samMissileSpeed; i++ {
		if e.missile.Tile() == e.target.Tile() {
			owner := e.missile.Owner()
			e.g.DisplayMessage(fmt.Sprintf("Missile intercepted %s", e.target.Type()), game.MsgSAMHit, owner.ID(), 0)
			e.g.Stats().BombIntercept(e.target.Owner().ID(), owner.ID(), e.target.Type())
			e.target.Delete(true, owner)
			e.missile.Delete(false, nil)
			e.active = false
			return
		}
		e.missile.Move(pathfind.StepToward(gm, e.missile.Tile(), e.target.Tile()))
	}
}

func (e *SAMMissileExecution) IsActive() bool               { return e.active }
func (e *SAMMissileExecution) ActiveDuringSpawnPhase() bool { return false }

// MissileSiloExecution builds a silo and reloads its missiles as cooldowns elapse.
type MissileSiloExecution struct {
	g       *game.Game
	ownerID string
	tile    gamemap.TileRef
	silo    *game.Unit
	active  bool
}

func NewMissileSiloExecution(ownerID string, tile gamemap.TileRef) *MissileSiloExecution {
	return &MissileSiloExecution{ownerID: ownerID, tile: tile, active: true}
}

func (e *MissileSiloExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

// Silo is nil until built.
func (e *MissileSiloExecution) Silo() *game.Unit { return e.silo }

func (e *MissileSiloExecution) Tick(game.Tick) {
	if e.silo == nil {
		player, ok := lookupPlayer(e.g, "missile silo", e.ownerID)
		if !ok {
			e.active = false
			return
		}
		spawn, ok := player.CanBuild(game.MissileSilo, e.tile)
		if !ok {
			warn(e.g, "cannot build missile silo", logging.String("player", e.ownerID))
			e.active = false
			return
		}
		e.silo = player.BuildUnit(game.MissileSilo, spawn, game.UnitParams{})
	}
	if !e.silo.IsActive() {
		e.active = false
		return
	}
	cooldown := e.g.Config().SiloCooldown()
	for len(e.silo.MissileTimerQueue()) > 0 && e.silo.TicksLeftInCooldown(cooldown) == 0 {
		e.silo.ReloadMissile()
	}
}

func (e *MissileSiloExecution) IsActive() bool               { return e.active }
func (e *MissileSiloExecution) ActiveDuringSpawnPhase() bool { return false }
