package execution

import (
	"slices"
	"testing"

	"openfront/engine/internal/config"
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
)

func instantBuild(b *config.Balance) {
	b.InstantBuild = true
	b.InfiniteGold = true
}

func TestSiloLaunchesAtomBomb(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(10, 10), instantBuild)
	gm := g.Map()
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	conquerRect(attacker, gm, 0, 0, 9, 9)

	g.AddExecution(NewConstructionExecution(attacker.ID(), gm.Ref(1, 1), game.MissileSilo))
	runTicks(g, 2)
	if attacker.UnitCount(game.MissileSilo) != 1 {
		t.Fatalf("expected an instantly built silo")
	}
	silo := attacker.Units(game.MissileSilo)[0]

	g.AddExecution(NewNukeExecution(game.AtomBomb, attacker.ID(), gm.Ref(7, 7)))
	g.ExecuteNextTick()
	if n := len(g.Units(game.AtomBomb)); n != 1 {
		t.Fatalf("expected one bomb in flight, got %d", n)
	}
	if !silo.IsInCooldown() {
		t.Fatalf("expected the silo to be reloading after launch")
	}
	if got := g.Stats().PlayerStats(attacker.ID()).Bombs[game.AtomBomb.String()][game.BombLaunched]; got != 1 {
		t.Fatalf("expected one launch in stats, got %d", got)
	}

	runTicks(g, 3)
	if n := len(g.Units(game.AtomBomb)); n != 0 {
		t.Fatalf("expected the bomb to have landed, %d still flying", n)
	}
	if g.Owner(gm.Ref(7, 7)) != nil {
		t.Fatalf("expected the aim point to be burned")
	}
}

func TestNukeWithoutSiloIsDropped(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(10, 10), instantBuild)
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	conquerRect(attacker, g.Map(), 0, 0, 9, 9)

	nuke := NewNukeExecution(game.AtomBomb, attacker.ID(), g.Map().Ref(7, 7))
	g.AddExecution(nuke)
	g.ExecuteNextTick()
	if nuke.IsActive() || nuke.Nuke() != nil {
		t.Fatalf("expected the launch to fail without a silo")
	}
}

func TestSiloReloadsAfterCooldown(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(10, 10), func(b *config.Balance) {
		instantBuild(b)
		b.SiloCooldown = 5
	})
	p := addTestPlayer(t, g, "alpha", game.PlayerHuman)
	conquerRect(p, g.Map(), 0, 0, 9, 9)

	exec := NewMissileSiloExecution(p.ID(), g.Map().Ref(3, 3))
	g.AddExecution(exec)
	g.ExecuteNextTick()
	silo := exec.Silo()
	if silo == nil {
		t.Fatalf("expected the silo to be built")
	}
	silo.Launch()
	if !silo.IsInCooldown() {
		t.Fatalf("expected the silo to be in cooldown after launch")
	}
	runTicks(g, 4)
	if !silo.IsInCooldown() {
		t.Fatalf("expected the silo to still be reloading")
	}
	runTicks(g, 2)
	if silo.IsInCooldown() {
		t.Fatalf("expected the silo to be ready again")
	}
}

func TestAtomBombBlastRadius(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(40, 40), instantBuild)
	gm := g.Map()
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	defender := addTestPlayer(t, g, "defender", game.PlayerHuman)
	conquerRect(attacker, gm, 0, 0, 4, 39)
	conquerRect(defender, gm, 5, 0, 39, 39)

	attacker.CreateAllianceRequest(defender)
	defender.IncomingAllianceRequests()[0].Accept()

	g.AddExecution(NewMissileSiloExecution(attacker.ID(), gm.Ref(1, 1)))
	g.ExecuteNextTick()
	target := gm.Ref(30, 30)
	g.AddExecution(NewNukeExecution(game.AtomBomb, attacker.ID(), target))
	g.ExecuteNextTick()

	if attacker.IsAlliedWith(defender) {
		t.Fatalf("expected the launch to break the alliance")
	}
	if !attacker.IsTraitor() {
		t.Fatalf("expected the launcher to be marked a traitor")
	}
	if got := defender.RelationScore(attacker); got != -100 {
		t.Fatalf("expected the defender relation to drop to -100, got %d", got)
	}

	runUntil(t, g, 60, func() bool { return len(g.Units(game.AtomBomb)) == 0 })

	for _, tile := range []gamemap.TileRef{target, gm.Ref(20, 30), gm.Ref(30, 19), gm.Ref(38, 38)} {
		if g.Owner(tile) != nil {
			t.Fatalf("expected tile (%d,%d) inside the inner radius to be burned", gm.X(tile), gm.Y(tile))
		}
		if !gm.HasFallout(tile) {
			t.Fatalf("expected fallout at (%d,%d)", gm.X(tile), gm.Y(tile))
		}
	}
	if g.Owner(gm.Ref(5, 0)) != defender {
		t.Fatalf("expected land beyond the outer radius to survive")
	}
	if got := g.Stats().PlayerStats(attacker.ID()).Bombs[game.AtomBomb.String()][game.BombLanded]; got != 1 {
		t.Fatalf("expected one landing in stats, got %d", got)
	}
}

func TestSAMInterceptsAtomBomb(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(40, 40), instantBuild)
	gm := g.Map()
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	defender := addTestPlayer(t, g, "defender", game.PlayerHuman)
	conquerRect(attacker, gm, 0, 0, 4, 39)
	conquerRect(defender, gm, 5, 0, 39, 39)

	sam := NewSAMLauncherExecution(defender.ID(), gm.Ref(30, 30))
	g.AddExecution(sam, NewMissileSiloExecution(attacker.ID(), gm.Ref(1, 1)))
	g.ExecuteNextTick()
	if sam.SAM() == nil {
		t.Fatalf("expected the SAM launcher to be built")
	}

	g.AddExecution(NewNukeExecution(game.AtomBomb, attacker.ID(), gm.Ref(30, 30)))
	runTicks(g, 2)
	if !sam.SAM().IsInCooldown() {
		t.Fatalf("expected the SAM to fire at the bomb")
	}

	runUntil(t, g, 60, func() bool { return len(g.Units(game.AtomBomb)) == 0 })
	if g.Owner(gm.Ref(30, 30)) != defender {
		t.Fatalf("expected the bomb to be intercepted before landing")
	}
	if n := len(g.Units(game.SAMMissile)); n != 0 {
		t.Fatalf("expected the interceptor to be spent, %d left", n)
	}
	if got := g.Stats().PlayerStats(defender.ID()).Bombs[game.AtomBomb.String()][game.BombIntercepted]; got != 1 {
		t.Fatalf("expected one interception in stats, got %d", got)
	}
}

func TestSAMIgnoresFriendlyBombs(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(40, 40), instantBuild)
	gm := g.Map()
	p := addTestPlayer(t, g, "alpha", game.PlayerHuman)
	conquerRect(p, gm, 0, 0, 39, 39)

	sam := NewSAMLauncherExecution(p.ID(), gm.Ref(30, 30))
	g.AddExecution(sam, NewMissileSiloExecution(p.ID(), gm.Ref(1, 1)))
	g.ExecuteNextTick()
	g.AddExecution(NewNukeExecution(game.AtomBomb, p.ID(), gm.Ref(20, 20)))
	runTicks(g, 3)

	if sam.SAM().IsInCooldown() {
		t.Fatalf("expected the SAM to hold fire on its owner's bomb")
	}
}

func TestMIRVSeparatesIntoWarheads(t *testing.T) {
	g := newTestGame(t, gamemap.NewPlains(60, 60), instantBuild)
	gm := g.Map()
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	defender := addTestPlayer(t, g, "defender", game.PlayerHuman)
	conquerRect(attacker, gm, 0, 0, 4, 59)
	conquerRect(defender, gm, 5, 0, 59, 59)

	g.AddExecution(NewMissileSiloExecution(attacker.ID(), gm.Ref(1, 1)))
	g.ExecuteNextTick()
	g.AddExecution(NewMIRVExecution(attacker.ID(), gm.Ref(40, 40)))

	sawWarheads := false
	runUntil(t, g, 200, func() bool {
		if len(g.Units(game.MIRVWarhead)) > 0 {
			sawWarheads = true
		}
		return sawWarheads && len(g.Units(game.MIRVWarhead)) == 0
	})
	if len(g.Units(game.MIRV)) != 0 {
		t.Fatalf("expected the carrier to be gone after separation")
	}
	if g.Owner(gm.Ref(40, 40)) != nil {
		t.Fatalf("expected a warhead to burn the aim point")
	}
}

func countMessages(updates *game.GameUpdates, t game.MessageType) int {
	n := 0
	for _, u := range updates.Of(game.UpdateDisplayEvent) {
		if msg, ok := u.(game.DisplayMessageUpdate); ok && msg.MessageType == t {
			n++
		}
	}
	return n
}

// newSAMDuel gives the defender most of the map and a launcher at (30,30).
func newSAMDuel(t *testing.T, tune func(*config.Balance)) (*game.Game, *game.Player, *SAMLauncherExecution) {
	t.Helper()
	g := newTestGame(t, gamemap.NewPlains(40, 40), func(b *config.Balance) {
		instantBuild(b)
		if tune != nil {
			tune(b)
		}
	})
	gm := g.Map()
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	defender := addTestPlayer(t, g, "defender", game.PlayerHuman)
	conquerRect(attacker, gm, 0, 0, 4, 39)
	conquerRect(defender, gm, 5, 0, 39, 39)

	sam := NewSAMLauncherExecution(defender.ID(), gm.Ref(30, 30))
	g.AddExecution(sam)
	g.ExecuteNextTick()
	if sam.SAM() == nil {
		t.Fatalf("expected the SAM launcher to be built")
	}
	return g, attacker, sam
}

func TestSAMFiresOncePerCooldown(t *testing.T) {
	const cooldown = 10
	g, attacker, sam := newSAMDuel(t, func(b *config.Balance) {
		b.SAMCooldown = cooldown
		b.SAMHitChance = 1
	})
	gm := g.Map()
	//1.- Parked bombs keep the launcher wanting to fire every tick.
	for i := 0; i < 5; i++ {
		attacker.BuildUnit(game.HydrogenBomb, gm.Ref(33, 33), game.UnitParams{TargetTile: gm.Ref(30, 30)})
	}

	var launches []game.Tick
	timers := map[game.Tick][]game.Tick{}
	for i := 0; i < 70; i++ {
		tick := g.Ticks()
		g.ExecuteNextTick()
		queue := sam.SAM().MissileTimerQueue()
		if len(queue) > 1 {
			t.Fatalf("tick %d: expected at most one spent missile, got %v", tick, queue)
		}
		if len(queue) == 1 && queue[0] == tick {
			launches = append(launches, tick)
		}
		timers[tick] = queue
	}

	if len(launches) != 5 {
		t.Fatalf("expected one launch per bomb, got %v", launches)
	}
	for i := 1; i < len(launches); i++ {
		if gap := launches[i] - launches[i-1]; gap != cooldown {
			t.Fatalf("expected launches %d ticks apart, got %v", cooldown, launches)
		}
	}
	last := launches[len(launches)-1]
	if got := timers[last+cooldown-1]; len(got) != 1 || got[0] != last {
		t.Fatalf("expected the timer to hold until the cooldown ends, got %v", got)
	}
	if got := timers[last+cooldown]; len(got) != 0 {
		t.Fatalf("expected the timer to clear exactly %d ticks after firing, got %v", cooldown, got)
	}
	if sam.SAM().IsInCooldown() {
		t.Fatalf("expected the launcher to be loaded again")
	}
}

func TestSAMInterceptsMIRVWarheads(t *testing.T) {
	g, attacker, sam := newSAMDuel(t, func(b *config.Balance) { b.SAMWarheadHitChance = 1 })
	gm := g.Map()
	first := attacker.BuildUnit(game.MIRVWarhead, gm.Ref(20, 20), game.UnitParams{TargetTile: gm.Ref(31, 31)})
	second := attacker.BuildUnit(game.MIRVWarhead, gm.Ref(22, 20), game.UnitParams{TargetTile: gm.Ref(29, 29)})

	updates := g.ExecuteNextTick()
	if first.IsActive() || second.IsActive() {
		t.Fatalf("expected both warheads to be destroyed")
	}
	if !sam.SAM().IsInCooldown() {
		t.Fatalf("expected one missile to be spent on the salvo")
	}
	if countMessages(updates, game.MsgSAMHit) != 1 {
		t.Fatalf("expected one hit message for the salvo")
	}
	if got := g.Stats().PlayerStats(sam.SAM().Owner().ID()).Bombs[game.MIRVWarhead.String()][game.BombIntercepted]; got != 2 {
		t.Fatalf("expected two warhead interceptions in stats, got %d", got)
	}
}

func TestSAMMissReportsAndSpendsMissile(t *testing.T) {
	g, attacker, sam := newSAMDuel(t, func(b *config.Balance) { b.SAMHitChance = 0 })
	bomb := attacker.BuildUnit(game.HydrogenBomb, g.Map().Ref(33, 33), game.UnitParams{TargetTile: g.Map().Ref(30, 30)})

	updates := g.ExecuteNextTick()
	if countMessages(updates, game.MsgSAMMiss) != 1 {
		t.Fatalf("expected a miss message")
	}
	if !sam.SAM().IsInCooldown() {
		t.Fatalf("expected the missed shot to spend the missile")
	}
	g.ExecuteNextTick()
	if !bomb.IsActive() || bomb.TargetedBySAM() {
		t.Fatalf("expected the bomb to survive untargeted after a miss")
	}
	if n := len(g.Units(game.SAMMissile)); n != 0 {
		t.Fatalf("expected no interceptor in flight after a miss, got %d", n)
	}
}

// blastFootprint fires one atom bomb across a fresh map and returns the burned tiles.
func blastFootprint(t *testing.T) (gamemap.GameMap, gamemap.TileRef, []gamemap.TileRef) {
	t.Helper()
	g := newTestGame(t, gamemap.NewPlains(60, 60), instantBuild)
	gm := g.Map()
	attacker := addTestPlayer(t, g, "attacker", game.PlayerHuman)
	defender := addTestPlayer(t, g, "defender", game.PlayerHuman)
	conquerRect(attacker, gm, 0, 0, 2, 59)
	conquerRect(defender, gm, 3, 0, 59, 59)

	g.AddExecution(NewMissileSiloExecution(attacker.ID(), gm.Ref(1, 1)))
	g.ExecuteNextTick()
	target := gm.Ref(40, 40)
	g.AddExecution(NewNukeExecution(game.AtomBomb, attacker.ID(), target))
	runTicks(g, 2)
	runUntil(t, g, 200, func() bool { return len(g.Units(game.AtomBomb)) == 0 })

	var burned []gamemap.TileRef
	for y := 0; y < gm.Height(); y++ {
		for x := 0; x < gm.Width(); x++ {
			if ref := gm.Ref(x, y); gm.HasFallout(ref) {
				burned = append(burned, ref)
			}
		}
	}
	return gm, target, burned
}

func TestNukeFootprintIsDeterministic(t *testing.T) {
	gm, target, first := blastFootprint(t)
	_, _, second := blastFootprint(t)
	if !slices.Equal(first, second) {
		t.Fatalf("expected identical footprints, got %d and %d tiles", len(first), len(second))
	}

	//1.- The coin-flip band between the radii must have both outcomes.
	magnitude := config.DefaultBalance().AtomBomb
	inner2, outer2 := magnitude.Inner*magnitude.Inner, magnitude.Outer*magnitude.Outer
	burned := make(map[gamemap.TileRef]bool, len(first))
	for _, ref := range first {
		burned[ref] = true
		if d2 := gm.EuclideanDistSquared(target, ref); d2 > outer2 {
			t.Fatalf("tile (%d,%d) burned beyond the outer radius", gm.X(ref), gm.Y(ref))
		}
	}
	var kept, lost int
	for y := 0; y < gm.Height(); y++ {
		for x := 0; x < gm.Width(); x++ {
			ref := gm.Ref(x, y)
			d2 := gm.EuclideanDistSquared(target, ref)
			switch {
			case d2 <= inner2 && !burned[ref]:
				t.Fatalf("tile (%d,%d) inside the inner radius survived", x, y)
			case d2 > inner2 && d2 <= outer2 && burned[ref]:
				lost++
			case d2 > inner2 && d2 <= outer2:
				kept++
			}
		}
	}
	if kept == 0 || lost == 0 {
		t.Fatalf("expected the outer band to be split, kept %d lost %d", kept, lost)
	}
}
