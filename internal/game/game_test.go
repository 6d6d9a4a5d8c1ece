package game

import (
	"errors"
	"math"
	"testing"

	"openfront/engine/internal/config"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
)

func newTestGame(t *testing.T, width, height int, tune func(*config.Balance)) *Game {
	t.Helper()
	balance := config.DefaultBalance()
	balance.SpawnPhaseTurns = 0
	if tune != nil {
		tune(&balance)
	}
	return New(gamemap.NewPlains(width, height), NewConfig(balance), WithLogger(logging.NewTestLogger()))
}

func addTestPlayer(t *testing.T, g *Game, id string, typ PlayerType) *Player {
	t.Helper()
	p, err := g.AddPlayer(PlayerInfo{Name: id, Type: typ, ClientID: "c-" + id, ID: id})
	if err != nil {
		t.Fatalf("add player %s: %v", id, err)
	}
	return p
}

type recordingExecution struct {
	spawnPhase bool
	inits      []Tick
	ticks      []Tick
	stopAfter  int
	active     bool
}

func (e *recordingExecution) Init(_ *Game, ticks Tick) {
	e.inits = append(e.inits, ticks)
	e.active = true
}

func (e *recordingExecution) Tick(ticks Tick) {
	e.ticks = append(e.ticks, ticks)
	if e.stopAfter > 0 && len(e.ticks) >= e.stopAfter {
		e.active = false
	}
}

func (e *recordingExecution) IsActive() bool               { return e.active }
func (e *recordingExecution) ActiveDuringSpawnPhase() bool { return e.spawnPhase }

func TestRemoveGoldAndTroopsClampAtZero(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	p.AddGold(100)
	if removed := p.RemoveGold(250); removed != 100 || p.Gold() != 0 {
		t.Fatalf("expected 100 removed and 0 left, got %d and %d", removed, p.Gold())
	}
	p.SetTroops(40)
	if removed := p.RemoveTroops(70); removed != 40 || p.Troops() != 0 {
		t.Fatalf("expected 40 troops removed, got %d with %d left", removed, p.Troops())
	}
	if removed := p.RemoveTroops(-5); removed != 0 {
		t.Fatalf("negative removal should be a no-op, got %d", removed)
	}
}

func TestAddGoldSaturates(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	p.AddGold(math.MaxInt64 - 10)
	p.AddGold(25)
	if p.Gold() != math.MaxInt64 {
		t.Fatalf("expected gold to saturate, got %d", p.Gold())
	}
	p.AddGold(-5)
	if p.Gold() != math.MaxInt64 {
		t.Fatalf("negative credit should be a no-op, got %d", p.Gold())
	}
}

func TestConquerAndRelinquishKeepOwnerIndexConsistent(t *testing.T) {
	g := newTestGame(t, 5, 5, nil)
	a := addTestPlayer(t, g, "alpha", PlayerHuman)
	b := addTestPlayer(t, g, "bravo", PlayerHuman)
	gm := g.Map()
	tile := gm.Ref(2, 2)

	a.Conquer(tile)
	if g.Owner(tile) != a || !a.OwnsTile(tile) {
		t.Fatalf("expected alpha to own the tile")
	}
	b.Conquer(tile)
	if a.OwnsTile(tile) || a.NumTilesOwned() != 0 {
		t.Fatalf("alpha still holds the tile after bravo conquered it")
	}
	if gm.OwnerID(tile) != b.SmallID() {
		t.Fatalf("owner index says %d, want %d", gm.OwnerID(tile), b.SmallID())
	}
	b.Relinquish(tile)
	if g.Owner(tile) != nil || b.NumTilesOwned() != 0 {
		t.Fatalf("expected TerraNullius after relinquish")
	}
}

func TestRelinquishPanicsForForeignTile(t *testing.T) {
	g := newTestGame(t, 5, 5, nil)
	a := addTestPlayer(t, g, "alpha", PlayerHuman)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	a.Relinquish(g.Map().Ref(1, 1))
}

func TestUnitDeleteTwicePanics(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	p.Conquer(g.Map().Ref(1, 1))
	u := p.BuildUnit(DefensePost, g.Map().Ref(1, 1), UnitParams{})
	u.Delete(false, nil)
	if len(g.Units(DefensePost)) != 0 || len(p.Units()) != 0 {
		t.Fatalf("deleted unit is still registered")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected the second delete to panic")
		}
	}()
	u.Delete(false, nil)
}

func TestModifyHealthClamps(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	u := p.BuildUnit(Warship, g.Map().Ref(1, 1), UnitParams{PatrolTile: g.Map().Ref(1, 1)})
	if u.Health() != 600 {
		t.Fatalf("expected starting health 600, got %d", u.Health())
	}
	u.ModifyHealth(10_000, nil)
	if u.Health() != 1000 {
		t.Fatalf("expected health clamped to 1000, got %d", u.Health())
	}
	u.ModifyHealth(-5_000, p)
	if u.Health() != 0 {
		t.Fatalf("expected health clamped to 0, got %d", u.Health())
	}
}

func TestConstructionTypePanicsOnOtherUnits(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	p.Conquer(g.Map().Ref(1, 1))
	u := p.BuildUnit(City, g.Map().Ref(1, 1), UnitParams{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	u.ConstructionType()
}

func TestClanParsing(t *testing.T) {
	cases := map[string]string{
		"[ABC] Player": "ABC",
		"[abcdef] Too": "",
		"[x] Short":    "",
		"No clan":      "",
		"[MiXeD]rest":  "MiXeD",
	}
	for name, want := range cases {
		if got := (PlayerInfo{Name: name}).Clan(); got != want {
			t.Fatalf("clan of %q: got %q, want %q", name, got, want)
		}
	}
}

func TestBuildableUnitsReportsCityUpgrade(t *testing.T) {
	g := newTestGame(t, 30, 30, func(b *config.Balance) { b.StructureMinDist = 10 })
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	gm := g.Map()
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			p.Conquer(gm.Ref(x, y))
		}
	}
	p.AddGold(1_000_000)
	city := p.BuildUnit(City, gm.Ref(0, 0), UnitParams{})

	var cityEntry, postEntry *BuildableUnit
	units := p.BuildableUnits(gm.Ref(0, 0))
	for i := range units {
		switch units[i].Type {
		case City:
			cityEntry = &units[i]
		case DefensePost:
			postEntry = &units[i]
		}
	}
	if cityEntry == nil || postEntry == nil {
		t.Fatalf("expected city and defense post entries, got %+v", units)
	}
	if cityEntry.CanUpgrade != city.ID() {
		t.Fatalf("expected city upgrade of unit %d, got %d", city.ID(), cityEntry.CanUpgrade)
	}
	if cityEntry.CanBuild != gamemap.NoTile {
		t.Fatalf("a new city must not fit next to the existing one")
	}
	if postEntry.CanUpgrade != 0 {
		t.Fatalf("defense posts are not upgradable, got %d", postEntry.CanUpgrade)
	}
	if spawn, ok := p.CanBuild(CityUpgrade, gm.Ref(2, 2)); !ok || spawn != city.Tile() {
		t.Fatalf("expected city upgrade at the city tile, got %d %v", spawn, ok)
	}
}

func TestStructureCostsScaleWithCount(t *testing.T) {
	g := newTestGame(t, 40, 40, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	info := g.UnitInfo(City)
	if cost := info.Cost(p); cost != 125_000 {
		t.Fatalf("first city should cost 125000, got %d", cost)
	}
	p.Conquer(g.Map().Ref(0, 0))
	p.AddGold(125_000)
	p.BuildUnit(City, g.Map().Ref(0, 0), UnitParams{})
	if p.Gold() != 0 {
		t.Fatalf("expected the build to spend the gold, %d left", p.Gold())
	}
	if cost := info.Cost(p); cost != 250_000 {
		t.Fatalf("second city should cost 250000, got %d", cost)
	}
}

func TestSpawnPhaseGatesExecutions(t *testing.T) {
	g := newTestGame(t, 5, 5, func(b *config.Balance) { b.SpawnPhaseTurns = 2 })
	gated := &recordingExecution{}
	spawner := &recordingExecution{spawnPhase: true, stopAfter: 1}
	g.AddExecution(gated, spawner)

	g.ExecuteNextTick()
	if len(gated.inits) != 0 {
		t.Fatalf("gated execution initialised during the spawn phase")
	}
	if len(spawner.inits) != 1 || len(spawner.ticks) != 1 {
		t.Fatalf("spawn execution should init and tick once, got %v %v", spawner.inits, spawner.ticks)
	}
	g.ExecuteNextTick()
	g.ExecuteNextTick()
	if len(gated.inits) != 1 || gated.inits[0] != 2 {
		t.Fatalf("expected the gated execution to init on tick 2, got %v", gated.inits)
	}
	if len(spawner.ticks) != 1 {
		t.Fatalf("inactive execution kept ticking: %v", spawner.ticks)
	}
	if g.ExecutionCount() != 1 {
		t.Fatalf("expected one live execution, got %d", g.ExecutionCount())
	}
}

func TestExecutionsAddedMidTickStartNextTick(t *testing.T) {
	g := newTestGame(t, 5, 5, nil)
	late := &recordingExecution{}
	g.AddExecution(&spawningExecution{child: late})
	g.ExecuteNextTick()
	if len(late.inits) != 0 {
		t.Fatalf("execution queued mid-tick ran in the same tick")
	}
	g.ExecuteNextTick()
	if len(late.inits) != 1 || late.inits[0] != 1 {
		t.Fatalf("expected init on tick 1, got %v", late.inits)
	}
}

type spawningExecution struct {
	g     *Game
	child Execution
	done  bool
}

func (e *spawningExecution) Init(g *Game, _ Tick) { e.g = g }
func (e *spawningExecution) Tick(Tick) {
	e.g.AddExecution(e.child)
	e.done = true
}
func (e *spawningExecution) IsActive() bool               { return !e.done }
func (e *spawningExecution) ActiveDuringSpawnPhase() bool { return false }

func TestHashUpdatesAreDeterministic(t *testing.T) {
	run := func() []uint64 {
		g := newTestGame(t, 12, 12, nil)
		a := addTestPlayer(t, g, "alpha", PlayerHuman)
		b := addTestPlayer(t, g, "bravo", PlayerBot)
		var hashes []uint64
		for tick := 0; tick < 30; tick++ {
			a.Conquer(g.Map().Ref(tick%12, 0))
			b.Conquer(g.Map().Ref(tick%12, 11))
			updates := g.ExecuteNextTick()
			for _, u := range updates.Of(UpdateHash) {
				hashes = append(hashes, u.(HashUpdate).Hash)
			}
		}
		return hashes
	}
	first, second := run(), run()
	if len(first) != 3 {
		t.Fatalf("expected a hash every 10 ticks, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("hash %d diverged: %x vs %x", i, first[i], second[i])
		}
	}
}

func TestAllianceRequestsAcceptInReverse(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	a := addTestPlayer(t, g, "alpha", PlayerHuman)
	b := addTestPlayer(t, g, "bravo", PlayerHuman)
	a.Conquer(g.Map().Ref(0, 0))
	b.Conquer(g.Map().Ref(9, 9))

	if !a.CanSendAllianceRequest(b) {
		t.Fatalf("expected alpha to be able to ask bravo")
	}
	if r := a.CreateAllianceRequest(b); r == nil {
		t.Fatalf("expected a pending request")
	}
	if a.CanSendAllianceRequest(b) {
		t.Fatalf("a second request must wait for the first")
	}
	if r := b.CreateAllianceRequest(a); r != nil {
		t.Fatalf("a reverse request should accept the pending one")
	}
	if !a.IsAlliedWith(b) || !b.IsFriendly(a) {
		t.Fatalf("expected an alliance")
	}

	a.BreakAlliance(a.AllianceWith(b))
	if a.IsAlliedWith(b) {
		t.Fatalf("alliance survived the break")
	}
	if !a.IsTraitor() || b.IsTraitor() {
		t.Fatalf("expected only the breaker to be a traitor")
	}
	if got := g.Stats().PlayerStats("alpha").Betrayals; got != 1 {
		t.Fatalf("expected one betrayal recorded, got %d", got)
	}
}

func TestRelationsClampAndDecay(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	a := addTestPlayer(t, g, "alpha", PlayerHuman)
	b := addTestPlayer(t, g, "bravo", PlayerHuman)
	a.UpdateRelation(b, -250)
	if a.RelationScore(b) != -100 || a.Relation(b) != Hostile {
		t.Fatalf("expected clamped hostile relation, got %d", a.RelationScore(b))
	}
	a.UpdateRelation(b, 160)
	if a.Relation(b) != Friendly {
		t.Fatalf("expected friendly at %d", a.RelationScore(b))
	}
	a.DecayRelations()
	if a.RelationScore(b) != 59 {
		t.Fatalf("expected decay toward zero, got %d", a.RelationScore(b))
	}
}

func TestDonationsRequireFriendshipAndCooldown(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	a := addTestPlayer(t, g, "alpha", PlayerHuman)
	b := addTestPlayer(t, g, "bravo", PlayerHuman)
	a.Conquer(g.Map().Ref(0, 0))
	b.Conquer(g.Map().Ref(9, 9))
	a.AddGold(500)
	if a.DonateGold(b, 100) {
		t.Fatalf("donation to a stranger should fail")
	}
	a.CreateAllianceRequest(b).Accept()
	if !a.DonateGold(b, 100) || b.Gold() != 100 {
		t.Fatalf("expected the donation to land, bravo has %d", b.Gold())
	}
	if a.DonateGold(b, 100) {
		t.Fatalf("second donation inside the cooldown should fail")
	}
}

func TestEmbargoBlocksTrade(t *testing.T) {
	g := newTestGame(t, 10, 10, nil)
	a := addTestPlayer(t, g, "alpha", PlayerHuman)
	b := addTestPlayer(t, g, "bravo", PlayerHuman)
	a.Conquer(g.Map().Ref(0, 0))
	b.Conquer(g.Map().Ref(9, 9))
	if !b.CanTrade(a) {
		t.Fatalf("expected open trade")
	}
	a.AddEmbargo(b, true)
	if b.CanTrade(a) || len(a.TradingPartners()) != 0 {
		t.Fatalf("embargo should block trade both ways")
	}
	a.AddEmbargo(b, false)
	a.EndTemporaryEmbargo(b)
	if !a.HasEmbargoAgainst(b) {
		t.Fatalf("a permanent embargo must survive EndTemporaryEmbargo")
	}
	a.StopEmbargo(b)
	if !a.CanTrade(b) {
		t.Fatalf("expected trade after lifting the embargo")
	}
}

func TestPlayerLookupReportsNotFound(t *testing.T) {
	g := newTestGame(t, 5, 5, nil)
	if _, err := g.Player("ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	addTestPlayer(t, g, "alpha", PlayerHuman)
	if _, err := g.AddPlayer(PlayerInfo{ID: "alpha"}); err == nil {
		t.Fatalf("expected duplicate IDs to be rejected")
	}
	var tn *Player
	if tn.SmallID() != 0 || tn.Name() != "TerraNullius" {
		t.Fatalf("nil player should read as TerraNullius")
	}
}

func TestNearbyUnitsSortedByDistanceThenID(t *testing.T) {
	g := newTestGame(t, 20, 20, nil)
	p := addTestPlayer(t, g, "alpha", PlayerHuman)
	gm := g.Map()
	far := p.BuildUnit(Warship, gm.Ref(5, 5), UnitParams{})
	nearA := p.BuildUnit(Warship, gm.Ref(1, 0), UnitParams{})
	nearB := p.BuildUnit(Warship, gm.Ref(0, 1), UnitParams{})
	got := g.NearbyUnits(gm.Ref(0, 0), 10, []UnitType{Warship}, nil)
	if len(got) != 3 {
		t.Fatalf("expected three units, got %d", len(got))
	}
	if got[0].Unit != nearA || got[1].Unit != nearB || got[2].Unit != far {
		t.Fatalf("unexpected order: %v %v %v", got[0].Unit, got[1].Unit, got[2].Unit)
	}
}
