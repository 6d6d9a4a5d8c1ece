package bots

import (
	"reflect"
	"testing"

	"openfront/engine/internal/config"
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
)

func newSpawnerGame(t *testing.T) *game.Game {
	t.Helper()
	balance := config.DefaultBalance()
	balance.SpawnPhaseTurns = 4
	return game.New(gamemap.NewPlains(40, 40), game.NewConfig(balance), game.WithLogger(logging.NewTestLogger()))
}

func runTurn(t *testing.T, g *game.Game, queue *intent.Queue) {
	t.Helper()
	turn := queue.NextTurn()
	g.AddExecution(intent.NewExecutor(g, nil).CreateExecutions(turn)...)
	g.ExecuteNextTick()
}

func TestSpawnerFillsTargetPopulation(t *testing.T) {
	g := newSpawnerGame(t)
	queue := intent.NewQueue("game0001")
	spawner := NewSpawner(SpawnerConfig{Target: 3, Seed: 9, Logger: logging.NewTestLogger()}, queue)

	if queued := spawner.Reconcile(g); queued != 3 {
		t.Fatalf("expected 3 bots queued, got %d", queued)
	}
	//1.- Queued bots count toward the target until they join.
	if queued := spawner.Reconcile(g); queued != 0 {
		t.Fatalf("expected nothing queued twice, got %d", queued)
	}
	if snap := spawner.Snapshot(g); snap.Bots != 0 || snap.Queued != 3 {
		t.Fatalf("unexpected snapshot before the spawn turn %+v", snap)
	}
	runTurn(t, g, queue)

	snap := spawner.Snapshot(g)
	if snap.Bots != 3 || snap.Queued != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	for _, p := range g.AllPlayers() {
		if p.Type() != game.PlayerBot || len(p.Tiles()) == 0 {
			t.Fatalf("expected a bot with territory, got %s", p)
		}
	}

	if err := spawner.SetTarget(5); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if queued := spawner.Reconcile(g); queued != 2 {
		t.Fatalf("expected 2 more bots, got %d", queued)
	}
	if err := spawner.SetTarget(-1); err == nil {
		t.Fatalf("expected a negative target to be rejected")
	}
}

func TestSpawnerIdleAfterSpawnPhase(t *testing.T) {
	g := newSpawnerGame(t)
	queue := intent.NewQueue("game0001")
	for i := 0; i < 4; i++ {
		runTurn(t, g, queue)
	}
	spawner := NewSpawner(SpawnerConfig{Target: 2}, queue)
	if queued := spawner.Reconcile(g); queued != 0 || queue.Pending() != 0 {
		t.Fatalf("expected no spawns after the spawn phase, got %d", queued)
	}
}

func TestSpawnerIsSeeded(t *testing.T) {
	first, second := intent.NewQueue("g"), intent.NewQueue("g")
	NewSpawner(SpawnerConfig{Target: 4, Seed: 21}, first).Reconcile(newSpawnerGame(t))
	NewSpawner(SpawnerConfig{Target: 4, Seed: 21}, second).Reconcile(newSpawnerGame(t))
	if a, b := first.NextTurn(), second.NextTurn(); !reflect.DeepEqual(a.Intents, b.Intents) {
		t.Fatalf("expected identical spawn intents for the same seed")
	}
}
