package simulation

import (
	"bytes"
	"errors"
	"testing"

	"openfront/engine/internal/config"
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/wire"
)

func newTestRunner(t *testing.T, opts ...RunnerOption) *Runner {
	t.Helper()
	balance := config.DefaultBalance()
	balance.SpawnPhaseTurns = 3
	g := game.New(gamemap.NewPlains(32, 32), game.NewConfig(balance), game.WithLogger(logging.NewTestLogger()), game.WithSeed(11))
	return NewRunner(g, opts...)
}

type recordingSink struct {
	turns  []intent.Turn
	frames map[uint64][]byte
}

func (s *recordingSink) AppendTurn(turn intent.Turn) error {
	s.turns = append(s.turns, turn)
	return nil
}

func (s *recordingSink) AppendFrame(tick uint64, payload []byte) error {
	if s.frames == nil {
		s.frames = make(map[uint64][]byte)
	}
	s.frames[tick] = payload
	return nil
}

type panickingExecution struct{}

func (panickingExecution) Init(*game.Game, game.Tick) { panic("broken invariant") }
func (panickingExecution) Tick(game.Tick)               {}
func (panickingExecution) IsActive() bool               { return true }
func (panickingExecution) ActiveDuringSpawnPhase() bool { return true }

func spawnTurn(number int) intent.Turn {
	return intent.Turn{TurnNumber: number, GameID: "game0001", Intents: []intent.Intent{
		{Type: intent.TypeSpawn, ClientID: "client01", PlayerID: "player01", Name: "river", PlayerType: "HUMAN", X: 6, Y: 6},
		{Type: intent.TypeSpawn, ClientID: "client02", PlayerID: "player02", Name: "delta", PlayerType: "HUMAN", X: 24, Y: 24},
		{Type: intent.TypeSpawn, PlayerID: "botbot01", Name: "bot", PlayerType: "BOT", X: 6, Y: 24},
	}}
}

// scriptedTurns spawns three players and has the humans attack the wilderness.
func scriptedTurns(count int) []intent.Turn {
	troops := int64(200)
	turns := make([]intent.Turn, count)
	for i := range turns {
		turns[i] = intent.Turn{TurnNumber: i, GameID: "game0001", Intents: []intent.Intent{}}
	}
	turns[0] = spawnTurn(0)
	turns[5].Intents = append(turns[5].Intents,
		intent.Intent{Type: intent.TypeAttack, ClientID: "client01", PlayerID: "player01", Troops: &troops},
		intent.Intent{Type: intent.TypeTroopRatio, ClientID: "client02", PlayerID: "player02", Ratio: 0.4},
	)
	turns[9].Intents = append(turns[9].Intents,
		intent.Intent{Type: intent.TypeAttack, ClientID: "client02", PlayerID: "player02", Troops: &troops},
	)
	return turns
}

func TestRunnerExecutesTurnsAndFansOut(t *testing.T) {
	sink := &recordingSink{}
	runner := newTestRunner(t, WithTurnSinks(sink), WithFrameSinks(sink))

	for _, turn := range scriptedTurns(12) {
		result, err := runner.ExecuteTurn(turn)
		if err != nil {
			t.Fatalf("ExecuteTurn %d: %v", turn.TurnNumber, err)
		}
		if result.Tick != turn.TurnNumber {
			t.Fatalf("expected tick %d, got %d", turn.TurnNumber, result.Tick)
		}
		if !bytes.Equal(sink.frames[uint64(turn.TurnNumber)], result.Frame) {
			t.Fatalf("frame sink missed tick %d", turn.TurnNumber)
		}
	}
	if len(sink.turns) != 12 {
		t.Fatalf("expected 12 recorded turns, got %d", len(sink.turns))
	}
	if !runner.Game().HasPlayer("player01") || !runner.Game().HasPlayer("botbot01") {
		t.Fatalf("expected spawned players")
	}
	hashes, err := wire.DecodeHashes(sink.frames[10])
	if err != nil || len(hashes) != 1 || hashes[0].Tick != 10 {
		t.Fatalf("expected a hash record at tick 10, got %+v (%v)", hashes, err)
	}
	if snap := runner.Monitor().Snapshot(); snap.Samples == 0 || snap.MaxUpdates == 0 {
		t.Fatalf("expected the monitor to observe turns, got %+v", snap)
	}
}

func TestRunnerRejectsOutOfOrderTurns(t *testing.T) {
	runner := newTestRunner(t)
	if _, err := runner.ExecuteTurn(intent.Turn{TurnNumber: 3}); !errors.Is(err, ErrTurnOutOfOrder) {
		t.Fatalf("expected ErrTurnOutOfOrder, got %v", err)
	}
	if _, err := runner.ExecuteTurn(intent.Turn{TurnNumber: 0}); err != nil {
		t.Fatalf("expected turn 0 to run: %v", err)
	}
}

func TestRunnerConvertsPanicsAndHalts(t *testing.T) {
	runner := newTestRunner(t)
	runner.Game().AddExecution(panickingExecution{})

	_, err := runner.ExecuteTurn(intent.Turn{TurnNumber: 0})
	var invariant *InvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("expected an InvariantError, got %v", err)
	}
	if invariant.Tick != 0 || invariant.Value != "broken invariant" || len(invariant.Stack) == 0 {
		t.Fatalf("unexpected invariant error %+v", invariant)
	}
	if _, err := runner.ExecuteTurn(intent.Turn{TurnNumber: 1}); !errors.As(err, &invariant) {
		t.Fatalf("expected the runner to stay halted, got %v", err)
	}
}

func TestDeterminismHarness(t *testing.T) {
	turns := scriptedTurns(40)
	first, second := &recordingSink{}, &recordingSink{}
	a := newTestRunner(t, WithFrameSinks(first))
	b := newTestRunner(t, WithFrameSinks(second))

	for _, turn := range turns {
		if _, err := a.ExecuteTurn(turn); err != nil {
			t.Fatalf("engine a turn %d: %v", turn.TurnNumber, err)
		}
		if _, err := b.ExecuteTurn(turn); err != nil {
			t.Fatalf("engine b turn %d: %v", turn.TurnNumber, err)
		}
		tick := uint64(turn.TurnNumber)
		if !bytes.Equal(first.frames[tick], second.frames[tick]) {
			t.Fatalf("engines diverged at tick %d", tick)
		}
	}
	if a.Game().Hash() != b.Game().Hash() {
		t.Fatalf("expected identical final hashes")
	}
}

func TestVerifyDetectsDivergence(t *testing.T) {
	turns := scriptedTurns(21)
	recorded := &recordingSink{}
	source := newTestRunner(t, WithFrameSinks(recorded))
	for _, turn := range turns {
		if _, err := source.ExecuteTurn(turn); err != nil {
			t.Fatalf("ExecuteTurn: %v", err)
		}
	}
	frames := make([][]byte, len(turns))
	for i := range turns {
		frames[i] = recorded.frames[uint64(i)]
	}

	divergence, err := newTestRunner(t).Verify(turns, frames)
	if err != nil || divergence != nil {
		t.Fatalf("expected a clean verification, got %v (%v)", divergence, err)
	}

	//1.- Drop the second attack so the replayed world drifts from the recording.
	tampered := scriptedTurns(21)
	tampered[9].Intents = []intent.Intent{}
	divergence, err = newTestRunner(t).Verify(tampered, frames)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if divergence == nil || divergence.Tick != 10 || divergence.Reason != "world hash" {
		t.Fatalf("expected a hash divergence at tick 10, got %v", divergence)
	}
}
