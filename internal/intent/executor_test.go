package intent

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"openfront/engine/internal/config"
	"openfront/engine/internal/execution"
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
)

func newExecutorGame(t *testing.T) (*game.Game, *Executor, *observer.ObservedLogs) {
	t.Helper()
	balance := config.DefaultBalance()
	balance.SpawnPhaseTurns = 5
	core, logs := observer.New(zapcore.WarnLevel)
	logger := logging.NewObserved(core)
	g := game.New(gamemap.NewPlains(20, 20), game.NewConfig(balance), game.WithLogger(logger))
	return g, NewExecutor(g, logger), logs
}

func TestExecutorSpawnCreatesPlayer(t *testing.T) {
	g, exec, _ := newExecutorGame(t)
	turn := Turn{Intents: []Intent{{Type: TypeSpawn, ClientID: "client01", PlayerID: "player01", Name: "river", PlayerType: "HUMAN", X: 5, Y: 5}}}

	execs := exec.CreateExecutions(turn)
	if len(execs) != 1 {
		t.Fatalf("expected one execution, got %d", len(execs))
	}
	if _, ok := execs[0].(*execution.SpawnExecution); !ok {
		t.Fatalf("expected a spawn execution, got %T", execs[0])
	}
	g.AddExecution(execs...)
	g.ExecuteNextTick()

	p, err := g.Player("player01")
	if err != nil {
		t.Fatalf("expected the player to exist: %v", err)
	}
	if p.ClientID() != "client01" || p.Name() != "river" || g.Owner(g.Map().Ref(5, 5)) != p {
		t.Fatalf("unexpected spawn result for %s", p)
	}
}

func TestExecutorDropsUnknownPlayers(t *testing.T) {
	_, exec, logs := newExecutorGame(t)
	turn := Turn{Intents: []Intent{validAttack()}}

	if execs := exec.CreateExecutions(turn); len(execs) != 0 {
		t.Fatalf("expected no execution, got %d", len(execs))
	}
	if logs.FilterMessage("intent from unknown player").Len() != 1 {
		t.Fatalf("expected a warning for the unknown player")
	}
}

func TestExecutorRejectsForeignClient(t *testing.T) {
	g, exec, logs := newExecutorGame(t)
	if _, err := g.AddPlayer(game.PlayerInfo{ID: "player01", ClientID: "client01", Name: "a", Type: game.PlayerHuman}); err != nil {
		t.Fatalf("add player: %v", err)
	}
	in := validAttack()
	in.ClientID = "client99"
	if execs := exec.CreateExecutions(Turn{Intents: []Intent{in}}); len(execs) != 0 {
		t.Fatalf("expected the spoofed intent to be dropped")
	}
	if logs.FilterMessage("intent client does not own player").Len() != 1 {
		t.Fatalf("expected a warning for the spoofed client")
	}
}

func TestExecutorRejectsSpawnForForeignPlayer(t *testing.T) {
	g, exec, logs := newExecutorGame(t)
	owner := Intent{Type: TypeSpawn, ClientID: "client02", PlayerID: "player02", Name: "bob", PlayerType: "HUMAN", X: 5, Y: 5}
	g.AddExecution(exec.CreateExecutions(Turn{Intents: []Intent{owner}})...)
	g.ExecuteNextTick()
	bob, err := g.Player("player02")
	if err != nil {
		t.Fatalf("expected the owner to spawn: %v", err)
	}

	hijack := owner
	hijack.ClientID = "client01"
	hijack.X, hijack.Y = 15, 15
	if execs := exec.CreateExecutions(Turn{Intents: []Intent{hijack}}); len(execs) != 0 {
		t.Fatalf("expected the foreign spawn to be dropped, got %d executions", len(execs))
	}
	if logs.FilterMessage("intent client does not own player").Len() != 1 {
		t.Fatalf("expected a warning for the foreign spawn")
	}
	g.ExecuteNextTick()
	if g.Owner(g.Map().Ref(5, 5)) != bob || g.Owner(g.Map().Ref(15, 15)) == bob {
		t.Fatalf("expected the owner to keep its spawn tile")
	}
}

func TestExecutorSpawnFromClientIsHuman(t *testing.T) {
	g, exec, _ := newExecutorGame(t)
	in := Intent{Type: TypeSpawn, ClientID: "client01", PlayerID: "player01", Name: "river", PlayerType: "BOT", X: 5, Y: 5}
	g.AddExecution(exec.CreateExecutions(Turn{Intents: []Intent{in}})...)
	bot := Intent{Type: TypeSpawn, PlayerID: "botbot01", Name: "bot", PlayerType: "BOT", X: 15, Y: 15}
	g.AddExecution(exec.CreateExecutions(Turn{Intents: []Intent{bot}})...)
	g.ExecuteNextTick()

	p, err := g.Player("player01")
	if err != nil {
		t.Fatalf("expected the player to exist: %v", err)
	}
	if p.Type() != game.PlayerHuman {
		t.Fatalf("expected a client spawn to be human, got %s", p.Type())
	}
	b, err := g.Player("botbot01")
	if err != nil || b.Type() != game.PlayerBot {
		t.Fatalf("expected the host spawn to stay a bot: %v", err)
	}
}

func TestExecutorMapsEveryType(t *testing.T) {
	g, exec, _ := newExecutorGame(t)
	if _, err := g.AddPlayer(game.PlayerInfo{ID: "player01", ClientID: "client01", Name: "a", Type: game.PlayerHuman}); err != nil {
		t.Fatalf("add player: %v", err)
	}
	base := Intent{ClientID: "client01", PlayerID: "player01"}
	with := func(mut func(*Intent)) Intent {
		in := base
		mut(&in)
		return in
	}
	intents := []Intent{
		with(func(in *Intent) { in.Type = TypeAttack }),
		with(func(in *Intent) { in.Type = TypeBoat; in.X, in.Y = 3, 3 }),
		with(func(in *Intent) { in.Type = TypeAllianceRequest; in.Recipient = "player02" }),
		with(func(in *Intent) { in.Type = TypeAllianceRequestReply; in.Requestor = "player02"; in.Accept = true }),
		with(func(in *Intent) { in.Type = TypeBreakAlliance; in.Recipient = "player02" }),
		with(func(in *Intent) { in.Type = TypeTargetPlayer; in.Target = "player02" }),
		with(func(in *Intent) { in.Type = TypeEmoji; in.Recipient = AllPlayersRecipient; in.Emoji = "👍" }),
		with(func(in *Intent) { in.Type = TypeChat; in.Recipient = "player02"; in.QuickChatKey = "help.troops" }),
		with(func(in *Intent) { in.Type = TypeDonate; in.Recipient = "player02"; in.Gold = int64p(10) }),
		with(func(in *Intent) { in.Type = TypeTroopRatio; in.Ratio = 0.5 }),
		with(func(in *Intent) { in.Type = TypeBuildUnit; in.Unit = "City"; in.X, in.Y = 1, 1 }),
		with(func(in *Intent) { in.Type = TypeEmbargo; in.TargetID = "player02"; in.Action = EmbargoStart }),
		with(func(in *Intent) { in.Type = TypeCancelAttack; in.AttackID = "atk00001" }),
		with(func(in *Intent) { in.Type = TypeCancelBoat; in.UnitID = 4 }),
	}
	execs := exec.CreateExecutions(Turn{Intents: intents})
	if len(execs) != len(intents) {
		t.Fatalf("expected %d executions, got %d", len(intents), len(execs))
	}
	if _, ok := execs[10].(*execution.ConstructionExecution); !ok {
		t.Fatalf("expected build_unit to start a construction, got %T", execs[10])
	}
	if _, ok := execs[13].(*execution.BoatRetreatExecution); !ok {
		t.Fatalf("expected cancel_boat to retreat a boat, got %T", execs[13])
	}
}

func TestExecutorDropsTilesOutsideMap(t *testing.T) {
	_, exec, logs := newExecutorGame(t)
	in := Intent{Type: TypeSpawn, ClientID: "client01", PlayerID: "player01", Name: "a", PlayerType: "HUMAN", X: 50, Y: 1}
	if execs := exec.CreateExecutions(Turn{Intents: []Intent{in}}); len(execs) != 0 {
		t.Fatalf("expected the spawn to be dropped")
	}
	if logs.FilterMessage("intent tile outside map").Len() != 1 {
		t.Fatalf("expected a warning for the bad tile")
	}
}
