package replay

import (
	"path/filepath"
	"testing"
	"time"

	"openfront/engine/internal/game"
	"openfront/engine/internal/intent"
)

func TestRecorderRollsGameRecord(t *testing.T) {
	dir := t.TempDir()
	current := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	recorder, err := NewRecorder(dir, func() time.Time { return current })
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	recorder.Start("game0001", RecordConfig{Map: MapParameters{Width: 20, Height: 10, Seed: 3}, Bots: 2})

	spawn := intent.Intent{Type: intent.TypeSpawn, ClientID: "client01", PlayerID: "player01", Name: "river", PlayerType: "HUMAN", Flag: "fr"}
	respawn := spawn
	respawn.Name = "delta"
	turns := []intent.Turn{
		{TurnNumber: 0, GameID: "game0001", Intents: []intent.Intent{spawn}},
		{TurnNumber: 1, GameID: "game0001", Intents: []intent.Intent{}},
		{TurnNumber: 2, GameID: "game0001", Intents: []intent.Intent{respawn}},
	}
	for _, turn := range turns {
		if err := recorder.AppendTurn(turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}
	if snap := recorder.Snapshot(); snap.BufferedTurns != 2 || snap.SeenTurns != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	current = current.Add(90 * time.Second)
	stats := map[string]game.PlayerStats{"player01": {Betrayals: 2}}
	path, err := recorder.Roll("game0001-20240101T000000Z", "player01", stats)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if filepath.Base(path) != "game0001-20240101T000000Z"+RecordSuffix {
		t.Fatalf("unexpected record path %s", path)
	}

	record, err := ReadRecord(path)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if record.ID != "game0001" || record.NumTurns != 3 || len(record.Turns) != 2 {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.DurationSeconds != 90 || record.Date != "2024-01-01" || record.Winner != "player01" {
		t.Fatalf("unexpected timing or winner %+v", record)
	}
	if len(record.Players) != 1 || record.Players[0].Username != "delta" || record.Players[0].Flag != "fr" {
		t.Fatalf("unexpected players %+v", record.Players)
	}
	if record.Players[0].Stats == nil || record.Players[0].Stats.Betrayals != 2 {
		t.Fatalf("expected stats on the player record")
	}

	if snap := recorder.Snapshot(); snap.BufferedTurns != 0 || snap.Dumps != 1 || snap.LastDumpURI != path {
		t.Fatalf("unexpected snapshot after roll %+v", snap)
	}
	if _, err := recorder.Roll("", "", nil); err == nil {
		t.Fatalf("expected an empty recorder to refuse rolling")
	}
}
