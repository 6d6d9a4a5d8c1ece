package intent

import (
	"errors"
	"sync"
	"testing"
)

func TestDecodeAttackWithNullTarget(t *testing.T) {
	in, err := Decode([]byte(`{"type":"attack","clientID":"client01","playerID":"player01","targetID":null,"troops":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.TargetID != "" || in.Troops != nil {
		t.Fatalf("expected null fields to select defaults, got %+v", in)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport","clientID":"client01","playerID":"player01"}`))
	if !errors.Is(err, ErrInvalidIntent) {
		t.Fatalf("expected ErrInvalidIntent, got %v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrInvalidIntent) {
		t.Fatalf("expected empty payload to be invalid, got %v", err)
	}
	if _, err := Decode([]byte(`{"type":`)); !errors.Is(err, ErrInvalidIntent) {
		t.Fatalf("expected broken JSON to be invalid, got %v", err)
	}
}

func TestDecodeTurn(t *testing.T) {
	raw := []byte(`{"turnNumber":4,"gameID":"game0001","intents":[{"type":"troop_ratio","clientID":"client01","playerID":"player01","ratio":0.25}]}`)
	turn, err := DecodeTurn(raw)
	if err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.TurnNumber != 4 || len(turn.Intents) != 1 || turn.Intents[0].Ratio != 0.25 {
		t.Fatalf("unexpected turn %+v", turn)
	}

	bad := []byte(`{"turnNumber":5,"gameID":"game0001","intents":[{"type":"warp"}]}`)
	if _, err := DecodeTurn(bad); !errors.Is(err, ErrInvalidIntent) {
		t.Fatalf("expected unknown intent to fail the turn, got %v", err)
	}
}

func TestQueueNumbersTurns(t *testing.T) {
	q := NewQueue("game0001")
	if turn := q.NextTurn(); turn.TurnNumber != 0 || turn.Intents == nil || len(turn.Intents) != 0 {
		t.Fatalf("expected an empty first turn, got %+v", turn)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Submit(validAttack())
		}()
	}
	wg.Wait()
	if q.Pending() != 10 {
		t.Fatalf("expected 10 pending intents, got %d", q.Pending())
	}

	turn := q.NextTurn()
	if turn.TurnNumber != 1 || turn.GameID != "game0001" || len(turn.Intents) != 10 {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if q.Pending() != 0 {
		t.Fatalf("expected the queue to drain")
	}
}
