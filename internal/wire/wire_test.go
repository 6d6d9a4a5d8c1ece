package wire

import (
	"bytes"
	"errors"
	"testing"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
)

func sampleBatch() *game.GameUpdates {
	u := game.NewGameUpdates(42)
	u.Add(game.TileUpdate{Packed: gamemap.PackTileUpdate(7, 3)})
	u.Add(game.TileUpdate{Packed: gamemap.PackTileUpdate(0, 0)})
	u.Add(game.HashUpdate{Tick: 40, Hash: 0xdeadbeefcafe})
	u.Add(game.UnitUpdate{UnitType: game.TransportShip, ID: 3, Troops: 500, OwnerID: 1, Pos: 0, LastPos: gamemap.NoTile, IsActive: true})
	u.Add(game.PlayerUpdate{ID: "player01", SmallID: 1, Name: "river", Allies: []uint16{2, 3}, TargetTroopRatio: 0.95,
		OutgoingAttacks: []game.AttackUpdate{{AttackerID: 1, TargetID: 2, Troops: 100, ID: "atk"}}})
	u.Add(game.WinUpdate{WinnerID: 1, Stats: map[string]game.PlayerStats{"player01": {Betrayals: 1}}})
	u.Add(game.RailroadUpdate{IsActive: true, RailTiles: []game.RailTile{{Tile: 4, RailType: game.RailHorizontal}}})
	return u
}

func TestEncodeDecodeGroups(t *testing.T) {
	raw, err := Encode(sampleBatch())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	batch, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.Tick != 42 {
		t.Fatalf("expected tick 42, got %d", batch.Tick)
	}
	for typ, want := range map[game.UpdateType]int{
		game.UpdateTile: 2, game.UpdateHash: 1, game.UpdateUnit: 1, game.UpdatePlayer: 1,
		game.UpdateWin: 1, game.UpdateRailroadEvent: 1, game.UpdateEmoji: 0,
	} {
		if got := batch.Count(typ); got != want {
			t.Fatalf("expected %d %s records, got %d", want, typ, got)
		}
	}
}

func TestDecodeHashesAndTiles(t *testing.T) {
	raw, err := Encode(sampleBatch())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	hashes, err := DecodeHashes(raw)
	if err != nil {
		t.Fatalf("decode hashes: %v", err)
	}
	if len(hashes) != 1 || hashes[0].Tick != 40 || hashes[0].Hash != 0xdeadbeefcafe {
		t.Fatalf("unexpected hashes %+v", hashes)
	}

	tiles, err := DecodeTiles(raw)
	if err != nil {
		t.Fatalf("decode tiles: %v", err)
	}
	if len(tiles) != 2 {
		t.Fatalf("expected two tiles, got %d", len(tiles))
	}
	ref, owner, fallout := gamemap.UnpackTileUpdate(tiles[0])
	if ref != 7 || owner != 3 || fallout {
		t.Fatalf("unexpected tile %d owner %d fallout %v", ref, owner, fallout)
	}
}

func TestEncodeIsStable(t *testing.T) {
	a, err := Encode(sampleBatch())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Encode(sampleBatch())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical bytes for identical batches")
	}
}

func TestDecodeRejectsTruncatedFrames(t *testing.T) {
	raw, err := Encode(sampleBatch())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(raw[:len(raw)-3]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
