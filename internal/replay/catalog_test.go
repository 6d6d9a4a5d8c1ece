package replay

import (
	"path/filepath"
	"testing"
	"time"

	"openfront/engine/internal/intent"
)

func TestListCollectsBundlesAndRecords(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.March, 2, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	for _, id := range []string{"game0002", "game0001"} {
		writer, _, err := NewWriter(dir, id, clock)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		header := testHeader()
		header.GameID = id
		writer.SetHeader(header)
		if err := writer.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if id != "game0001" {
			continue
		}
		recorder, err := NewRecorder(dir, clock)
		if err != nil {
			t.Fatalf("NewRecorder: %v", err)
		}
		recorder.Start(id, RecordConfig{Map: header.Map})
		if err := recorder.AppendTurn(intent.Turn{TurnNumber: 0, GameID: id}); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
		if _, err := recorder.Roll(filepath.Base(writer.Directory()), "player01", nil); err != nil {
			t.Fatalf("Roll: %v", err)
		}
	}

	entries, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first, second := entries[0], entries[1]
	if first.Header.GameID != "game0001" || second.Header.GameID != "game0002" {
		t.Fatalf("unexpected order %q, %q", first.Header.GameID, second.Header.GameID)
	}
	if first.Winner != "player01" || first.NumTurns != 1 || first.RecordPath == "" {
		t.Fatalf("expected record summary on first entry, got %+v", first)
	}
	if second.RecordPath != "" || second.Winner != "" {
		t.Fatalf("expected no record on second entry, got %+v", second)
	}
	if first.ManifestPath != filepath.Join(first.Bundle, manifestFile) {
		t.Fatalf("unexpected manifest path %q", first.ManifestPath)
	}

	payload, err := MarshalCatalog(entries)
	if err != nil || len(payload) == 0 {
		t.Fatalf("MarshalCatalog: %v", err)
	}
}

func TestListRejectsMissingRoot(t *testing.T) {
	if _, err := List(""); err == nil {
		t.Fatalf("expected an empty root to be rejected")
	}
	if _, err := List(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected a missing root to be rejected")
	}
}
