package replay

import (
	"path/filepath"
	"testing"
)

func TestWriteAndReadHeader(t *testing.T) {
	dir := t.TempDir()
	header := testHeader()
	header.SchemaVersion = HeaderSchemaVersion
	header.FilePointer = manifestFile
	header.Balance.SpawnPhaseTurns = 42

	path := filepath.Join(dir, "nested", headerFile)
	if err := WriteHeader(path, header); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	loaded, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if loaded.GameID != header.GameID || loaded.Map != header.Map {
		t.Fatalf("unexpected header values: %+v", loaded)
	}
	if loaded.Balance.SpawnPhaseTurns != 42 || loaded.Balance.AtomBomb != header.Balance.AtomBomb {
		t.Fatalf("expected the balance to survive, got %+v", loaded.Balance)
	}
}

func TestHeaderValidate(t *testing.T) {
	cases := map[string]Header{
		"schema":  {GameID: "g", Map: MapParameters{Width: 1, Height: 1}, FilePointer: "m"},
		"game":    {SchemaVersion: 1, Map: MapParameters{Width: 1, Height: 1}, FilePointer: "m"},
		"map":     {SchemaVersion: 1, GameID: "g", FilePointer: "m"},
		"pointer": {SchemaVersion: 1, GameID: "g", Map: MapParameters{Width: 1, Height: 1}},
	}
	for name, header := range cases {
		if err := header.Validate(); err == nil {
			t.Fatalf("expected %s to be rejected", name)
		}
	}
}
