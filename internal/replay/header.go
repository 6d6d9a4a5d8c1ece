package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"openfront/engine/internal/config"
)

// HeaderSchemaVersion tracks the schema version for replay header documents.
const HeaderSchemaVersion = 1

// MapParameters records how the map of a game was built.
type MapParameters struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Seed   int64 `json:"seed"`
}

// Header represents the metadata persisted alongside a replay bundle. It holds
// everything needed to rebuild the starting state of the game.
type Header struct {
	SchemaVersion int            `json:"schema_version"`
	GameID        string         `json:"game_id"`
	Map           MapParameters  `json:"map"`
	Balance       config.Balance `json:"balance"`
	FilePointer   string         `json:"file_pointer"`
}

// Validate ensures the header contains enough information for verification tooling.
func (h Header) Validate() error {
	if h.SchemaVersion <= 0 {
		return fmt.Errorf("schema_version must be positive")
	}
	if strings.TrimSpace(h.GameID) == "" {
		return fmt.Errorf("game_id must not be empty")
	}
	if h.Map.Width <= 0 || h.Map.Height <= 0 {
		return fmt.Errorf("map size must be positive, got %dx%d", h.Map.Width, h.Map.Height)
	}
	//1.- Ensure tooling can locate the manifest reliably.
	if strings.TrimSpace(h.FilePointer) == "" {
		return fmt.Errorf("file_pointer must not be empty")
	}
	return nil
}

// WriteHeader persists the supplied header to the provided file path.
func WriteHeader(path string, header Header) error {
	if err := header.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// ReadHeader loads and decodes a replay header from disk.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return Header{}, fmt.Errorf("decode header %s: %w", path, err)
	}
	if err := header.Validate(); err != nil {
		return Header{}, err
	}
	return header, nil
}
