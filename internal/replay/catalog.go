package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CatalogEntry describes one replay bundle found under a replay root, together with
// the game record rolled next to it when the game was closed.
type CatalogEntry struct {
	Bundle       string `json:"bundle"`
	ManifestPath string `json:"manifest_path"`
	Header       Header `json:"header"`
	RecordPath   string `json:"record_path,omitempty"`
	NumTurns     int    `json:"num_turns,omitempty"`
	Winner       string `json:"winner,omitempty"`
	Duration     int64  `json:"duration_seconds,omitempty"`
}

// List walks root and returns every bundle with a readable header, ordered by game ID
// and then by bundle path.
func List(root string) ([]CatalogEntry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root directory must be provided")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root must be a directory")
	}

	var entries []CatalogEntry
	//1.- Walk the tree searching for bundle headers.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != headerFile {
			return nil
		}
		header, err := ReadHeader(path)
		if err != nil {
			return err
		}
		bundle := filepath.Dir(path)
		entry := CatalogEntry{Bundle: bundle, Header: header, ManifestPath: header.FilePointer}
		if !filepath.IsAbs(entry.ManifestPath) {
			entry.ManifestPath = filepath.Join(bundle, entry.ManifestPath)
		}

		//2.- Attach the summary of the sibling game record when one was rolled.
		recordPath := bundle + RecordSuffix
		record, err := ReadRecord(recordPath)
		switch {
		case err == nil:
			entry.RecordPath = recordPath
			entry.NumTurns = record.NumTurns
			entry.Winner = record.Winner
			entry.Duration = record.DurationSeconds
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Header.GameID == entries[j].Header.GameID {
			return entries[i].Bundle < entries[j].Bundle
		}
		return entries[i].Header.GameID < entries[j].Header.GameID
	})
	return entries, nil
}

// MarshalCatalog produces a stable JSON representation of the entries for CLI output.
func MarshalCatalog(entries []CatalogEntry) ([]byte, error) {
	if entries == nil {
		entries = []CatalogEntry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}
