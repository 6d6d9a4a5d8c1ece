package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"openfront/engine/internal/logging"
)

func TestCleanerEnforcesMaxGames(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	//1.- Seed three games, each a bundle plus its record.
	writeGame(t, tmp, "alpha", now.Add(-3*time.Hour), 4)
	writeGame(t, tmp, "bravo", now.Add(-2*time.Hour), 2)
	writeGame(t, tmp, "charlie", now.Add(-time.Hour), 3)

	cleaner := NewCleaner(tmp, RetentionPolicy{MaxGames: 2}, logging.NewTestLogger())
	cleaner.now = func() time.Time { return now }
	cleaner.RunOnce()

	remaining := listEntries(t, tmp)
	expected := []string{"bravo", "bravo" + RecordSuffix, "charlie", "charlie" + RecordSuffix}
	if strings.Join(remaining, ",") != strings.Join(expected, ",") {
		t.Fatalf("unexpected retained games: %v", remaining)
	}

	stats := cleaner.Stats()
	if stats.Games != 2 || stats.Records != 2 {
		t.Fatalf("expected 2 games with 2 records, got %+v", stats)
	}
	if stats.Bytes != int64(2+3+2+2) {
		t.Fatalf("expected byte total 9, got %d", stats.Bytes)
	}
	if stats.LastSweep.IsZero() {
		t.Fatalf("expected last sweep timestamp to be recorded")
	}
}

func TestCleanerPrunesByAge(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 16, 9, 0, 0, 0, time.UTC)
	writeGame(t, tmp, "delta", now.Add(-48*time.Hour), 1)
	writeGame(t, tmp, "echo", now.Add(-time.Hour), 1)
	//1.- Unrelated files are left alone.
	if err := os.WriteFile(filepath.Join(tmp, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cleaner := NewCleaner(tmp, RetentionPolicy{MaxAge: 36 * time.Hour, MaxGames: 5}, logging.NewTestLogger())
	cleaner.now = func() time.Time { return now }
	cleaner.RunOnce()

	remaining := listEntries(t, tmp)
	expected := []string{"echo", "echo" + RecordSuffix, "notes.txt"}
	if strings.Join(remaining, ",") != strings.Join(expected, ",") {
		t.Fatalf("unexpected entries after sweep: %v", remaining)
	}
}

func writeGame(t *testing.T, dir, base string, mod time.Time, frames int) {
	t.Helper()
	bundle := filepath.Join(dir, base)
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for i := 0; i < frames; i++ {
		path := filepath.Join(bundle, fmt.Sprintf("frame-%d.bin", i))
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			t.Fatalf("WriteFile frame: %v", err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("Chtimes frame: %v", err)
		}
	}
	if err := os.Chtimes(bundle, mod, mod); err != nil {
		t.Fatalf("Chtimes dir: %v", err)
	}
	record := filepath.Join(dir, base+RecordSuffix)
	if err := os.WriteFile(record, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile record: %v", err)
	}
	if err := os.Chtimes(record, mod, mod); err != nil {
		t.Fatalf("Chtimes record: %v", err)
	}
}

func listEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}
