package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"openfront/engine/internal/game"
	"openfront/engine/internal/intent"
)

// RecordSuffix marks game record files. The cleaner treats a record as a companion of
// the bundle directory with the same base name.
const RecordSuffix = ".record.json"

// RecordConfig is the game configuration archived with the record.
type RecordConfig struct {
	Map     MapParameters `json:"map"`
	Bots    int           `json:"bots"`
	Balance any           `json:"balance,omitempty"`
}

// PlayerRecord identifies one participant of the game.
type PlayerRecord struct {
	PlayerID string            `json:"playerID"`
	ClientID string            `json:"clientID"`
	Username string            `json:"username"`
	Flag     string            `json:"flag,omitempty"`
	Stats    *game.PlayerStats `json:"stats,omitempty"`
}

// GameRecord is the archive of a finished game. Only turns carrying intents are
// stored; NumTurns still counts every turn.
type GameRecord struct {
	ID               string         `json:"id"`
	GameConfig       RecordConfig   `json:"gameConfig"`
	Players          []PlayerRecord `json:"players"`
	StartTimestampMS int64          `json:"startTimestampMS"`
	EndTimestampMS   int64          `json:"endTimestampMS"`
	DurationSeconds  int64          `json:"durationSeconds"`
	Date             string         `json:"date"`
	NumTurns         int            `json:"num_turns"`
	Turns            []intent.Turn  `json:"turns"`
	Winner           string         `json:"winner,omitempty"`
}

// Stats summarises recorder health for monitoring endpoints.
type Stats struct {
	BufferedTurns int
	SeenTurns     int
	Dumps         int64
	LastDumpURI   string
	LastDumpTime  time.Time
}

// Recorder buffers the turns of a running game until it is rolled into a GameRecord.
type Recorder struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	gameID      string
	config      RecordConfig
	started     time.Time
	players     []PlayerRecord
	seen        map[string]int
	turns       []intent.Turn
	numTurns    int
	dumps       int64
	lastDump    time.Time
	lastDumpURI string
}

// NewRecorder constructs a recorder that writes game records into dir.
func NewRecorder(dir string, clock func() time.Time) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("replay directory must be provided")
	}
	if clock == nil {
		clock = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{dir: dir, now: clock, seen: make(map[string]int)}, nil
}

// Start resets the recorder for a new game.
func (r *Recorder) Start(gameID string, config RecordConfig) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameID = gameID
	r.config = config
	r.started = r.now().UTC()
	r.players = nil
	r.seen = make(map[string]int)
	r.turns = nil
	r.numTurns = 0
}

// AppendTurn buffers a turn and registers the players that spawned in it.
func (r *Recorder) AppendTurn(turn intent.Turn) error {
	if r == nil {
		return fmt.Errorf("recorder not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.numTurns++
	if len(turn.Intents) == 0 {
		return nil
	}
	//1.- Respawning keeps the first record but refreshes the name.
	for _, in := range turn.Intents {
		if in.Type != intent.TypeSpawn {
			continue
		}
		if idx, ok := r.seen[in.PlayerID]; ok {
			r.players[idx].Username = in.Name
			continue
		}
		r.seen[in.PlayerID] = len(r.players)
		r.players = append(r.players, PlayerRecord{PlayerID: in.PlayerID, ClientID: in.ClientID, Username: in.Name, Flag: in.Flag})
	}
	clone := turn
	clone.Intents = append([]intent.Intent(nil), turn.Intents...)
	r.turns = append(r.turns, clone)
	return nil
}

// Roll writes the buffered game to base+RecordSuffix and clears the buffer. Stats are
// attached to the players they belong to.
func (r *Recorder) Roll(base, winner string, stats map[string]game.PlayerStats) (string, error) {
	if r == nil {
		return "", fmt.Errorf("recorder not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.numTurns == 0 {
		return "", fmt.Errorf("no turns recorded")
	}
	if base == "" {
		base = gameIDCleaner.ReplaceAllString(r.gameID, "")
	}
	end := r.now().UTC()
	record := GameRecord{
		ID:               r.gameID,
		GameConfig:       r.config,
		Players:          make([]PlayerRecord, len(r.players)),
		StartTimestampMS: r.started.UnixMilli(),
		EndTimestampMS:   end.UnixMilli(),
		DurationSeconds:  int64(end.Sub(r.started) / time.Second),
		Date:             r.started.Format("2006-01-02"),
		NumTurns:         r.numTurns,
		Turns:            r.turns,
		Winner:           winner,
	}
	copy(record.Players, r.players)
	for i := range record.Players {
		if s, ok := stats[record.Players[i].PlayerID]; ok {
			record.Players[i].Stats = &s
		}
	}
	if record.Turns == nil {
		record.Turns = []intent.Turn{}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, base+RecordSuffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	r.turns = nil
	r.numTurns = 0
	r.dumps++
	r.lastDump = end
	r.lastDumpURI = path
	return path, nil
}

// Snapshot returns statistics describing the recorder state.
func (r *Recorder) Snapshot() Stats {
	if r == nil {
		return Stats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		BufferedTurns: len(r.turns),
		SeenTurns:     r.numTurns,
		Dumps:         r.dumps,
		LastDumpURI:   r.lastDumpURI,
		LastDumpTime:  r.lastDump,
	}
}

// ReadRecord loads a game record written by Roll.
func ReadRecord(path string) (GameRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GameRecord{}, err
	}
	var record GameRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return GameRecord{}, fmt.Errorf("decode record %s: %w", path, err)
	}
	return record, nil
}
