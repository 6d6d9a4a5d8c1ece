package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is where the websocket feed listens.
	DefaultAddr = ":43127"
	// DefaultGRPCAddr is where the gRPC update feed listens. Empty disables it.
	DefaultGRPCAddr = ":43128"
	// DefaultTurnInterval is the wall-clock length of one turn.
	DefaultTurnInterval = 100 * time.Millisecond
	// DefaultGameID names the match when none is supplied.
	DefaultGameID = "local0001"

	// DefaultMapWidth and DefaultMapHeight size the generated map.
	DefaultMapWidth  = 200
	DefaultMapHeight = 120
	// DefaultMapSeed seeds the generated map.
	DefaultMapSeed int64 = 1
	// DefaultBots is the number of bot players spawned at start.
	DefaultBots = 20

	// DefaultReplayDir stores replay bundles. Empty disables recording.
	DefaultReplayDir = "replays"
	// DefaultReplayMaxMatches caps how many bundles the cleaner keeps.
	DefaultReplayMaxMatches = 50
	// DefaultReplayMaxAge bounds how long bundles are kept.
	DefaultReplayMaxAge = 7 * 24 * time.Hour

	// DefaultIntentRate limits intents per second per websocket client.
	DefaultIntentRate = 10.0
	// DefaultIntentBurst allows short bursts above the rate.
	DefaultIntentBurst = 20

	// DefaultLogLevel controls verbosity for engine logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "engine.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures the runtime tunables of the engine host process.
type Config struct {
	Address      string
	GRPCAddress  string
	TurnInterval time.Duration
	GameID       string

	MapWidth  int
	MapHeight int
	MapSeed   int64
	Bots      int

	ReplayDir        string
	ReplayMaxMatches int
	ReplayMaxAge     time.Duration

	IntentRate  float64
	IntentBurst int

	// BalancePath points at an optional YAML balance file.
	BalancePath string
	// OverlayPath points at an optional YAML file watched for log level changes.
	OverlayPath string

	Logging LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the host configuration from ENGINE_* environment variables, applying
// defaults and returning every invalid override in a single error.
func Load() (*Config, error) {
	cfg := &Config{
		Address:          getString("ENGINE_ADDR", DefaultAddr),
		GRPCAddress:      getRaw("ENGINE_GRPC_ADDR", DefaultGRPCAddr),
		TurnInterval:     DefaultTurnInterval,
		GameID:           getString("ENGINE_GAME_ID", DefaultGameID),
		MapWidth:         DefaultMapWidth,
		MapHeight:        DefaultMapHeight,
		MapSeed:          DefaultMapSeed,
		Bots:             DefaultBots,
		ReplayDir:        getRaw("ENGINE_REPLAY_DIR", DefaultReplayDir),
		ReplayMaxMatches: DefaultReplayMaxMatches,
		ReplayMaxAge:     DefaultReplayMaxAge,
		IntentRate:       DefaultIntentRate,
		IntentBurst:      DefaultIntentBurst,
		BalancePath:      strings.TrimSpace(os.Getenv("ENGINE_BALANCE_PATH")),
		OverlayPath:      strings.TrimSpace(os.Getenv("ENGINE_CONFIG_FILE")),
		Logging: LoggingConfig{
			Level:      getString("ENGINE_LOG_LEVEL", DefaultLogLevel),
			Path:       getString("ENGINE_LOG_PATH", DefaultLogPath),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("ENGINE_TURN_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("ENGINE_TURN_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.TurnInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ENGINE_REPLAY_MAX_AGE")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration < 0 {
			problems = append(problems, fmt.Sprintf("ENGINE_REPLAY_MAX_AGE must be a non-negative duration, got %q", raw))
		} else {
			cfg.ReplayMaxAge = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ENGINE_MAP_SEED")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ENGINE_MAP_SEED must be an integer, got %q", raw))
		} else {
			cfg.MapSeed = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ENGINE_INTENT_RATE")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("ENGINE_INTENT_RATE must be a positive number, got %q", raw))
		} else {
			cfg.IntentRate = value
		}
	}

	envInt(&problems, "ENGINE_MAP_WIDTH", 8, &cfg.MapWidth)
	envInt(&problems, "ENGINE_MAP_HEIGHT", 8, &cfg.MapHeight)
	envInt(&problems, "ENGINE_BOTS", 0, &cfg.Bots)
	envInt(&problems, "ENGINE_REPLAY_MAX_MATCHES", 0, &cfg.ReplayMaxMatches)
	envInt(&problems, "ENGINE_INTENT_BURST", 1, &cfg.IntentBurst)
	envInt(&problems, "ENGINE_LOG_MAX_SIZE_MB", 1, &cfg.Logging.MaxSizeMB)
	envInt(&problems, "ENGINE_LOG_MAX_BACKUPS", 0, &cfg.Logging.MaxBackups)
	envInt(&problems, "ENGINE_LOG_MAX_AGE_DAYS", 0, &cfg.Logging.MaxAgeDays)

	if raw := strings.TrimSpace(os.Getenv("ENGINE_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ENGINE_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if !validGameID(cfg.GameID) {
		problems = append(problems, fmt.Sprintf("ENGINE_GAME_ID must be alphanumeric, got %q", cfg.GameID))
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// envInt parses an integer override that must be at least min.
func envInt(problems *[]string, key string, min int, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min {
		*problems = append(*problems, fmt.Sprintf("%s must be an integer >= %d, got %q", key, min, raw))
		return
	}
	*dst = value
}

func validGameID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// getRaw distinguishes an unset variable from one set to the empty string, which
// disables the corresponding feature.
func getRaw(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}
