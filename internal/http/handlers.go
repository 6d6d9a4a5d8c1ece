// Package httpapi serves the operational endpoints of the engine host: liveness,
// readiness and Prometheus text metrics.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/replay"
	"openfront/engine/internal/simulation"
)

// GameStatus describes the hosted game for readiness checks.
type GameStatus struct {
	GameID         string
	Tick           int
	Clients        int
	PendingIntents int
	Winner         string
	Halted         error
}

// StatusFunc reports the current game status.
type StatusFunc func() GameStatus

// FeedStats summarises the update stream.
type FeedStats struct {
	LastSequence uint64
	Retained     int
}

// Options configures the HandlerSet. Every source is optional.
type Options struct {
	Logger       *logging.Logger
	TimeSource   func() time.Time
	Status       StatusFunc
	Ticks        func() simulation.TickMetricsSnapshot
	Feed         func() FeedStats
	Validation   func() map[string]intent.ValidationCounters
	ReplayStats  func() replay.Stats
	StorageStats func() replay.StorageStats
}

// HandlerSet bundles the engine operational handlers.
type HandlerSet struct {
	logger  *logging.Logger
	now     func() time.Time
	started time.Time
	opts    Options
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	return &HandlerSet{logger: logger, now: now, started: now(), opts: opts}
}

// Register attaches all handlers to the provided mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/livez", h.LivenessHandler())
	mux.HandleFunc("/readyz", h.ReadinessHandler())
	mux.HandleFunc("/metrics", h.MetricsHandler())
}

// LivenessHandler reports that the HTTP server is reachable.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Status:    "alive",
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadinessHandler reports whether the game is still advancing.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	type response struct {
		Status         string  `json:"status"`
		Message        string  `json:"message,omitempty"`
		GameID         string  `json:"game_id,omitempty"`
		Tick           int     `json:"tick"`
		UptimeSeconds  float64 `json:"uptime_seconds"`
		Clients        int     `json:"clients"`
		PendingIntents int     `json:"pending_intents"`
		Winner         string  `json:"winner,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := response{Status: "ok", UptimeSeconds: h.now().Sub(h.started).Seconds()}
		if h.opts.Status != nil {
			game := h.opts.Status()
			resp.GameID = game.GameID
			resp.Tick = game.Tick
			resp.Clients = game.Clients
			resp.PendingIntents = game.PendingIntents
			resp.Winner = game.Winner
			switch {
			case game.Halted != nil:
				//1.- A halted game never recovers; report it so the host gets replaced.
				status = http.StatusServiceUnavailable
				resp.Status = "error"
				h.logger.Warn("readiness check on halted game", logging.String("game", game.GameID), logging.Error(game.Halted))
				resp.Message = game.Halted.Error()
			case game.Winner != "":
				resp.Status = "finished"
			}
		}
		writeJSON(w, status, resp)
	}
}

// MetricsHandler emits Prometheus compatible text metrics.
func (h *HandlerSet) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		gauge(w, "engine_uptime_seconds", "Engine uptime in seconds.", fmt.Sprintf("%.0f", h.now().Sub(h.started).Seconds()))

		if h.opts.Status != nil {
			game := h.opts.Status()
			gauge(w, "engine_tick", "Ticks executed by the hosted game.", game.Tick)
			gauge(w, "engine_clients", "Connected websocket clients.", game.Clients)
			gauge(w, "engine_pending_intents", "Intents queued for the next turn.", game.PendingIntents)
		}
		if h.opts.Ticks != nil {
			ticks := h.opts.Ticks()
			gauge(w, "engine_tick_duration_avg_seconds", "Average tick execution time.", ticks.Average.Seconds())
			gauge(w, "engine_tick_duration_max_seconds", "Slowest tick execution time.", ticks.Max.Seconds())
			gauge(w, "engine_tick_updates", "Updates emitted by the last tick.", ticks.LastUpdates)
			gauge(w, "engine_executions", "Executions alive after the last tick.", ticks.LastExecutions)
		}
		if h.opts.Feed != nil {
			feed := h.opts.Feed()
			counter(w, "engine_feed_frames_total", "Frames published to the update feed.", feed.LastSequence)
			gauge(w, "engine_feed_retained_frames", "Frames retained for reconnecting subscribers.", feed.Retained)
		}
		if h.opts.Validation != nil {
			h.writeValidation(w, h.opts.Validation())
		}
		if h.opts.ReplayStats != nil {
			stats := h.opts.ReplayStats()
			gauge(w, "engine_record_buffered_turns", "Non-empty turns buffered for the game record.", stats.BufferedTurns)
			counter(w, "engine_record_dumps_total", "Game records written.", stats.Dumps)
		}
		if h.opts.StorageStats != nil {
			storage := h.opts.StorageStats()
			gauge(w, "engine_replay_games", "Replay bundles on disk.", storage.Games)
			gauge(w, "engine_replay_bytes", "Bytes used by replay bundles and records.", storage.Bytes)
		}
	}
}

func (h *HandlerSet) writeValidation(w http.ResponseWriter, metrics map[string]intent.ValidationCounters) {
	//1.- Aggregate per reason so the label set stays bounded by the reasons.
	violations := map[intent.ValidationReason]uint64{}
	var cooldowns, disconnects uint64
	for _, counters := range metrics {
		for reason, count := range counters.Violations {
			violations[reason] += count
		}
		cooldowns += counters.Cooldowns
		disconnects += counters.Disconnects
	}
	reasons := make([]string, 0, len(violations))
	for reason := range violations {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	fmt.Fprintf(w, "# HELP engine_intent_violations_total Rejected intents per reason.\n")
	fmt.Fprintf(w, "# TYPE engine_intent_violations_total counter\n")
	for _, reason := range reasons {
		fmt.Fprintf(w, "engine_intent_violations_total{reason=%q} %d\n", reason, violations[intent.ValidationReason(reason)])
	}
	counter(w, "engine_intent_cooldowns_total", "Cooldowns applied to clients.", cooldowns)
	counter(w, "engine_intent_disconnects_total", "Clients disconnected for invalid intents.", disconnects)
}

func gauge(w http.ResponseWriter, name, help string, value any) {
	metric(w, name, help, "gauge", value)
}

func counter(w http.ResponseWriter, name, help string, value any) {
	metric(w, name, help, "counter", value)
}

func metric(w http.ResponseWriter, name, help, kind string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %v\n", name, value)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
