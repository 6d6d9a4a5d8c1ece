package game

import (
	"encoding/json"
	"maps"
)

// Stats is a write-only analytics sink. The simulation never reads it back except to
// attach a snapshot to the win update.
type Stats interface {
	PlayerStats(player string) PlayerStats
	All() map[string]PlayerStats

	Attack(attacker, target string, troops int64)
	AttackCancel(attacker, target string, troops int64)
	Betray(traitor string)

	BoatSend(player string, boat UnitType)
	BoatArrive(player string, boat UnitType)
	BoatDestroy(player string, boat UnitType)

	BombLaunch(player, target string, bomb UnitType)
	BombLand(player, target string, bomb UnitType)
	BombIntercept(player, interceptor string, bomb UnitType)

	GoldWork(player string, gold Gold)
	GoldTrade(player, other string, gold Gold)
	GoldWar(player, captured string, gold Gold)

	UnitBuild(player string, unit UnitType)
	UnitLose(player string, unit UnitType)
	UnitDestroy(player string, unit UnitType)
	UnitCapture(player string, unit UnitType)
}

// Indices into the fixed-size counters of PlayerStats.
const (
	AttackSent = iota
	AttackReceived
	AttackCancelled
)

const (
	BoatSent = iota
	BoatArrived
	BoatDestroyed
)

const (
	BombLaunched = iota
	BombLanded
	BombIntercepted
)

const (
	GoldFromWork = iota
	GoldFromWar
	GoldFromTrade
)

const (
	UnitBuilt = iota
	UnitDestroyed
	UnitCaptured
	UnitLost
)

// PlayerStats is the per-player record written into the game archive.
type PlayerStats struct {
	Attacks   [3]int64            `json:"attacks"`
	Betrayals int64               `json:"betrayals"`
	Boats     map[string][3]int64 `json:"boats,omitempty"`
	Bombs     map[string][3]int64 `json:"bombs,omitempty"`
	Gold      [3]int64            `json:"gold"`
	Units     map[string][4]int64 `json:"units,omitempty"`
}

func (s PlayerStats) clone() PlayerStats {
	s.Boats = maps.Clone(s.Boats)
	s.Bombs = maps.Clone(s.Bombs)
	s.Units = maps.Clone(s.Units)
	return s
}

// StatsRecorder keeps every counter in memory.
type StatsRecorder struct {
	players map[string]*PlayerStats
}

var _ Stats = (*StatsRecorder)(nil)

// NewStatsRecorder returns an empty recorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{players: make(map[string]*PlayerStats)}
}

func (r *StatsRecorder) get(player string) *PlayerStats {
	s, ok := r.players[player]
	if !ok {
		s = &PlayerStats{}
		r.players[player] = s
	}
	return s
}

func bump3(m *map[string][3]int64, key string, index int) {
	if *m == nil {
		*m = make(map[string][3]int64)
	}
	counters := (*m)[key]
	counters[index]++
	(*m)[key] = counters
}

func bump4(m *map[string][4]int64, key string, index int) {
	if *m == nil {
		*m = make(map[string][4]int64)
	}
	counters := (*m)[key]
	counters[index]++
	(*m)[key] = counters
}

func (r *StatsRecorder) PlayerStats(player string) PlayerStats {
	if s, ok := r.players[player]; ok {
		return s.clone()
	}
	return PlayerStats{}
}

func (r *StatsRecorder) All() map[string]PlayerStats {
	out := make(map[string]PlayerStats, len(r.players))
	for id, s := range r.players {
		out[id] = s.clone()
	}
	return out
}

// MarshalJSON writes the per-player map keyed by player ID.
func (r *StatsRecorder) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.All())
}

func (r *StatsRecorder) Attack(attacker, target string, troops int64) {
	r.get(attacker).Attacks[AttackSent] += troops
	if target != "" {
		r.get(target).Attacks[AttackReceived] += troops
	}
}

func (r *StatsRecorder) AttackCancel(attacker, target string, troops int64) {
	s := r.get(attacker)
	s.Attacks[AttackCancelled] += troops
	s.Attacks[AttackSent] -= troops
	if target != "" {
		r.get(target).Attacks[AttackReceived] -= troops
	}
}

func (r *StatsRecorder) Betray(traitor string) { r.get(traitor).Betrayals++ }

func (r *StatsRecorder) BoatSend(player string, boat UnitType) {
	bump3(&r.get(player).Boats, boat.String(), BoatSent)
}

func (r *StatsRecorder) BoatArrive(player string, boat UnitType) {
	bump3(&r.get(player).Boats, boat.String(), BoatArrived)
}

func (r *StatsRecorder) BoatDestroy(player string, boat UnitType) {
	bump3(&r.get(player).Boats, boat.String(), BoatDestroyed)
}

func (r *StatsRecorder) BombLaunch(player, _ string, bomb UnitType) {
	bump3(&r.get(player).Bombs, bomb.String(), BombLaunched)
}

func (r *StatsRecorder) BombLand(player, _ string, bomb UnitType) {
	bump3(&r.get(player).Bombs, bomb.String(), BombLanded)
}

func (r *StatsRecorder) BombIntercept(player, interceptor string, bomb UnitType) {
	bump3(&r.get(interceptor).Bombs, bomb.String(), BombIntercepted)
}

func (r *StatsRecorder) GoldWork(player string, gold Gold) {
	r.get(player).Gold[GoldFromWork] += gold
}

func (r *StatsRecorder) GoldTrade(player, other string, gold Gold) {
	r.get(player).Gold[GoldFromTrade] += gold
	if other != "" && other != player {
		r.get(other).Gold[GoldFromTrade] += gold
	}
}

func (r *StatsRecorder) GoldWar(player, _ string, gold Gold) {
	r.get(player).Gold[GoldFromWar] += gold
}

func (r *StatsRecorder) UnitBuild(player string, unit UnitType) {
	bump4(&r.get(player).Units, unit.String(), UnitBuilt)
}

func (r *StatsRecorder) UnitLose(player string, unit UnitType) {
	bump4(&r.get(player).Units, unit.String(), UnitLost)
}

func (r *StatsRecorder) UnitDestroy(player string, unit UnitType) {
	bump4(&r.get(player).Units, unit.String(), UnitDestroyed)
}

func (r *StatsRecorder) UnitCapture(player string, unit UnitType) {
	bump4(&r.get(player).Units, unit.String(), UnitCaptured)
}
