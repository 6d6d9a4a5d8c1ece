// Package bots keeps the AI population of a game at its configured size.
package bots

import (
	"errors"
	"sync"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/prng"
)

const maxTileAttempts = 200

var botNames = []string{
	"Aldmoor", "Brightwater", "Cinderfell", "Dunmarch", "Eastreach", "Frostholm",
	"Greywind", "Highcrag", "Ironvale", "Juniper Coast", "Kestrel Isles", "Lowmere",
	"Marrowdeep", "Northgate", "Oakhaven", "Pinecrest", "Queensford", "Redcliff",
}

// Sink receives the spawn intents for the next turn. intent.Queue implements it.
type Sink interface {
	Submit(in intent.Intent)
}

// Snapshot exposes the observed participant counts for metrics export.
type Snapshot struct {
	Humans int
	Bots   int
	Queued int
}

// SpawnerConfig configures the bot population.
type SpawnerConfig struct {
	Target int
	Seed   int64
	Logger *logging.Logger
}

// Spawner reconciles the bot population with the target during the spawn phase. Bots
// join through ordinary spawn intents so a replay reproduces them without the spawner.
type Spawner struct {
	mu     sync.Mutex
	target int
	rand   *prng.Random
	sink   Sink
	logger *logging.Logger
	queued map[string]struct{}
	chosen []gamemap.TileRef
}

// NewSpawner constructs a spawner that queues into sink.
func NewSpawner(cfg SpawnerConfig, sink Sink) *Spawner {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}
	return &Spawner{
		target: max(0, cfg.Target),
		rand:   prng.New(cfg.Seed),
		sink:   sink,
		logger: logger,
		queued: make(map[string]struct{}),
	}
}

// SetTarget updates the desired number of bots.
func (s *Spawner) SetTarget(population int) error {
	if s == nil {
		return errors.New("spawner is nil")
	}
	if population < 0 {
		return errors.New("population must be non-negative")
	}
	s.mu.Lock()
	s.target = population
	s.mu.Unlock()
	return nil
}

// Reconcile queues spawn intents for the missing bots and returns how many it queued.
// It must run on the goroutine that executes turns, between two turns.
func (s *Spawner) Reconcile(g *game.Game) int {
	if s == nil || g == nil || !g.InSpawnPhase() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	//1.- Forget queued bots that have joined the game.
	s.pruneLocked(g)
	_, bots := countPlayers(g)
	missing := s.target - bots - len(s.queued)

	//2.- Queue one spawn per missing bot on a free land tile.
	queued := 0
	for ; queued < missing; queued++ {
		tile, ok := s.pickTileLocked(g)
		if !ok {
			s.logger.Warn("no free land left for bots", logging.Int("missing", missing-queued))
			break
		}
		gm := g.Map()
		id := s.rand.NextID()
		s.queued[id] = struct{}{}
		s.chosen = append(s.chosen, tile)
		s.sink.Submit(intent.Intent{
			Type:       intent.TypeSpawn,
			PlayerID:   id,
			Name:       prng.Pick(s.rand, botNames),
			PlayerType: string(game.PlayerBot),
			X:          gm.X(tile),
			Y:          gm.Y(tile),
		})
	}
	if queued > 0 {
		s.logger.Debug("bots queued", logging.Int("count", queued), logging.Int("target", s.target))
	}
	return queued
}

// pickTileLocked samples unowned land away from the other bot spawns.
func (s *Spawner) pickTileLocked(g *game.Game) (gamemap.TileRef, bool) {
	gm := g.Map()
	spacing := 2 * g.Config().SpawnRadius()
	spacing *= spacing
	for attempt := 0; attempt < maxTileAttempts; attempt++ {
		tile := gm.Ref(s.rand.NextInt(0, gm.Width()), s.rand.NextInt(0, gm.Height()))
		if !gm.IsLand(tile) || gm.HasOwner(tile) {
			continue
		}
		//1.- Relax the spacing over the second half of the attempts.
		crowded := false
		if attempt < maxTileAttempts/2 {
			for _, other := range s.chosen {
				if gm.EuclideanDistSquared(tile, other) < spacing {
					crowded = true
					break
				}
			}
		}
		if !crowded {
			return tile, true
		}
	}
	return gamemap.NoTile, false
}

// Snapshot returns the human and bot counts of g and the bots still waiting to join.
// Like Reconcile it reads the game, so it must not run while a turn executes.
func (s *Spawner) Snapshot(g *game.Game) Snapshot {
	if s == nil || g == nil {
		return Snapshot{}
	}
	humans, bots := countPlayers(g)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(g)
	return Snapshot{Humans: humans, Bots: bots, Queued: len(s.queued)}
}

func (s *Spawner) pruneLocked(g *game.Game) {
	for id := range s.queued {
		if g.HasPlayer(id) {
			delete(s.queued, id)
		}
	}
}

func countPlayers(g *game.Game) (humans, bots int) {
	for _, p := range g.AllPlayers() {
		switch p.Type() {
		case game.PlayerBot:
			bots++
		case game.PlayerHuman:
			humans++
		}
	}
	return humans, bots
}
