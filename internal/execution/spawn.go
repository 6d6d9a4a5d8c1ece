package execution

import (
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
)

// SpawnExecution places a player during the spawn phase. Spawning again moves the
// player: the old start area is released before the new one is claimed.
type SpawnExecution struct {
	g      *game.Game
	info   game.PlayerInfo
	tile   gamemap.TileRef
	player *game.Player
	active bool
}

func NewSpawnExecution(info game.PlayerInfo, tile gamemap.TileRef) *SpawnExecution {
	return &SpawnExecution{info: info, tile: tile, active: true}
}

func (e *SpawnExecution) Init(g *game.Game, _ game.Tick) { e.g = g }

// Player is nil until the execution ran.
func (e *SpawnExecution) Player() *game.Player { return e.player }

func (e *SpawnExecution) Tick(game.Tick) {
	e.active = false
	if !e.g.InSpawnPhase() {
		warn(e.g, "spawn outside of spawn phase", logging.String("player", e.info.ID))
		return
	}
	if !e.g.Map().IsValidRef(e.tile) || !e.g.Map().IsLand(e.tile) {
		warn(e.g, "cannot spawn on water", logging.String("player", e.info.ID))
		return
	}

	player, err := e.g.Player(e.info.ID)
	if err != nil {
		player, err = e.g.AddPlayer(e.info)
		if err != nil {
			warn(e.g, "cannot add player", logging.String("player", e.info.ID), logging.Error(err))
			return
		}
	}
	e.player = player

	for _, t := range player.Tiles() {
		player.Relinquish(t)
	}
	for _, t := range SpawnTiles(e.g, e.tile) {
		player.Conquer(t)
	}

	if !player.HasSpawned() {
		e.g.AddExecution(NewPlayerExecution(player.ID()))
		if player.Type() == game.PlayerBot || player.Type() == game.PlayerFakeHuman {
			e.g.AddExecution(NewBotExecution(player.ID()))
		}
	}
	player.SetHasSpawned(true)
}

// SpawnTiles lists the unowned land within SpawnRadius of tile, in BFS order.
func SpawnTiles(g *game.Game, tile gamemap.TileRef) []gamemap.TileRef {
	r2 := g.Config().SpawnRadius() * g.Config().SpawnRadius()
	return g.Map().BFS(tile, func(gm gamemap.GameMap, t gamemap.TileRef) bool {
		return gm.EuclideanDistSquared(tile, t) <= r2 && gm.IsLand(t) && !gm.HasOwner(t)
	})
}

func (e *SpawnExecution) IsActive() bool               { return e.active }
func (e *SpawnExecution) ActiveDuringSpawnPhase() bool { return true }
