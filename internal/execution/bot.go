package execution

import (
	"openfront/engine/internal/game"
	"openfront/engine/internal/prng"
)

// BotExecution drives a bot or fake human. It acts once every attackRate ticks at an
// offset derived from the player ID, so bots do not all move on the same tick.
type BotExecution struct {
	g          *game.Game
	playerID   string
	player     *game.Player
	rand       *prng.Random
	behavior   *BotBehavior
	attackRate int
	attackTick int
	active     bool
}

func NewBotExecution(playerID string) *BotExecution {
	return &BotExecution{playerID: playerID, active: true}
}

func (e *BotExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "bot", e.playerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
	cfg := g.Config()
	e.rand = prng.New(prng.SimpleHash(player.ID()))
	interval := max(1, cfg.BotAttackInterval())
	e.attackRate = e.rand.NextInt(interval, 2*interval)
	e.attackTick = e.rand.NextInt(0, e.attackRate)
	e.behavior = NewBotBehavior(g, player, e.rand, cfg.BotTriggerRatio(), cfg.BotReserveRatio())
}

// Behavior exposes the decision layer.
func (e *BotExecution) Behavior() *BotBehavior { return e.behavior }

func (e *BotExecution) Tick(ticks game.Tick) {
	if ticks%e.attackRate != e.attackTick {
		return
	}
	if !e.player.IsAlive() {
		e.active = false
		return
	}
	e.behavior.HandleAllianceRequests()

	//1.- Free land comes first.
	if e.player.SharesBorderWith(nil) {
		e.behavior.SendAttack(nil)
		return
	}

	//2.- Then a player enemy, chosen by flavour.
	e.behavior.ForgetOldEnemies()
	var enemy *game.Player
	if e.player.Type() == game.PlayerFakeHuman {
		e.behavior.AssistAllies()
		enemy = e.behavior.SelectEnemy()
	} else {
		enemy = e.behavior.SelectRandomEnemy()
	}
	if enemy == nil || !e.player.SharesBorderWith(enemy) {
		return
	}
	e.behavior.SendAttack(enemy)
}

func (e *BotExecution) IsActive() bool               { return e.active }
func (e *BotExecution) ActiveDuringSpawnPhase() bool { return false }
