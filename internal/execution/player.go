package execution

import (
	"fmt"

	"openfront/engine/internal/game"
	"openfront/engine/internal/logging"
)

// PlayerExecution is the per-player upkeep that runs every tick from the first spawn
// until the player is eliminated.
type PlayerExecution struct {
	g        *game.Game
	playerID string
	player   *game.Player
	notified map[int]bool
	active   bool
}

func NewPlayerExecution(playerID string) *PlayerExecution {
	return &PlayerExecution{playerID: playerID, notified: make(map[int]bool), active: true}
}

func (e *PlayerExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "player", e.playerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
}

func (e *PlayerExecution) Tick(ticks game.Tick) {
	cfg := e.g.Config()
	p := e.player

	//1.- Relations drift back to neutral.
	if interval := cfg.RelationDecayInterval(); interval > 0 && ticks%interval == 0 {
		p.DecayRelations()
	}

	//2.- Territory-bound structures follow the ground they stand on.
	for _, u := range p.Units() {
		if !u.Info().TerritoryBound {
			continue
		}
		owner := e.g.Owner(u.Tile())
		switch {
		case owner == p:
		case owner == nil:
			u.Delete(true, nil)
		default:
			owner.CaptureUnit(u)
		}
	}

	if !p.IsAlive() {
		e.die()
		return
	}

	//3.- Growth and income.
	p.Grow(cfg.PopulationIncreaseRate(p))
	gold := cfg.GoldAdditionRate(p)
	p.AddGold(gold)
	e.g.Stats().GoldWork(p.ID(), gold)
	p.ShiftTroops(cfg.TroopAdjustmentRate(p))
	if cfg.InfiniteTroops() && p.Type() == game.PlayerHuman {
		p.SetTroops(1_000_000)
	}

	//4.- Alliances this player requested are maintained from its side only.
	for _, a := range p.Alliances() {
		if a.Requestor() != p {
			continue
		}
		e.maintainAlliance(a, ticks)
	}
}

func (e *PlayerExecution) maintainAlliance(a *game.Alliance, ticks game.Tick) {
	if a.CanExtend(ticks) && !e.notified[a.ID()] {
		e.notified[a.ID()] = true
		for _, p := range []*game.Player{a.Requestor(), a.Recipient()} {
			e.g.DisplayMessage(fmt.Sprintf("Your alliance with %s is about to expire", a.Other(p).DisplayName()),
				game.MsgRenewAlliance, p.ID(), 0)
		}
	}
	if ticks < a.ExpiresAt() {
		return
	}
	if a.BothWantExtension() {
		a.Extend(ticks, e.g.Config().AllianceDuration())
		delete(e.notified, a.ID())
		return
	}
	delete(e.notified, a.ID())
	e.g.ExpireAlliance(a)
}

// die releases what an eliminated player still holds.
func (e *PlayerExecution) die() {
	p := e.player
	for _, u := range p.Units() {
		if u.IsActive() {
			u.Delete(false, nil)
		}
	}
	for _, a := range p.OutgoingAttacks() {
		a.Delete()
	}
	e.g.Logger().Info("player eliminated", logging.String("player", p.ID()), logging.Int("tick", e.g.Ticks()))
	e.active = false
}

func (e *PlayerExecution) IsActive() bool               { return e.active }
func (e *PlayerExecution) ActiveDuringSpawnPhase() bool { return false }
