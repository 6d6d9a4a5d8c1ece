// Package execution implements the state machines the orchestrator ticks: one per
// player action plus the long-lived behaviour of units and players.
//
// Executions never fail loudly for game-logic reasons. A build that cannot be afforded
// or a target that has already died logs a warning and deactivates the execution.
package execution

import (
	"openfront/engine/internal/game"
	"openfront/engine/internal/logging"
)

// lookupPlayer resolves id or logs why the execution gives up.
func lookupPlayer(g *game.Game, kind, id string) (*game.Player, bool) {
	p, err := g.Player(id)
	if err != nil {
		g.Logger().Warn("execution player not found",
			logging.String("execution", kind), logging.String("player", id))
		return nil, false
	}
	return p, true
}

// lookupTarget resolves an optional player. An empty id is TerraNullius.
func lookupTarget(g *game.Game, kind, id string) (*game.Player, bool) {
	if id == "" {
		return nil, true
	}
	return lookupPlayer(g, kind, id)
}

// warn logs an expected failure of a game action.
func warn(g *game.Game, message string, fields ...logging.Field) {
	g.Logger().Warn(message, fields...)
}
