package main

import (
	"fmt"

	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
	"openfront/engine/internal/prng"
	"openfront/engine/internal/replay"
)

// newGame builds the world a replay header describes. Serving and verifying share it so
// a recorded game re-executes on identical state.
func newGame(header replay.Header, logger *logging.Logger) (*game.Game, error) {
	gm, err := gamemap.Generate(header.Map.Width, header.Map.Height, header.Map.Seed)
	if err != nil {
		return nil, fmt.Errorf("generate map: %w", err)
	}
	if err := header.Balance.Validate(); err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return game.New(gm, game.NewConfig(header.Balance),
		game.WithLogger(logger.With(logging.String("game", header.GameID))),
		game.WithSeed(prng.SeedFor(header.GameID, "game")),
	), nil
}
