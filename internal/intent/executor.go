package intent

import (
	"openfront/engine/internal/execution"
	"openfront/engine/internal/game"
	"openfront/engine/internal/gamemap"
	"openfront/engine/internal/logging"
)

// Executor translates intents into executions for one game.
type Executor struct {
	g      *game.Game
	logger *logging.Logger
}

// NewExecutor binds the translator to a game. A nil logger uses the game's logger.
func NewExecutor(g *game.Game, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = g.Logger()
	}
	return &Executor{g: g, logger: logger}
}

// CreateExecutions maps every intent of the turn onto one execution, in order.
// Intents from unknown players or with impossible coordinates are dropped with a warning.
func (e *Executor) CreateExecutions(turn Turn) []game.Execution {
	out := make([]game.Execution, 0, len(turn.Intents))
	for _, in := range turn.Intents {
		if exec := e.createExecution(in); exec != nil {
			out = append(out, exec)
		}
	}
	return out
}

// spawn places a new player or moves a player that is still in the spawn phase. A
// spawn sent by a client always creates a human; only host-issued spawns without a
// client may pick another player type.
func (e *Executor) spawn(in Intent) game.Execution {
	if player, err := e.g.Player(in.PlayerID); err == nil && !e.owns(player, in) {
		return nil
	}
	tile, ok := e.tile(in)
	if !ok {
		return nil
	}
	info := game.PlayerInfo{
		ID:       in.PlayerID,
		ClientID: in.ClientID,
		Name:     in.Name,
		Type:     game.PlayerType(in.PlayerType),
	}
	if in.ClientID != "" {
		info.Type = game.PlayerHuman
	}
	return execution.NewSpawnExecution(info, tile)
}

func (e *Executor) owns(player *game.Player, in Intent) bool {
	if player.ClientID() == in.ClientID {
		return true
	}
	e.logger.Warn("intent client does not own player",
		logging.String("type", string(in.Type)),
		logging.String("player", in.PlayerID),
		logging.String("client", in.ClientID),
	)
	return false
}

func (e *Executor) createExecution(in Intent) game.Execution {
	//1.- Spawn is the only intent allowed before the player exists.
	if in.Type == TypeSpawn {
		return e.spawn(in)
	}

	player, err := e.g.Player(in.PlayerID)
	if err != nil {
		e.logger.Warn("intent from unknown player",
			logging.String("type", string(in.Type)),
			logging.String("player", in.PlayerID),
			logging.String("client", in.ClientID),
		)
		return nil
	}
	//2.- Clients may only steer their own player.
	if !e.owns(player, in) {
		return nil
	}

	switch in.Type {
	case TypeAttack:
		return execution.NewAttackExecution(amount(in.Troops), in.PlayerID, in.TargetID, gamemap.NoTile, true)
	case TypeBoat:
		tile, ok := e.tile(in)
		if !ok {
			return nil
		}
		return execution.NewTransportShipExecution(in.PlayerID, in.TargetID, tile, amount(in.Troops))
	case TypeAllianceRequest:
		return execution.NewAllianceRequestExecution(in.PlayerID, in.Recipient)
	case TypeAllianceRequestReply:
		return execution.NewAllianceRequestReplyExecution(in.Requestor, in.PlayerID, in.Accept)
	case TypeBreakAlliance:
		return execution.NewBreakAllianceExecution(in.PlayerID, in.Recipient)
	case TypeTargetPlayer:
		return execution.NewTargetPlayerExecution(in.PlayerID, in.Target)
	case TypeEmoji:
		recipient := in.Recipient
		if recipient == AllPlayersRecipient {
			recipient = ""
		}
		return execution.NewEmojiExecution(in.PlayerID, recipient, in.Emoji)
	case TypeChat:
		return execution.NewQuickChatExecution(in.PlayerID, in.Recipient, in.QuickChatKey, in.ChatTarget)
	case TypeDonate:
		if in.Gold != nil {
			return execution.NewDonateGoldExecution(in.PlayerID, in.Recipient, *in.Gold)
		}
		return execution.NewDonateTroopsExecution(in.PlayerID, in.Recipient, amount(in.Troops))
	case TypeTroopRatio:
		return execution.NewSetTargetTroopRatioExecution(in.PlayerID, in.Ratio)
	case TypeBuildUnit:
		unit, err := BuildableUnit(in.Unit)
		if err != nil {
			e.logger.Warn("intent builds unknown unit", logging.String("player", in.PlayerID), logging.Error(err))
			return nil
		}
		tile, ok := e.tile(in)
		if !ok {
			return nil
		}
		return execution.NewConstructionExecution(in.PlayerID, tile, unit)
	case TypeEmbargo:
		return execution.NewEmbargoExecution(in.PlayerID, in.TargetID, in.Action == EmbargoStart)
	case TypeCancelAttack:
		return execution.NewRetreatExecution(in.PlayerID, in.AttackID)
	case TypeCancelBoat:
		return execution.NewBoatRetreatExecution(in.PlayerID, in.UnitID)
	}
	e.logger.Warn("intent type not handled", logging.String("type", string(in.Type)))
	return nil
}

func (e *Executor) tile(in Intent) (gamemap.TileRef, bool) {
	gm := e.g.Map()
	if !gm.IsValidCoord(in.X, in.Y) {
		e.logger.Warn("intent tile outside map",
			logging.String("type", string(in.Type)),
			logging.String("player", in.PlayerID),
			logging.Int("x", in.X),
			logging.Int("y", in.Y),
		)
		return gamemap.NoTile, false
	}
	return gm.Ref(in.X, in.Y), true
}

// amount maps a null troop count onto the execution default.
func amount(v *int64) int64 {
	if v == nil {
		return -1
	}
	return *v
}
