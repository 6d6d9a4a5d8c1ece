package execution

import (
	"strings"

	"openfront/engine/internal/game"
	"openfront/engine/internal/logging"
)

// Relation shifts applied by diplomatic actions.
const (
	allianceAcceptedRelation = 100
	betrayedRelation         = -200
	betrayalWitnessRelation  = -40
	targetedRelation         = -40
	donationRelation         = 50
	insultRelation           = -100
)

// insultEmoji sours the recipient's relation toward the sender.
const insultEmoji = "🖕"

// oneShot carries the bookkeeping of executions that act once on their first tick.
type oneShot struct {
	g      *game.Game
	active bool
}

func newOneShot() oneShot { return oneShot{active: true} }

func (o *oneShot) IsActive() bool               { return o.active }
func (o *oneShot) ActiveDuringSpawnPhase() bool { return false }

// pair resolves the two players of a diplomatic action.
func (o *oneShot) pair(g *game.Game, kind, fromID, toID string) (*game.Player, *game.Player, bool) {
	o.g = g
	from, ok := lookupPlayer(g, kind, fromID)
	if !ok {
		o.active = false
		return nil, nil, false
	}
	to, ok := lookupPlayer(g, kind, toID)
	if !ok {
		o.active = false
		return nil, nil, false
	}
	return from, to, true
}

// AllianceRequestExecution offers an alliance. Between allies it asks to renew the
// existing alliance instead.
type AllianceRequestExecution struct {
	oneShot
	requestorID, recipientID string
	requestor, recipient     *game.Player
}

func NewAllianceRequestExecution(requestorID, recipientID string) *AllianceRequestExecution {
	return &AllianceRequestExecution{oneShot: newOneShot(), requestorID: requestorID, recipientID: recipientID}
}

func (e *AllianceRequestExecution) Init(g *game.Game, _ game.Tick) {
	e.requestor, e.recipient, _ = e.pair(g, "alliance request", e.requestorID, e.recipientID)
}

func (e *AllianceRequestExecution) Tick(ticks game.Tick) {
	e.active = false
	if a := e.requestor.AllianceWith(e.recipient); a != nil {
		if a.CanExtend(ticks) {
			a.AddExtensionRequest(e.requestor)
		}
		return
	}
	if !e.requestor.CanSendAllianceRequest(e.recipient) {
		warn(e.g, "cannot send alliance request",
			logging.String("player", e.requestorID), logging.String("recipient", e.recipientID))
		return
	}
	e.requestor.CreateAllianceRequest(e.recipient)
}

// AllianceRequestReplyExecution answers a pending request. Accepting warms both sides.
type AllianceRequestReplyExecution struct {
	oneShot
	requestorID, recipientID string
	accept                   bool
	requestor, recipient     *game.Player
}

func NewAllianceRequestReplyExecution(requestorID, recipientID string, accept bool) *AllianceRequestReplyExecution {
	return &AllianceRequestReplyExecution{oneShot: newOneShot(), requestorID: requestorID, recipientID: recipientID, accept: accept}
}

func (e *AllianceRequestReplyExecution) Init(g *game.Game, _ game.Tick) {
	e.requestor, e.recipient, _ = e.pair(g, "alliance reply", e.requestorID, e.recipientID)
}

func (e *AllianceRequestReplyExecution) Tick(game.Tick) {
	e.active = false
	var request *game.AllianceRequest
	for _, r := range e.recipient.IncomingAllianceRequests() {
		if r.Requestor() == e.requestor {
			request = r
			break
		}
	}
	if request == nil {
		warn(e.g, "no alliance request to answer",
			logging.String("player", e.recipientID), logging.String("requestor", e.requestorID))
		return
	}
	if !e.accept {
		request.Reject()
		return
	}
	request.Accept()
	e.requestor.UpdateRelation(e.recipient, allianceAcceptedRelation)
	e.recipient.UpdateRelation(e.requestor, allianceAcceptedRelation)
}

// BreakAllianceExecution betrays an ally. Every other player remembers it.
type BreakAllianceExecution struct {
	oneShot
	requestorID, recipientID string
	requestor, recipient     *game.Player
}

func NewBreakAllianceExecution(requestorID, recipientID string) *BreakAllianceExecution {
	return &BreakAllianceExecution{oneShot: newOneShot(), requestorID: requestorID, recipientID: recipientID}
}

func (e *BreakAllianceExecution) Init(g *game.Game, _ game.Tick) {
	e.requestor, e.recipient, _ = e.pair(g, "break alliance", e.requestorID, e.recipientID)
}

func (e *BreakAllianceExecution) Tick(game.Tick) {
	e.active = false
	a := e.requestor.AllianceWith(e.recipient)
	if a == nil {
		warn(e.g, "cannot break missing alliance",
			logging.String("player", e.requestorID), logging.String("recipient", e.recipientID))
		return
	}
	e.requestor.BreakAlliance(a)
	e.recipient.UpdateRelation(e.requestor, betrayedRelation)
	e.g.DisplayMessage(e.requestor.DisplayName()+" broke their alliance with you", game.MsgAllianceBroken, e.recipient.ID(), 0)
	for _, other := range e.g.Players() {
		if other != e.requestor && other != e.recipient {
			other.UpdateRelation(e.requestor, betrayalWitnessRelation)
		}
	}
}

// TargetPlayerExecution marks a player as a target for allies to pile on.
type TargetPlayerExecution struct {
	oneShot
	requestorID, targetID string
	requestor, target     *game.Player
}

func NewTargetPlayerExecution(requestorID, targetID string) *TargetPlayerExecution {
	return &TargetPlayerExecution{oneShot: newOneShot(), requestorID: requestorID, targetID: targetID}
}

func (e *TargetPlayerExecution) Init(g *game.Game, _ game.Tick) {
	e.requestor, e.target, _ = e.pair(g, "target player", e.requestorID, e.targetID)
}

func (e *TargetPlayerExecution) Tick(game.Tick) {
	e.active = false
	if !e.requestor.CanTarget(e.target) {
		warn(e.g, "cannot target player", logging.String("player", e.requestorID), logging.String("target", e.targetID))
		return
	}
	e.requestor.Target(e.target)
	e.target.UpdateRelation(e.requestor, targetedRelation)
}

// EmojiExecution sends an emoji to one player, or to everyone when the recipient is empty.
type EmojiExecution struct {
	oneShot
	senderID, recipientID string
	emoji                 string
	sender, recipient     *game.Player
}

func NewEmojiExecution(senderID, recipientID, emoji string) *EmojiExecution {
	return &EmojiExecution{oneShot: newOneShot(), senderID: senderID, recipientID: recipientID, emoji: emoji}
}

func (e *EmojiExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	sender, ok := lookupPlayer(g, "emoji", e.senderID)
	if !ok {
		e.active = false
		return
	}
	e.sender = sender
	if e.recipientID == "" {
		return
	}
	recipient, ok := lookupPlayer(g, "emoji", e.recipientID)
	if !ok {
		e.active = false
		return
	}
	e.recipient = recipient
}

func (e *EmojiExecution) Tick(game.Tick) {
	e.active = false
	to := game.AllPlayers
	if e.recipient != nil {
		to = e.recipient.SmallID()
	}
	if !e.sender.CanSendEmoji(to) {
		warn(e.g, "cannot send emoji", logging.String("player", e.senderID))
		return
	}
	e.sender.SendEmoji(to, e.emoji)
	if e.emoji == insultEmoji && e.recipient != nil {
		e.recipient.UpdateRelation(e.sender, insultRelation)
	}
}

// QuickChatExecution delivers a canned chat line. The key is "category.message".
type QuickChatExecution struct {
	oneShot
	senderID, recipientID string
	key, targetID         string
	sender, recipient     *game.Player
}

func NewQuickChatExecution(senderID, recipientID, key, targetID string) *QuickChatExecution {
	return &QuickChatExecution{oneShot: newOneShot(), senderID: senderID, recipientID: recipientID, key: key, targetID: targetID}
}

func (e *QuickChatExecution) Init(g *game.Game, _ game.Tick) {
	e.sender, e.recipient, _ = e.pair(g, "quick chat", e.senderID, e.recipientID)
}

func (e *QuickChatExecution) Tick(game.Tick) {
	e.active = false
	category, message, _ := strings.Cut(e.key, ".")
	e.g.DisplayChat(message, category, e.targetID, e.recipient.ID(), true, e.sender.ID())
	e.g.DisplayChat(message, category, e.targetID, e.sender.ID(), false, e.recipient.ID())
}

// DonateExecution gives troops or gold to a friendly player.
type DonateExecution struct {
	oneShot
	senderID, recipientID string
	troops                int64
	gold                  game.Gold
	sender, recipient     *game.Player
}

// NewDonateTroopsExecution donates troops. A negative amount uses the default donation.
func NewDonateTroopsExecution(senderID, recipientID string, troops int64) *DonateExecution {
	return &DonateExecution{oneShot: newOneShot(), senderID: senderID, recipientID: recipientID, troops: troops}
}

func NewDonateGoldExecution(senderID, recipientID string, gold game.Gold) *DonateExecution {
	return &DonateExecution{oneShot: newOneShot(), senderID: senderID, recipientID: recipientID, gold: gold}
}

func (e *DonateExecution) Init(g *game.Game, _ game.Tick) {
	var ok bool
	e.sender, e.recipient, ok = e.pair(g, "donate", e.senderID, e.recipientID)
	if ok && e.troops < 0 {
		e.troops = g.Config().DefaultDonationAmount(e.sender)
	}
}

func (e *DonateExecution) Tick(game.Tick) {
	e.active = false
	var sent bool
	if e.gold > 0 {
		sent = e.sender.DonateGold(e.recipient, e.gold)
	} else {
		sent = e.sender.DonateTroops(e.recipient, e.troops)
	}
	if !sent {
		warn(e.g, "cannot donate", logging.String("player", e.senderID), logging.String("recipient", e.recipientID))
		return
	}
	e.recipient.UpdateRelation(e.sender, donationRelation)
}

// EmbargoExecution starts or lifts a permanent embargo.
type EmbargoExecution struct {
	oneShot
	playerID, targetID string
	start              bool
	player, target     *game.Player
}

func NewEmbargoExecution(playerID, targetID string, start bool) *EmbargoExecution {
	return &EmbargoExecution{oneShot: newOneShot(), playerID: playerID, targetID: targetID, start: start}
}

func (e *EmbargoExecution) Init(g *game.Game, _ game.Tick) {
	e.player, e.target, _ = e.pair(g, "embargo", e.playerID, e.targetID)
}

func (e *EmbargoExecution) Tick(game.Tick) {
	e.active = false
	if e.start {
		e.player.AddEmbargo(e.target, false)
		return
	}
	e.player.StopEmbargo(e.target)
}

// SetTargetTroopRatioExecution sets the share of population kept as troops.
type SetTargetTroopRatioExecution struct {
	oneShot
	playerID string
	ratio    float64
	player   *game.Player
}

func NewSetTargetTroopRatioExecution(playerID string, ratio float64) *SetTargetTroopRatioExecution {
	return &SetTargetTroopRatioExecution{oneShot: newOneShot(), playerID: playerID, ratio: ratio}
}

func (e *SetTargetTroopRatioExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "troop ratio", e.playerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
}

func (e *SetTargetTroopRatioExecution) Tick(game.Tick) {
	e.active = false
	if e.ratio < 0 || e.ratio > 1 {
		warn(e.g, "troop ratio out of range", logging.String("player", e.playerID), logging.Float64("ratio", e.ratio))
		return
	}
	e.player.SetTargetTroopRatio(e.ratio)
}

// BoatRetreatExecution turns one of the player's transport ships around.
type BoatRetreatExecution struct {
	oneShot
	playerID string
	unitID   int
	player   *game.Player
}

func NewBoatRetreatExecution(playerID string, unitID int) *BoatRetreatExecution {
	return &BoatRetreatExecution{oneShot: newOneShot(), playerID: playerID, unitID: unitID}
}

func (e *BoatRetreatExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "boat retreat", e.playerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
}

func (e *BoatRetreatExecution) Tick(game.Tick) {
	e.active = false
	if !e.player.OrderBoatRetreat(e.unitID) {
		warn(e.g, "no transport ship to retreat", logging.String("player", e.playerID), logging.Int("unit", e.unitID))
	}
}

// RetreatExecution calls back one of the player's land attacks.
type RetreatExecution struct {
	oneShot
	playerID string
	attackID string
	player   *game.Player
}

func NewRetreatExecution(playerID, attackID string) *RetreatExecution {
	return &RetreatExecution{oneShot: newOneShot(), playerID: playerID, attackID: attackID}
}

func (e *RetreatExecution) Init(g *game.Game, _ game.Tick) {
	e.g = g
	player, ok := lookupPlayer(g, "retreat", e.playerID)
	if !ok {
		e.active = false
		return
	}
	e.player = player
}

func (e *RetreatExecution) Tick(game.Tick) {
	e.active = false
	e.player.OrderRetreat(e.attackID)
}
