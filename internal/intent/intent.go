// Package intent carries player commands from clients into the simulation: the JSON
// turn format, per-client validation, the translation into executions, and the turn
// queue the host loop drains.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidIntent wraps every decoding or validation failure.
	ErrInvalidIntent = errors.New("invalid intent")
	errEmptyPayload  = errors.New("empty intent payload")
)

// Type tags the intent union.
type Type string

const (
	TypeAttack               Type = "attack"
	TypeSpawn                Type = "spawn"
	TypeBoat                 Type = "boat"
	TypeAllianceRequest      Type = "allianceRequest"
	TypeAllianceRequestReply Type = "allianceRequestReply"
	TypeBreakAlliance        Type = "breakAlliance"
	TypeTargetPlayer         Type = "targetPlayer"
	TypeEmoji                Type = "emoji"
	TypeChat                 Type = "chat"
	TypeDonate               Type = "donate"
	TypeTroopRatio           Type = "troop_ratio"
	TypeBuildUnit            Type = "build_unit"
	TypeEmbargo              Type = "embargo"
	TypeCancelAttack         Type = "cancel_attack"
	TypeCancelBoat           Type = "cancel_boat"
)

var knownTypes = []Type{
	TypeAttack, TypeSpawn, TypeBoat, TypeAllianceRequest, TypeAllianceRequestReply,
	TypeBreakAlliance, TypeTargetPlayer, TypeEmoji, TypeChat, TypeDonate, TypeTroopRatio,
	TypeBuildUnit, TypeEmbargo, TypeCancelAttack, TypeCancelBoat,
}

// Known reports whether t is part of the union.
func (t Type) Known() bool { return slices.Contains(knownTypes, t) }

// Embargo actions.
const (
	EmbargoStart = "start"
	EmbargoStop  = "stop"
)

// Intent is one player command. Which fields matter depends on Type; the rest stay zero.
// Troops and Gold are pointers because null selects the default amount.
type Intent struct {
	Type     Type   `json:"type"`
	ClientID string `json:"clientID"`
	PlayerID string `json:"playerID"`

	// attack, boat, embargo
	TargetID string `json:"targetID,omitempty"`
	// attack, boat, donate
	Troops *int64 `json:"troops,omitempty"`
	// donate
	Gold *int64 `json:"gold,omitempty"`

	// spawn, boat, build_unit
	X    int    `json:"x,omitempty"`
	Y    int    `json:"y,omitempty"`
	Name string `json:"name,omitempty"`
	// spawn
	PlayerType string `json:"playerType,omitempty"`
	Flag       string `json:"flag,omitempty"`

	// allianceRequest, breakAlliance, emoji, chat, donate
	Recipient string `json:"recipient,omitempty"`
	// allianceRequestReply
	Requestor string `json:"requestor,omitempty"`
	Accept    bool   `json:"accept,omitempty"`
	// targetPlayer
	Target string `json:"target,omitempty"`
	// emoji
	Emoji string `json:"emoji,omitempty"`
	// chat: "category.key", plus the optional player the message refers to
	QuickChatKey string `json:"quickChatKey,omitempty"`
	ChatTarget   string `json:"chatTarget,omitempty"`
	// troop_ratio
	Ratio float64 `json:"ratio,omitempty"`
	// build_unit
	Unit string `json:"unit,omitempty"`
	// embargo
	Action string `json:"action,omitempty"`
	// cancel_attack
	AttackID string `json:"attackID,omitempty"`
	// cancel_boat
	UnitID int `json:"unitID,omitempty"`
}

// Turn is the batch of intents executed on one tick.
type Turn struct {
	TurnNumber int      `json:"turnNumber"`
	GameID     string   `json:"gameID"`
	Intents    []Intent `json:"intents"`
}

// Decode parses one client frame. Unknown types are rejected here so the rest of the
// pipeline only sees union members.
func Decode(raw []byte) (Intent, error) {
	//1.- Ensure we have data to decode before hitting JSON parsing.
	if len(raw) == 0 {
		return Intent{}, fmt.Errorf("%w: %w", ErrInvalidIntent, errEmptyPayload)
	}
	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return Intent{}, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}
	//2.- The tag decides the shape of everything else.
	if !in.Type.Known() {
		return Intent{}, fmt.Errorf("%w: unknown type %q", ErrInvalidIntent, in.Type)
	}
	return in, nil
}

// DecodeTurn parses a recorded turn and checks every intent tag.
func DecodeTurn(raw []byte) (Turn, error) {
	var turn Turn
	if err := json.Unmarshal(raw, &turn); err != nil {
		return Turn{}, fmt.Errorf("decode turn: %w", err)
	}
	for i, in := range turn.Intents {
		if !in.Type.Known() {
			return Turn{}, fmt.Errorf("turn %d intent %d: %w: unknown type %q", turn.TurnNumber, i, ErrInvalidIntent, in.Type)
		}
	}
	return turn, nil
}
