// Package game holds the mutable world state of a match (players, units, diplomacy) and
// the orchestrator that advances it one tick at a time.
package game

import (
	"fmt"
	"regexp"
)

// Tick counts completed simulation steps.
type Tick = int

// Gold is an exact integer currency amount.
type Gold = int64

// UnitType is the closed set of unit kinds.
type UnitType uint8

const (
	TransportShip UnitType = iota
	Warship
	Shell
	SAMMissile
	Port
	AtomBomb
	HydrogenBomb
	TradeShip
	MissileSilo
	DefensePost
	SAMLauncher
	City
	MIRV
	MIRVWarhead
	Construction
	Train
	Factory
	CityUpgrade

	numUnitTypes
)

var unitTypeNames = [numUnitTypes]string{
	TransportShip: "Transport Ship",
	Warship:       "Warship",
	Shell:         "Shell",
	SAMMissile:    "SAM Missile",
	Port:          "Port",
	AtomBomb:      "Atom Bomb",
	HydrogenBomb:  "Hydrogen Bomb",
	TradeShip:     "Trade Ship",
	MissileSilo:   "Missile Silo",
	DefensePost:   "Defense Post",
	SAMLauncher:   "SAM Launcher",
	City:          "City",
	MIRV:          "MIRV",
	MIRVWarhead:   "MIRV Warhead",
	Construction:  "Construction",
	Train:         "Train",
	Factory:       "Factory",
	CityUpgrade:   "City Upgrade",
}

func (t UnitType) String() string {
	if t < numUnitTypes {
		return unitTypeNames[t]
	}
	return fmt.Sprintf("UnitType(%d)", uint8(t))
}

// AllUnitTypes lists every unit type in declaration order.
func AllUnitTypes() []UnitType {
	out := make([]UnitType, numUnitTypes)
	for i := range out {
		out[i] = UnitType(i)
	}
	return out
}

// ParseUnitType resolves a display name such as "Atom Bomb".
func ParseUnitType(name string) (UnitType, error) {
	for i, n := range unitTypeNames {
		if n == name {
			return UnitType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unit type %q", name)
}

// IsNuke reports the ballistic types that SAMs and blasts treat specially.
func (t UnitType) IsNuke() bool {
	switch t {
	case AtomBomb, HydrogenBomb, MIRVWarhead, MIRV:
		return true
	}
	return false
}

// IsStructure reports the types drawn and protected as buildings.
func (t UnitType) IsStructure() bool {
	switch t {
	case City, Construction, DefensePost, SAMLauncher, MissileSilo, Port, Factory:
		return true
	}
	return false
}

// UnitInfo is the static balance data of a unit type.
type UnitInfo struct {
	Cost           func(p *Player) Gold
	TerritoryBound bool
	// MaxHealth is zero for units without health.
	MaxHealth            int
	Damage               int
	ConstructionDuration *Tick
	Upgradable           bool
}

// HasHealth reports whether the type tracks health.
func (i UnitInfo) HasHealth() bool { return i.MaxHealth > 0 }

// Relation buckets a relation score.
type Relation int

const (
	Hostile Relation = iota
	Distrustful
	Neutral
	Friendly
)

func (r Relation) String() string {
	switch r {
	case Hostile:
		return "Hostile"
	case Distrustful:
		return "Distrustful"
	case Neutral:
		return "Neutral"
	case Friendly:
		return "Friendly"
	}
	return fmt.Sprintf("Relation(%d)", int(r))
}

// PlayerType distinguishes humans from the two AI flavours.
type PlayerType string

const (
	PlayerBot       PlayerType = "BOT"
	PlayerHuman     PlayerType = "HUMAN"
	PlayerFakeHuman PlayerType = "FAKEHUMAN"
)

var clanPattern = regexp.MustCompile(`^\[([a-zA-Z]{2,5})\]`)

// PlayerInfo is the immutable identity of a player.
type PlayerInfo struct {
	Name     string
	Type     PlayerType
	ClientID string
	ID       string
	Team     string
}

// Clan extracts the "[TAG]" prefix of the name.
func (i PlayerInfo) Clan() string {
	m := clanPattern.FindStringSubmatch(i.Name)
	if m == nil {
		return ""
	}
	return m[1]
}

// MessageType classifies display messages.
type MessageType int

const (
	MsgAttackFailed MessageType = iota
	MsgAttackCancelled
	MsgAttackRequest
	MsgConqueredPlayer
	MsgMIRVInbound
	MsgNukeInbound
	MsgHydrogenBombInbound
	MsgNavalInvasionInbound
	MsgSAMMiss
	MsgSAMHit
	MsgCapturedEnemyUnit
	MsgUnitCapturedByEnemy
	MsgUnitDestroyed
	MsgAllianceAccepted
	MsgAllianceRejected
	MsgAllianceRequest
	MsgAllianceBroken
	MsgAllianceExpired
	MsgSentGoldToPlayer
	MsgReceivedGoldFromPlayer
	MsgReceivedGoldFromTrade
	MsgSentTroopsToPlayer
	MsgReceivedTroopsFromPlayer
	MsgChat
	MsgRenewAlliance
	MsgError
	MsgSuccess
	MsgInfo

	numMessageTypes
)

// MessageCategory groups message types for client-side filtering.
type MessageCategory string

const (
	CategoryAttack   MessageCategory = "ATTACK"
	CategoryAlliance MessageCategory = "ALLIANCE"
	CategoryTrade    MessageCategory = "TRADE"
	CategoryChat     MessageCategory = "CHAT"
	CategoryGeneral  MessageCategory = "GENERAL"
)

// Category maps every message type to its category.
func (m MessageType) Category() MessageCategory {
	switch m {
	case MsgAttackFailed, MsgAttackCancelled, MsgAttackRequest, MsgConqueredPlayer,
		MsgMIRVInbound, MsgNukeInbound, MsgHydrogenBombInbound, MsgNavalInvasionInbound,
		MsgSAMMiss, MsgSAMHit, MsgCapturedEnemyUnit, MsgUnitCapturedByEnemy, MsgUnitDestroyed:
		return CategoryAttack
	case MsgAllianceAccepted, MsgAllianceRejected, MsgAllianceRequest, MsgAllianceBroken,
		MsgAllianceExpired, MsgRenewAlliance:
		return CategoryAlliance
	case MsgSentGoldToPlayer, MsgReceivedGoldFromPlayer, MsgReceivedGoldFromTrade,
		MsgSentTroopsToPlayer, MsgReceivedTroopsFromPlayer:
		return CategoryTrade
	case MsgChat:
		return CategoryChat
	case MsgError, MsgSuccess, MsgInfo:
		return CategoryGeneral
	}
	panic(fmt.Sprintf("game: message type %d has no category", int(m)))
}

// EmojiMessage is an emoji sent to one player or everyone.
type EmojiMessage struct {
	Message     string
	SenderID    uint16
	RecipientID uint16 // AllPlayers for a broadcast
	CreatedAt   Tick
}

// AllPlayers addresses an emoji to every player.
const AllPlayers uint16 = 0xffff
