package game

import (
	"fmt"

	"openfront/engine/internal/gamemap"
)

// UpdateType keys the per-tick update batch.
type UpdateType uint8

const (
	UpdateTile UpdateType = iota
	UpdateUnit
	UpdatePlayer
	UpdateDisplayEvent
	UpdateDisplayChatEvent
	UpdateAllianceRequest
	UpdateAllianceRequestReply
	UpdateBrokeAlliance
	UpdateAllianceExpired
	UpdateTargetPlayer
	UpdateEmoji
	UpdateWin
	UpdateHash
	UpdateUnitIncoming
	UpdateBonusEvent
	UpdateRailroadEvent

	NumUpdateTypes
)

var updateTypeNames = [NumUpdateTypes]string{
	"Tile", "Unit", "Player", "DisplayEvent", "DisplayChatEvent", "AllianceRequest",
	"AllianceRequestReply", "BrokeAlliance", "AllianceExpired", "TargetPlayer", "Emoji",
	"Win", "Hash", "UnitIncoming", "BonusEvent", "RailroadEvent",
}

func (t UpdateType) String() string {
	if t < NumUpdateTypes {
		return updateTypeNames[t]
	}
	return fmt.Sprintf("UpdateType(%d)", uint8(t))
}

// Update is one record of the per-tick diff. Records reference players and units by
// small integer IDs only.
type Update interface {
	UpdateType() UpdateType
}

// TileUpdate carries a packed tile state, see gamemap.PackTileUpdate.
type TileUpdate struct {
	Packed uint64
}

type UnitUpdate struct {
	UnitType          UnitType
	ID                int
	Troops            int64
	OwnerID           uint16
	LastOwnerID       uint16
	Pos               gamemap.TileRef
	LastPos           gamemap.TileRef
	IsActive          bool
	ReachedTarget     bool
	Retreating        bool
	Targetable        bool
	TargetUnitID      int // 0 when unset
	TargetTile        gamemap.TileRef
	Health            int
	HasHealth         bool
	ConstructionType  UnitType
	HasConstruction   bool
	MissileTimerQueue []Tick
	ReadyMissileCount int
	Level             int
}

// AttackUpdate summarises one attack inside a PlayerUpdate.
type AttackUpdate struct {
	AttackerID uint16
	TargetID   uint16
	Troops     int64
	ID         string
	Retreating bool
}

type PlayerUpdate struct {
	ClientID                 string
	Name                     string
	DisplayName              string
	ID                       string
	Team                     string
	SmallID                  uint16
	PlayerType               PlayerType
	IsAlive                  bool
	IsDisconnected           bool
	TilesOwned               int
	Gold                     Gold
	Population               int64
	Workers                  int64
	Troops                   int64
	TargetTroopRatio         float64
	Allies                   []uint16
	Embargoes                []uint16
	IsTraitor                bool
	Targets                  []uint16
	OutgoingEmojis           []EmojiMessage
	OutgoingAttacks          []AttackUpdate
	IncomingAttacks          []AttackUpdate
	OutgoingAllianceRequests []uint16
	HasSpawned               bool
	Betrayals                int64
}

type AllianceRequestUpdate struct {
	RequestorID uint16
	RecipientID uint16
	CreatedAt   Tick
}

type AllianceRequestReplyUpdate struct {
	Request  AllianceRequestUpdate
	Accepted bool
}

type BrokeAllianceUpdate struct {
	TraitorID  uint16
	BetrayedID uint16
}

type AllianceExpiredUpdate struct {
	Player1ID uint16
	Player2ID uint16
}

type TargetPlayerUpdate struct {
	PlayerID uint16
	TargetID uint16
}

type EmojiUpdate struct {
	Emoji EmojiMessage
}

// DisplayMessageUpdate is an in-band notice. PlayerID 0 addresses everyone.
type DisplayMessageUpdate struct {
	Message     string
	MessageType MessageType
	GoldAmount  Gold
	PlayerID    uint16
}

type DisplayChatUpdate struct {
	Key       string
	Category  string
	Target    string
	PlayerID  uint16
	IsFrom    bool
	Recipient string
}

// WinUpdate names the winner: a player small ID, or a team when Team is set.
type WinUpdate struct {
	WinnerID uint16
	Team     string
	Stats    map[string]PlayerStats
}

type HashUpdate struct {
	Tick Tick
	Hash uint64
}

type UnitIncomingUpdate struct {
	UnitID      int
	Message     string
	MessageType MessageType
	PlayerID    uint16
}

type BonusEventUpdate struct {
	Tile    gamemap.TileRef
	Gold    Gold
	Workers int64
	Troops  int64
}

// RailType orients one rail segment.
type RailType uint8

const (
	RailVertical RailType = iota
	RailHorizontal
	RailTopLeft
	RailTopRight
	RailBottomLeft
	RailBottomRight
)

type RailTile struct {
	Tile     gamemap.TileRef
	RailType RailType
}

type RailroadUpdate struct {
	IsActive  bool
	RailTiles []RailTile
}

func (TileUpdate) UpdateType() UpdateType                 { return UpdateTile }
func (UnitUpdate) UpdateType() UpdateType                 { return UpdateUnit }
func (PlayerUpdate) UpdateType() UpdateType               { return UpdatePlayer }
func (DisplayMessageUpdate) UpdateType() UpdateType       { return UpdateDisplayEvent }
func (DisplayChatUpdate) UpdateType() UpdateType          { return UpdateDisplayChatEvent }
func (AllianceRequestUpdate) UpdateType() UpdateType      { return UpdateAllianceRequest }
func (AllianceRequestReplyUpdate) UpdateType() UpdateType { return UpdateAllianceRequestReply }
func (BrokeAllianceUpdate) UpdateType() UpdateType        { return UpdateBrokeAlliance }
func (AllianceExpiredUpdate) UpdateType() UpdateType      { return UpdateAllianceExpired }
func (TargetPlayerUpdate) UpdateType() UpdateType         { return UpdateTargetPlayer }
func (EmojiUpdate) UpdateType() UpdateType                { return UpdateEmoji }
func (WinUpdate) UpdateType() UpdateType                  { return UpdateWin }
func (HashUpdate) UpdateType() UpdateType                 { return UpdateHash }
func (UnitIncomingUpdate) UpdateType() UpdateType         { return UpdateUnitIncoming }
func (BonusEventUpdate) UpdateType() UpdateType           { return UpdateBonusEvent }
func (RailroadUpdate) UpdateType() UpdateType             { return UpdateRailroadEvent }

// GameUpdates is the diff produced by one tick, grouped by type in emission order.
type GameUpdates struct {
	Tick    Tick
	updates [NumUpdateTypes][]Update
}

// NewGameUpdates returns an empty batch for tick.
func NewGameUpdates(tick Tick) *GameUpdates {
	return &GameUpdates{Tick: tick}
}

// Add appends an update under its type.
func (u *GameUpdates) Add(update Update) {
	t := update.UpdateType()
	u.updates[t] = append(u.updates[t], update)
}

// Of returns the updates of one type in emission order.
func (u *GameUpdates) Of(t UpdateType) []Update {
	if t >= NumUpdateTypes {
		return nil
	}
	return u.updates[t]
}

// Len counts every update in the batch.
func (u *GameUpdates) Len() int {
	n := 0
	for _, list := range u.updates {
		n += len(list)
	}
	return n
}
