// Package wire encodes one tick's GameUpdates as protobuf wire format.
//
// A batch is {1: tick, 2: repeated group}; a group is {1: update type, 2: repeated
// record}; each record is a flat message whose field numbers are listed per update type
// below. Zero values are omitted as in proto3, so decoders must default missing fields.
package wire

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"openfront/engine/internal/game"
)

const (
	batchTick  protowire.Number = 1
	batchGroup protowire.Number = 2

	groupType   protowire.Number = 1
	groupRecord protowire.Number = 2
)

// Hash record fields.
const (
	hashTick  protowire.Number = 1
	hashValue protowire.Number = 2
)

// Tile record fields.
const tilePacked protowire.Number = 1

// Encode serialises the batch. Groups appear in UpdateType order and records keep
// their emission order, so equal batches always produce equal bytes.
func Encode(u *game.GameUpdates) ([]byte, error) {
	var out []byte
	out = protowire.AppendTag(out, batchTick, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(u.Tick))

	for t := game.UpdateType(0); t < game.NumUpdateTypes; t++ {
		list := u.Of(t)
		if len(list) == 0 {
			continue
		}
		var group []byte
		group = protowire.AppendTag(group, groupType, protowire.VarintType)
		group = protowire.AppendVarint(group, uint64(t))
		for _, update := range list {
			record, err := encodeRecord(update)
			if err != nil {
				return nil, fmt.Errorf("encode %s update: %w", t, err)
			}
			group = protowire.AppendTag(group, groupRecord, protowire.BytesType)
			group = protowire.AppendBytes(group, record)
		}
		out = protowire.AppendTag(out, batchGroup, protowire.BytesType)
		out = protowire.AppendBytes(out, group)
	}
	return out, nil
}

// msg accumulates one record. Zero values are skipped.
type msg struct{ b []byte }

func (m *msg) uint(n protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	m.b = protowire.AppendTag(m.b, n, protowire.VarintType)
	m.b = protowire.AppendVarint(m.b, v)
}

func (m *msg) int(n protowire.Number, v int64) {
	if v == 0 {
		return
	}
	m.b = protowire.AppendTag(m.b, n, protowire.VarintType)
	m.b = protowire.AppendVarint(m.b, protowire.EncodeZigZag(v))
}

// tile encodes a TileRef shifted by one so NoTile and tile 0 stay distinct.
func (m *msg) tile(n protowire.Number, v uint32) {
	m.uint(n, uint64(v+1))
}

func (m *msg) bool(n protowire.Number, v bool) {
	if v {
		m.uint(n, 1)
	}
}

func (m *msg) str(n protowire.Number, v string) {
	if v == "" {
		return
	}
	m.b = protowire.AppendTag(m.b, n, protowire.BytesType)
	m.b = protowire.AppendString(m.b, v)
}

func (m *msg) bytes(n protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	m.b = protowire.AppendTag(m.b, n, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, v)
}

func (m *msg) double(n protowire.Number, v float64) {
	if v == 0 {
		return
	}
	m.b = protowire.AppendTag(m.b, n, protowire.Fixed64Type)
	m.b = protowire.AppendFixed64(m.b, math.Float64bits(v))
}

func (m *msg) ids(n protowire.Number, v []uint16) {
	if len(v) == 0 {
		return
	}
	var packed []byte
	for _, id := range v {
		packed = protowire.AppendVarint(packed, uint64(id))
	}
	m.bytes(n, packed)
}

func (m *msg) sub(n protowire.Number, inner msg) {
	m.b = protowire.AppendTag(m.b, n, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, inner.b)
}

func emoji(e game.EmojiMessage) msg {
	var m msg
	m.str(1, e.Message)
	m.uint(2, uint64(e.SenderID))
	m.uint(3, uint64(e.RecipientID))
	m.uint(4, uint64(e.CreatedAt))
	return m
}

func attack(a game.AttackUpdate) msg {
	var m msg
	m.uint(1, uint64(a.AttackerID))
	m.uint(2, uint64(a.TargetID))
	m.int(3, a.Troops)
	m.str(4, a.ID)
	m.bool(5, a.Retreating)
	return m
}

func allianceRequest(r game.AllianceRequestUpdate) msg {
	var m msg
	m.uint(1, uint64(r.RequestorID))
	m.uint(2, uint64(r.RecipientID))
	m.uint(3, uint64(r.CreatedAt))
	return m
}

func encodeRecord(update game.Update) ([]byte, error) {
	var m msg
	switch u := update.(type) {
	case game.TileUpdate:
		m.uint(tilePacked, u.Packed)
	case game.UnitUpdate:
		m.uint(1, uint64(u.UnitType)+1)
		m.uint(2, uint64(u.ID))
		m.int(3, u.Troops)
		m.uint(4, uint64(u.OwnerID))
		m.uint(5, uint64(u.LastOwnerID))
		m.tile(6, uint32(u.Pos))
		m.tile(7, uint32(u.LastPos))
		m.bool(8, u.IsActive)
		m.bool(9, u.ReachedTarget)
		m.bool(10, u.Retreating)
		m.bool(11, u.Targetable)
		m.uint(12, uint64(u.TargetUnitID))
		m.tile(13, uint32(u.TargetTile))
		m.int(14, int64(u.Health))
		m.bool(15, u.HasHealth)
		if u.HasConstruction {
			m.uint(16, uint64(u.ConstructionType)+1)
		}
		if len(u.MissileTimerQueue) > 0 {
			var packed []byte
			for _, t := range u.MissileTimerQueue {
				packed = protowire.AppendVarint(packed, uint64(t))
			}
			m.bytes(17, packed)
		}
		m.int(18, int64(u.ReadyMissileCount))
		m.int(19, int64(u.Level))
	case game.PlayerUpdate:
		m.str(1, u.ClientID)
		m.str(2, u.Name)
		m.str(3, u.DisplayName)
		m.str(4, u.ID)
		m.str(5, u.Team)
		m.uint(6, uint64(u.SmallID))
		m.str(7, string(u.PlayerType))
		m.bool(8, u.IsAlive)
		m.bool(9, u.IsDisconnected)
		m.int(10, int64(u.TilesOwned))
		m.int(11, int64(u.Gold))
		m.int(12, u.Population)
		m.int(13, u.Workers)
		m.int(14, u.Troops)
		m.double(15, u.TargetTroopRatio)
		m.ids(16, u.Allies)
		m.ids(17, u.Embargoes)
		m.bool(18, u.IsTraitor)
		m.ids(19, u.Targets)
		for _, e := range u.OutgoingEmojis {
			m.sub(20, emoji(e))
		}
		for _, a := range u.OutgoingAttacks {
			m.sub(21, attack(a))
		}
		for _, a := range u.IncomingAttacks {
			m.sub(22, attack(a))
		}
		m.ids(23, u.OutgoingAllianceRequests)
		m.bool(24, u.HasSpawned)
		m.int(25, u.Betrayals)
	case game.DisplayMessageUpdate:
		m.str(1, u.Message)
		m.uint(2, uint64(u.MessageType)+1)
		m.int(3, int64(u.GoldAmount))
		m.uint(4, uint64(u.PlayerID))
	case game.DisplayChatUpdate:
		m.str(1, u.Key)
		m.str(2, u.Category)
		m.str(3, u.Target)
		m.uint(4, uint64(u.PlayerID))
		m.bool(5, u.IsFrom)
		m.str(6, u.Recipient)
	case game.AllianceRequestUpdate:
		m = allianceRequest(u)
	case game.AllianceRequestReplyUpdate:
		m.sub(1, allianceRequest(u.Request))
		m.bool(2, u.Accepted)
	case game.BrokeAllianceUpdate:
		m.uint(1, uint64(u.TraitorID))
		m.uint(2, uint64(u.BetrayedID))
	case game.AllianceExpiredUpdate:
		m.uint(1, uint64(u.Player1ID))
		m.uint(2, uint64(u.Player2ID))
	case game.TargetPlayerUpdate:
		m.uint(1, uint64(u.PlayerID))
		m.uint(2, uint64(u.TargetID))
	case game.EmojiUpdate:
		m.sub(1, emoji(u.Emoji))
	case game.WinUpdate:
		m.uint(1, uint64(u.WinnerID))
		m.str(2, u.Team)
		if len(u.Stats) > 0 {
			//1.- Stats are an open-ended map, so they travel as JSON.
			raw, err := json.Marshal(u.Stats)
			if err != nil {
				return nil, fmt.Errorf("marshal win stats: %w", err)
			}
			m.bytes(3, raw)
		}
	case game.HashUpdate:
		m.uint(hashTick, uint64(u.Tick))
		m.uint(hashValue, u.Hash)
	case game.UnitIncomingUpdate:
		m.uint(1, uint64(u.UnitID))
		m.str(2, u.Message)
		m.uint(3, uint64(u.MessageType)+1)
		m.uint(4, uint64(u.PlayerID))
	case game.BonusEventUpdate:
		m.tile(1, uint32(u.Tile))
		m.int(2, int64(u.Gold))
		m.int(3, u.Workers)
		m.int(4, u.Troops)
	case game.RailroadUpdate:
		m.bool(1, u.IsActive)
		for _, rt := range u.RailTiles {
			var inner msg
			inner.tile(1, uint32(rt.Tile))
			inner.uint(2, uint64(rt.RailType)+1)
			m.sub(2, inner)
		}
	default:
		return nil, fmt.Errorf("unsupported update %T", update)
	}
	return m.b, nil
}
