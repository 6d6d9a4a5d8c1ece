package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"openfront/engine/internal/game"
)

// ErrMalformed reports bytes that are not a valid batch.
var ErrMalformed = errors.New("malformed update batch")

// Batch is a decoded frame with its records left in wire form.
type Batch struct {
	Tick    game.Tick
	Records [game.NumUpdateTypes][][]byte
}

// Count returns the number of records of one type.
func (b *Batch) Count(t game.UpdateType) int {
	if t >= game.NumUpdateTypes {
		return 0
	}
	return len(b.Records[t])
}

// Decode splits a frame into per-type records.
func Decode(raw []byte) (*Batch, error) {
	batch := &Batch{}
	err := walk(raw, func(num protowire.Number, typ protowire.Type, value uint64, payload []byte) error {
		switch {
		case num == batchTick && typ == protowire.VarintType:
			batch.Tick = game.Tick(value)
		case num == batchGroup && typ == protowire.BytesType:
			return decodeGroup(batch, payload)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func decodeGroup(batch *Batch, raw []byte) error {
	var (
		kind    uint64
		records [][]byte
	)
	err := walk(raw, func(num protowire.Number, typ protowire.Type, value uint64, payload []byte) error {
		switch {
		case num == groupType && typ == protowire.VarintType:
			kind = value
		case num == groupRecord && typ == protowire.BytesType:
			records = append(records, payload)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if kind >= uint64(game.NumUpdateTypes) {
		return fmt.Errorf("%w: unknown update type %d", ErrMalformed, kind)
	}
	batch.Records[kind] = append(batch.Records[kind], records...)
	return nil
}

// DecodeHashes extracts the hash records of a frame.
func DecodeHashes(raw []byte) ([]game.HashUpdate, error) {
	batch, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	out := make([]game.HashUpdate, 0, batch.Count(game.UpdateHash))
	for _, record := range batch.Records[game.UpdateHash] {
		var h game.HashUpdate
		err := walk(record, func(num protowire.Number, typ protowire.Type, value uint64, _ []byte) error {
			if typ != protowire.VarintType {
				return nil
			}
			switch num {
			case hashTick:
				h.Tick = game.Tick(value)
			case hashValue:
				h.Hash = value
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// DecodeTiles extracts the packed tile states of a frame in emission order.
func DecodeTiles(raw []byte) ([]uint64, error) {
	batch, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, batch.Count(game.UpdateTile))
	for _, record := range batch.Records[game.UpdateTile] {
		var packed uint64
		err := walk(record, func(num protowire.Number, typ protowire.Type, value uint64, _ []byte) error {
			if num == tilePacked && typ == protowire.VarintType {
				packed = value
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, packed)
	}
	return out, nil
}

// walk visits every field of one message. Varint values arrive in value; length
// delimited fields arrive in payload. Unknown wire types are skipped.
func walk(raw []byte, visit func(num protowire.Number, typ protowire.Type, value uint64, payload []byte) error) error {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		raw = raw[n:]

		var (
			value   uint64
			payload []byte
		)
		switch typ {
		case protowire.VarintType:
			value, n = protowire.ConsumeVarint(raw)
		case protowire.BytesType:
			payload, n = protowire.ConsumeBytes(raw)
		default:
			n = protowire.ConsumeFieldValue(num, typ, raw)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
		}
		raw = raw[n:]
		if err := visit(num, typ, value, payload); err != nil {
			return err
		}
	}
	return nil
}
