// Package prng provides the seeded generator behind every random decision in the
// simulation. Identical seeds produce identical streams on every platform.
package prng

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

const (
	fixedState1 int32  = 0x6e2d786c
	warmupSteps        = 20
	modulus     uint32 = 1 << 31
)

// Random is a 32-bit xorshift generator.
type Random struct {
	state0 int32
	state1 int32
}

// New seeds a generator. Only the low 32 bits of the seed are significant.
func New(seed int64) *Random {
	r := &Random{state0: int32(seed), state1: fixedState1}
	if r.state0 == 0 {
		r.state0 = 1
	}
	for i := 0; i < warmupSteps; i++ {
		r.step()
	}
	return r
}

func (r *Random) step() int32 {
	s1 := r.state0
	s0 := r.state1
	r.state0 = s0
	s1 ^= s1 << 23
	s1 ^= int32(uint32(s1) >> 17)
	s1 ^= s0
	s1 ^= int32(uint32(s0) >> 26)
	r.state1 = s1
	return r.state0 + r.state1
}

// Next returns a value in [0, 1).
func (r *Random) Next() float64 {
	v := uint32(r.step()) % modulus
	return float64(v) / float64(modulus)
}

// NextInt returns an integer in [min, max).
func (r *Random) NextInt(min, max int) int {
	return int(math.Floor(float64(r.Next()*float64(max-min)) + float64(min)))
}

// NextFloat returns a float in [min, max).
func (r *Random) NextFloat(min, max float64) float64 {
	return float64(r.Next()*(max-min)) + min
}

// NextID returns an eight character base36 identifier.
func (r *Random) NextID() string {
	v := r.NextInt(0, 2821109907456) // 36^8
	id := strconv.FormatInt(int64(v), 36)
	if len(id) < 8 {
		id = strings.Repeat("0", 8-len(id)) + id
	}
	return id
}

// Chance reports true with probability 1/odds.
func (r *Random) Chance(odds int) bool {
	return r.NextInt(0, odds) == 0
}

// Pick returns a random element. It panics on an empty slice.
func Pick[T any](r *Random, items []T) T {
	if len(items) == 0 {
		panic("prng: array must not be empty")
	}
	return items[r.NextInt(0, len(items))]
}

// Shuffle returns a shuffled copy of items.
func Shuffle[T any](r *Random, items []T) []T {
	out := append([]T(nil), items...)
	for i := len(out) - 1; i >= 0; i-- {
		j := r.NextInt(0, i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SimpleHash is the 31-multiplier string hash used for unit hashes and bot seeds.
func SimpleHash(s string) int64 {
	var hash int32
	for _, c := range []byte(s) {
		hash = (hash << 5) - hash + int32(c)
	}
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return h
}

// SeedFor derives a stable seed from a game identifier and a label.
func SeedFor(root, label string) int64 {
	//1.- Hash with a separator so both inputs influence the digest independently.
	digest := sha256.Sum256([]byte("engine.seed\x00" + root + "\x00" + label))
	//2.- Fold the first eight bytes into a non-zero signed seed.
	seed := int64(binary.LittleEndian.Uint64(digest[0:8]))
	if seed == 0 {
		seed = int64(binary.LittleEndian.Uint64(digest[8:16]))
	}
	if seed == 0 {
		seed = 1
	}
	return seed
}
