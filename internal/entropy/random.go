// Package entropy provides seeds and random sources for tile generation.
// A zero seed means "pick one": it is drawn from crypto/rand so separate runs
// differ, while a fixed seed reproduces a run exactly.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// Seed returns seed unchanged when non-zero, otherwise a fresh crypto-random seed.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return cryptoSeed()
}

// NewRand returns a math/rand source for the given seed (0 = random).
func NewRand(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(Seed(seed)))
}

// cryptoSeed draws a non-zero int64 from crypto/rand.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; fall back to the global source.
		slog.Debug("crypto seed failed", "error", err)
		return mrand.Int63() | 1
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if n == 0 {
		n = 1
	}
	return n
}
