// Package entropy supplies seeds for runs started without a fixed seed.
// Seeds come from crypto/rand so concurrent instances never collide.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"time"
)

// Seed returns a fresh non-zero seed. Zero is reserved to mean "pick one".
func Seed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto/rand unavailable, seeding from clock", "error", err)
		return time.Now().UnixNano() | 1
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if n == 0 {
		n = 1
	}
	return n
}

// Resolve returns seed unchanged unless it is zero, in which case a fresh
// seed is drawn and logged so the run can be replayed.
func Resolve(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	seed = Seed()
	slog.Info("drew random seed", "seed", seed)
	return seed
}
