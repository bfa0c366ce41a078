package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"time"

	"lottopot/internal/models"
)

// Source produces a uniformly distributed index in [0, n). Implementations
// are pluggable: anything satisfying this contract can replace HashSource
// without the draw logic changing.
type Source interface {
	Draw(caller string, n int) (int, error)
}

// HashSource derives an index by hashing the current time, a configured
// entropy seed, the caller identity and a strictly increasing nonce.
//
// Every input is knowable in advance by whoever controls the environment,
// so the output is predictable to a sufficiently privileged party. That is
// a documented property, not a bug: deployments that need unpredictability
// must substitute a verifiable randomness source behind the Source
// interface.
//
// Not safe for concurrent use; the round service serializes draws.
type HashSource struct {
	seed  string
	now   func() time.Time
	nonce uint64
}

// NewHashSource returns a HashSource seeded with the given entropy string.
func NewHashSource(seed string, now func() time.Time) *HashSource {
	if now == nil {
		now = time.Now
	}
	return &HashSource{seed: seed, now: now}
}

// Draw returns an index in [0, n). Fails only when n is not positive.
func (s *HashSource) Draw(caller string, n int) (int, error) {
	if n <= 0 {
		return 0, models.ErrNoParticipants
	}

	s.nonce++

	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(s.now().UnixNano(), 10)))
	h.Write([]byte(s.seed))
	h.Write([]byte(caller))
	h.Write([]byte(strconv.FormatUint(s.nonce, 10)))

	digest := h.Sum(nil)
	return int(binary.BigEndian.Uint64(digest[:8]) % uint64(n)), nil
}
