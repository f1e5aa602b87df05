// Package ids mints identifiers for networks, nodes, edges, agents and runs.
//
// Identifiers are UUIDs drawn from a caller supplied random source so a seeded
// simulation produces the same identifiers on every run.
package ids

import (
	"io"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// New returns a random UUID string read from rng. A nil rng falls back to a
// time-seeded source.
func New(rng *rand.Rand) string {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return FromReader(rng)
}

// FromReader returns a UUID string read from r, or a crypto-random one when r
// fails.
func FromReader(r io.Reader) string {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
