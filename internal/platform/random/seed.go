// Package random provides cryptographic seed generation for the host
// commands that construct matchsim engines.
//
// The engine's own PRNG (engine.NewStream) is a deterministic, seeded
// counter-based generator; this package only supplies the entropy used to
// pick that seed when the caller does not want to pin one explicitly, e.g.
// for a fresh run of the CLI sweep runner.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random, non-negative 64-bit seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	seed := binary.LittleEndian.Uint64(b[:]) & uint64(^uint64(0)>>1)
	return int64(seed), nil
}
