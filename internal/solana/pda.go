package solana

import (
	"crypto/sha256"
	"fmt"
)

// pdaMarker terminates the seed preimage of a program-derived address.
var pdaMarker = []byte("ProgramDerivedAddress")

// FindProgramAddress derives the canonical program-derived address for the
// seeds, walking the bump down from 255 until the hash lands off-curve.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write(pdaMarker)

		var candidate Pubkey
		copy(candidate[:], h.Sum(nil))

		// A PDA must not be a valid curve point, or it would have a
		// private key.
		if !candidate.OnCurve() {
			return candidate, uint8(bump), nil
		}
	}
	return Pubkey{}, 0, fmt.Errorf("no viable bump for seeds")
}
