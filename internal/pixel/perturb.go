package pixel

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// DefaultPerturbCount is the number of pixel positions altered by default.
const DefaultPerturbCount = 5

// Perturb alters count pixel positions of h in place and returns the
// number of positions visited.
//
// Positions are drawn uniformly with replacement, so the same pixel may be
// visited twice. Every colour channel of a visited pixel moves by a delta
// drawn from {-1, 0, +1} and is clamped to [0, 255]. The alpha channel is
// never modified. The positions are not returned to the caller.
func Perturb(h *Handle, count int, rng *rand.Rand) int {
	if count <= 0 || h.width == 0 || h.height == 0 {
		return 0
	}

	colour := h.mode.ColorChannels()
	for range count {
		x := rng.IntN(h.width)
		y := rng.IntN(h.height)
		off := h.offset(x, y)
		for c := range colour {
			h.pix[off+c] = clamp8(int(h.pix[off+c]) + rng.IntN(3) - 1)
		}
	}
	return count
}

func clamp8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	default:
		return uint8(v)
	}
}

// NewSecureRand returns a ChaCha8 generator seeded from the operating
// system's secure random source.
func NewSecureRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) //nolint:errcheck // crypto/rand.Read never returns an error since Go 1.24
	return rand.New(rand.NewChaCha8(seed))
}

// NewSeededRand returns a deterministic generator for tests and
// reproducible runs.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
