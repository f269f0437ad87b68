package timestamp

import (
	crand "crypto/rand"
	"math/rand/v2"
)

func newSecureRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) //nolint:errcheck // never fails since Go 1.24
	return rand.New(rand.NewChaCha8(seed))
}
