package platformid

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generate returns a random 8–10 digit decimal string used as the
// public-facing platform identifier of an account. Uniqueness is the
// caller's job — collisions are resolved by regenerating.
func Generate() (string, error) {
	// Uniform over [10^7, 10^10), so the string is 8 to 10 digits long.
	lo := big.NewInt(10_000_000)
	hi := big.NewInt(10_000_000_000)
	n, err := rand.Int(rand.Reader, new(big.Int).Sub(hi, lo))
	if err != nil {
		return "", fmt.Errorf("generate platform id: %w", err)
	}
	return n.Add(n, lo).String(), nil
}
