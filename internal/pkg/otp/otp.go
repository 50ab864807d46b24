package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateCode returns a decimal code of exactly length digits, drawn
// uniformly from the digit alphabet (leading zeros preserved).
func GenerateCode(length int) (string, error) {
	if length < 1 {
		length = 6
	}
	max := big.NewInt(10)
	for i := 1; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
