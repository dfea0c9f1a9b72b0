package identity

import (
	"crypto/rand"
	"math/big"
)

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()_+{}:<>?[];,./~"
)

// GenerateTemporaryPassword returns a random password satisfying the user
// pool's policy: at least one upper, lower, digit and special character,
// twelve characters total.
func GenerateTemporaryPassword() string {
	all := upperChars + lowerChars + digitChars + specialChars

	chars := []byte{
		randomChar(upperChars),
		randomChar(lowerChars),
		randomChar(digitChars),
		randomChar(specialChars),
	}
	for i := 0; i < 8; i++ {
		chars = append(chars, randomChar(all))
	}

	// Fisher-Yates so the mandatory characters aren't always in front.
	for i := len(chars) - 1; i > 0; i-- {
		j := randomIndex(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}

func randomChar(set string) byte {
	return set[randomIndex(len(set))]
}

func randomIndex(n int) int {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the platform source is broken.
		panic(err)
	}
	return int(idx.Int64())
}
