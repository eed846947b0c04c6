package repository

import (
	"crypto/rand"
	"math/big"
)

const (
	referenceLength = 6
	// No 0/O or 1/I so references survive being read aloud.
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceAttempts = 5
)

func newReference() (string, error) {
	size := big.NewInt(int64(len(referenceAlphabet)))
	buf := make([]byte, referenceLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		buf[i] = referenceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
