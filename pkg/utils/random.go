package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns n bytes of cryptographic randomness, hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
