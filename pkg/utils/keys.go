package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomKey returns length random bytes, URL-safe base64 encoded.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateSecretKey returns a 32 character secret usable both for signing
// tokens and as an AES-256 key.
func GenerateSecretKey() (string, error) {
	return GenerateRandomKey(24)
}
