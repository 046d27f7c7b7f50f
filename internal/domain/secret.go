package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SecretBytes is the entropy of a generated link secret.
const SecretBytes = 32

// GenerateSecret returns a random hex secret for a new link record.
func GenerateSecret() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
