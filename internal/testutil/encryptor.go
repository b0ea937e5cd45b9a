package testutil

import (
	"sfh-go/internal/encryption"
	"sfh-go/internal/sfh"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() sfh.Encryptor {
	return encryption.NewTestEncryptor()
}
