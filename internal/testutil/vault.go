package testutil

import (
	"sfh-go/internal/sfh"
	"sfh-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() sfh.Vault {
	return vault.NewMemoryVault("test-vault")
}
