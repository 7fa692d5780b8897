package testutil

import (
	"seswi-go/internal/encryption"
	"seswi-go/internal/seswi"
	"seswi-go/internal/vault"
)

// NewTestCipher creates a deterministic cipher for testing.
func NewTestCipher() seswi.Cipher {
	return encryption.NewTestCipher()
}

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() seswi.Vault {
	return vault.NewMemoryVault("test-vault")
}
