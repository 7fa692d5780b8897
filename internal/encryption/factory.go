package encryption

import (
	"fmt"

	"seswi-go/internal/config"
	"seswi-go/internal/seswi"
)

// NewCipherFromConfig creates a Cipher based on the configuration type.
func NewCipherFromConfig(cfg config.EncryptionConfig) (seswi.Cipher, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeCipher(cfg), nil
	case "test":
		return NewTestCipher(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
