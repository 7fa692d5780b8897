package encryption

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"seswi-go/internal/seswi"
)

// testPrefix marks blobs produced by TestCipher.
const testPrefix = "SESWITEST:"

// TestCipher is a simple, deterministic cipher for testing. It encodes a
// short password tag followed by the plaintext, so a wrong password is
// detected without any real cryptography.
type TestCipher struct{}

var _ seswi.Cipher = (*TestCipher)(nil)

// NewTestCipher creates a new TestCipher.
func NewTestCipher() *TestCipher {
	return &TestCipher{}
}

func (c *TestCipher) Encrypt(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password can't be empty")
	}
	payload := append(passwordTag(password), plaintext...)
	return testPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

func (c *TestCipher) Decrypt(blob string, password string) ([]byte, error) {
	if !strings.HasPrefix(blob, testPrefix) {
		return nil, fmt.Errorf("invalid test cipher header")
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, testPrefix))
	if err != nil {
		return nil, fmt.Errorf("decoding test payload: %w", err)
	}
	tag := passwordTag(password)
	if len(payload) < len(tag) || !bytes.Equal(payload[:len(tag)], tag) {
		return nil, ErrWrongPassword
	}
	return payload[len(tag):], nil
}

func passwordTag(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return sum[:4]
}
