package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"seswi-go/internal/config"
	"seswi-go/internal/seswi"
)

// AgeCipher implements seswi.Cipher using age's scrypt passphrase recipient.
// Ciphertext is ASCII armored so it can be embedded in a JSON envelope.
type AgeCipher struct {
	workFactor int
}

var _ seswi.Cipher = (*AgeCipher)(nil)

// ErrWrongPassword is returned by Decrypt when the password does not unlock
// the blob.
var ErrWrongPassword = errors.New("wrong password")

// NewAgeCipher creates a new AgeCipher from configuration.
func NewAgeCipher(cfg config.EncryptionConfig) *AgeCipher {
	return &AgeCipher{workFactor: cfg.ScryptWorkFactor}
}

// Encrypt seals plaintext for password and returns the armored ciphertext.
func (c *AgeCipher) Encrypt(plaintext []byte, password string) (string, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if c.workFactor > 0 {
		recipient.SetWorkFactor(c.workFactor)
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("encrypting data: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}

	return buf.String(), nil
}

// Decrypt opens an armored blob produced by Encrypt.
func (c *AgeCipher) Decrypt(blob string, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(blob)), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("creating decrypted reader: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decrypting data: %w", err)
	}
	return plaintext, nil
}
