package seswi

// Cipher is a password-based authenticated cipher for backup payloads.
// Decrypt must fail, rather than return garbage, for a wrong password.
type Cipher interface {
	Encrypt(plaintext []byte, password string) (string, error)
	Decrypt(blob string, password string) ([]byte, error)
}
