package seswi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backup envelope constants.
const (
	BackupVersion  = "1.0"
	FormatOWI      = "OWI"
	OWITypeSingle  = "single"
	OWITypeMulti   = "multi"
	FullBackupType = "sessions-backup"

	ExtPlain = ".json"
	ExtOWI   = ".owi"

	// MaxBackupFileSize is the largest backup file accepted for import.
	MaxBackupFileSize = 50 * 1024 * 1024
)

// BackupInfo summarizes a full-library export. It is informational only.
type BackupInfo struct {
	Sessions     int `json:"sessions"`
	Cookies      int `json:"cookies"`
	LocalStorage int `json:"localStorage"`
}

// PlainBackup is the plaintext .json envelope.
type PlainBackup struct {
	Type       string      `json:"type,omitempty"`
	Version    string      `json:"version"`
	ExportDate string      `json:"exportDate,omitempty"`
	BackupDate string      `json:"backupDate,omitempty"`
	Sessions   []*Session  `json:"sessions"`
	Info       *BackupInfo `json:"info,omitempty"`
}

// OWIEnvelope is the encrypted .owi envelope.
type OWIEnvelope struct {
	Version       string `json:"version"`
	Format        string `json:"format"`
	Created       string `json:"created"`
	Type          string `json:"type"`
	EncryptedData string `json:"encryptedData"`
}

// owiPayload is the plaintext inside a multi-session envelope.
type owiPayload struct {
	Version    string     `json:"version"`
	ExportDate string     `json:"exportDate"`
	Sessions   []*Session `json:"sessions"`
}

// DecodedBackup is the result of parsing a backup file.
type DecodedBackup struct {
	Encrypted bool
	Sessions  []*Session
	// Invalid counts entries dropped because they failed validation.
	Invalid int
}

// BackupCodec encodes and decodes session backups.
type BackupCodec struct {
	cipher Cipher
	clock  Clock
}

// NewBackupCodec creates a codec that encrypts OWI payloads with cipher.
func NewBackupCodec(cipher Cipher, clock Clock) *BackupCodec {
	return &BackupCodec{cipher: cipher, clock: clock}
}

func (c *BackupCodec) now() string {
	return c.clock.Now().UTC().Format(time.RFC3339Nano)
}

// EncodePlain exports sessions as {version, exportDate, sessions}.
func (c *BackupCodec) EncodePlain(sessions []*Session) ([]byte, error) {
	return marshalIndent(PlainBackup{
		Version:    BackupVersion,
		ExportDate: c.now(),
		Sessions:   nonNil(sessions),
	})
}

// EncodeFullBackup exports the whole library with a summary block.
func (c *BackupCodec) EncodeFullBackup(sessions []*Session) ([]byte, error) {
	info := &BackupInfo{Sessions: len(sessions)}
	for _, s := range sessions {
		info.Cookies += len(s.Cookies)
		info.LocalStorage += len(s.LocalStorage)
	}
	return marshalIndent(PlainBackup{
		Type:       FullBackupType,
		Version:    BackupVersion,
		BackupDate: c.now(),
		Sessions:   nonNil(sessions),
		Info:       info,
	})
}

// EncodeOWI encrypts sessions into a multi-session OWI envelope.
func (c *BackupCodec) EncodeOWI(sessions []*Session, password string) ([]byte, error) {
	payload := owiPayload{Version: BackupVersion, ExportDate: c.now(), Sessions: nonNil(sessions)}
	return c.seal(OWITypeMulti, payload, password)
}

// EncodeOWISingle encrypts one bare session into the legacy single-session
// OWI envelope.
func (c *BackupCodec) EncodeOWISingle(s *Session, password string) ([]byte, error) {
	if s == nil {
		return nil, opError("createOWI", kindError(ErrInvalidInput, "invalid session data"))
	}
	return c.seal(OWITypeSingle, s, password)
}

func (c *BackupCodec) seal(typ string, payload any, password string) ([]byte, error) {
	if strings.TrimSpace(password) == "" {
		return nil, opError("createOWI", kindError(ErrValidation, "password is required"))
	}
	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, opError("createOWI", fmt.Errorf("encoding payload: %w", err))
	}
	blob, err := c.cipher.Encrypt(plain, password)
	if err != nil {
		return nil, opError("createOWI", fmt.Errorf("encrypting payload: %w", err))
	}
	return marshalIndent(OWIEnvelope{
		Version:       BackupVersion,
		Format:        FormatOWI,
		Created:       c.now(),
		Type:          typ,
		EncryptedData: blob,
	})
}

// IsEncrypted reports whether data parses as an OWI envelope.
func IsEncrypted(data []byte) bool {
	var probe struct {
		Format string `json:"format"`
	}
	if json.Unmarshal(data, &probe) != nil {
		return false
	}
	return probe.Format == FormatOWI
}

// Decode parses a backup. OWI envelopes are decrypted with password; any
// decryption failure is reported as ErrDecryption without saying whether
// the password or the data was wrong.
func (c *BackupCodec) Decode(data []byte, password string) (*DecodedBackup, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, opError("decodeBackup", kindError(ErrInvalidPayload, "empty file"))
	}
	if IsEncrypted(trimmed) {
		return c.decodeOWI(trimmed, password)
	}

	items, err := plainItems(trimmed)
	if err != nil {
		return nil, opError("decodeBackup", err)
	}
	return decodeItems(items, false), nil
}

func (c *BackupCodec) decodeOWI(data []byte, password string) (*DecodedBackup, error) {
	var env OWIEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.EncryptedData == "" {
		return nil, opError("decryptOWI", kindError(ErrInvalidPayload, "invalid OWI file"))
	}
	if strings.TrimSpace(password) == "" {
		return nil, opError("decryptOWI", kindError(ErrValidation, "password is required"))
	}

	plain, err := c.cipher.Decrypt(env.EncryptedData, password)
	if err != nil {
		return nil, opError("decryptOWI", ErrDecryption)
	}
	if !json.Valid(plain) {
		return nil, opError("decryptOWI", ErrDecryption)
	}

	var items []json.RawMessage
	switch env.Type {
	case OWITypeSingle:
		items = []json.RawMessage{plain}
	case OWITypeMulti:
		var p struct {
			Sessions json.RawMessage `json:"sessions"`
		}
		if json.Unmarshal(plain, &p) != nil || !isJSONArray(p.Sessions) {
			return nil, opError("decryptOWI", kindError(ErrInvalidPayload, "invalid decrypted payload"))
		}
		if err := json.Unmarshal(p.Sessions, &items); err != nil {
			return nil, opError("decryptOWI", kindError(ErrInvalidPayload, "invalid decrypted payload"))
		}
	default:
		items, err = plainItems(plain)
		if err != nil {
			return nil, opError("decryptOWI", kindError(ErrInvalidPayload, "unsupported OWI payload"))
		}
	}
	return decodeItems(items, true), nil
}

// plainItems extracts the session entries from a top-level array or from an
// object's sessions field.
func plainItems(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if isJSONArray(data) {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, kindError(ErrInvalidPayload, "invalid JSON format")
		}
		return items, nil
	}

	var doc struct {
		Sessions json.RawMessage `json:"sessions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, kindError(ErrInvalidPayload, "invalid JSON format")
	}
	if len(doc.Sessions) == 0 {
		return nil, kindError(ErrInvalidPayload, "missing sessions data")
	}
	if !isJSONArray(doc.Sessions) {
		return nil, kindError(ErrInvalidPayload, "sessions must be an array")
	}
	if err := json.Unmarshal(doc.Sessions, &items); err != nil {
		return nil, kindError(ErrInvalidPayload, "invalid sessions array")
	}
	return items, nil
}

func decodeItems(items []json.RawMessage, encrypted bool) *DecodedBackup {
	out := &DecodedBackup{Encrypted: encrypted, Sessions: []*Session{}}
	for _, raw := range items {
		s, err := DecodeSession(raw)
		if err != nil {
			out.Invalid++
			continue
		}
		out.Sessions = append(out.Sessions, s)
	}
	return out
}

// CheckBackupFile validates a backup file's name and size before it is read.
// The extension alone decides the expected format.
func CheckBackupFile(name string, size int64) (encrypted bool, err error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtPlain:
		encrypted = false
	case ExtOWI:
		encrypted = true
	default:
		return false, opError("validateFileBeforeImport", kindError(ErrInvalidInput, "invalid file format, expected .json or .owi"))
	}
	if size > MaxBackupFileSize {
		return false, opError("validateFileBeforeImport", kindError(ErrInvalidInput, "file too large, maximum size is 50MB"))
	}
	return encrypted, nil
}

// ImportItem is one parsed backup session with its conflict flags.
type ImportItem struct {
	Session            *Session `json:"session"`
	DuplicateName      bool     `json:"duplicateName"`
	DuplicateTimestamp bool     `json:"duplicateTimestamp"`
	Selected           bool     `json:"selected"`
}

// Skippable reports whether either conflict check flagged the item.
func (i ImportItem) Skippable() bool {
	return i.DuplicateName || i.DuplicateTimestamp
}

// DetectConflicts flags incoming sessions that collide with existing ones.
// The name check and the timestamp check run independently. Items that pass
// both are selected by default.
func DetectConflicts(incoming, existing []*Session) []ImportItem {
	names := make(map[string]bool, len(existing))
	stamps := make(map[int64]bool, len(existing))
	for _, s := range existing {
		names[s.NameKey()] = true
		stamps[s.Timestamp] = true
	}

	items := make([]ImportItem, len(incoming))
	for i, s := range incoming {
		it := ImportItem{
			Session:            s,
			DuplicateName:      names[s.NameKey()],
			DuplicateTimestamp: stamps[s.Timestamp],
		}
		it.Selected = !it.Skippable()
		items[i] = it
	}
	return items
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	return data, nil
}

func nonNil(sessions []*Session) []*Session {
	if sessions == nil {
		return []*Session{}
	}
	return sessions
}
