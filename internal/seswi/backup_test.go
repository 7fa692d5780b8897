package seswi_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"seswi-go/internal/seswi"
	"seswi-go/internal/testutil"
)

func newTestCodec() *seswi.BackupCodec {
	return seswi.NewBackupCodec(testutil.NewTestCipher(), testutil.FixedClock())
}

func TestBackupCodec_Plain(t *testing.T) {
	t.Parallel()
	codec := newTestCodec()

	sessions := []*seswi.Session{
		testutil.NewSession("a.com", "one", 1),
		testutil.NewSession("b.com", "two", 2),
	}
	data, err := codec.EncodePlain(sessions)
	if err != nil {
		t.Fatalf("EncodePlain() error = %v", err)
	}

	var env seswi.PlainBackup
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal plain backup: %v", err)
	}
	if env.Version != "1.0" || env.ExportDate != "2024-01-15T10:30:00Z" || env.Type != "" {
		t.Errorf("envelope = %+v", env)
	}

	decoded, err := codec.Decode(data, "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Encrypted || len(decoded.Sessions) != 2 || decoded.Invalid != 0 {
		t.Errorf("Decode() = %+v, want 2 plaintext sessions", decoded)
	}
}

func TestBackupCodec_FullBackup(t *testing.T) {
	t.Parallel()
	codec := newTestCodec()

	s := testutil.NewSession("a.com", "one", 1)
	s.LocalStorage["theme"] = "dark"
	data, err := codec.EncodeFullBackup([]*seswi.Session{s, testutil.NewSession("b.com", "two", 2)})
	if err != nil {
		t.Fatalf("EncodeFullBackup() error = %v", err)
	}

	var env seswi.PlainBackup
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal full backup: %v", err)
	}
	if env.Type != seswi.FullBackupType || env.BackupDate == "" {
		t.Errorf("envelope type = %q, backupDate = %q", env.Type, env.BackupDate)
	}
	if env.Info == nil || env.Info.Sessions != 2 || env.Info.Cookies != 2 || env.Info.LocalStorage != 3 {
		t.Errorf("info = %+v, want 2 sessions, 2 cookies, 3 storage keys", env.Info)
	}

	decoded, err := codec.Decode(data, "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(decoded.Sessions) != 2 {
		t.Errorf("Decode() = %d sessions, want 2", len(decoded.Sessions))
	}
}

func TestBackupCodec_OWI(t *testing.T) {
	t.Parallel()
	codec := newTestCodec()
	sessions := []*seswi.Session{testutil.NewSession("a.com", "one", 1), testutil.NewSession("a.com", "two", 2)}

	data, err := codec.EncodeOWI(sessions, "hunter2")
	if err != nil {
		t.Fatalf("EncodeOWI() error = %v", err)
	}
	if !seswi.IsEncrypted(data) {
		t.Fatal("IsEncrypted() = false for OWI envelope")
	}
	var env seswi.OWIEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Format != "OWI" || env.Type != seswi.OWITypeMulti || env.Version != "1.0" {
		t.Errorf("envelope = %+v", env)
	}
	if strings.Contains(string(data), "hunter2") || strings.Contains(string(data), `"sid"`) {
		t.Error("envelope leaks plaintext")
	}

	decoded, err := codec.Decode(data, "hunter2")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !decoded.Encrypted || len(decoded.Sessions) != 2 || decoded.Sessions[1].Name != "two" {
		t.Errorf("Decode() = %+v", decoded)
	}
}

func TestBackupCodec_OWISingle(t *testing.T) {
	t.Parallel()
	codec := newTestCodec()

	data, err := codec.EncodeOWISingle(testutil.NewSession("a.com", "solo", 9), "pw")
	if err != nil {
		t.Fatalf("EncodeOWISingle() error = %v", err)
	}
	var env seswi.OWIEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != seswi.OWITypeSingle {
		t.Errorf("Type = %q, want %q", env.Type, seswi.OWITypeSingle)
	}

	decoded, err := codec.Decode(data, "pw")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(decoded.Sessions) != 1 || decoded.Sessions[0].Timestamp != 9 {
		t.Errorf("Decode() = %+v, want the single session", decoded)
	}

	if _, err := codec.EncodeOWISingle(nil, "pw"); !errors.Is(err, seswi.ErrInvalidInput) {
		t.Errorf("EncodeOWISingle(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestBackupCodec_PasswordErrors(t *testing.T) {
	t.Parallel()
	codec := newTestCodec()
	sessions := []*seswi.Session{testutil.NewSession("a.com", "one", 1)}

	if _, err := codec.EncodeOWI(sessions, "   "); !errors.Is(err, seswi.ErrValidation) {
		t.Errorf("EncodeOWI(blank) error = %v, want ErrValidation", err)
	}

	data, err := codec.EncodeOWI(sessions, "right")
	if err != nil {
		t.Fatalf("EncodeOWI() error = %v", err)
	}
	if _, err := codec.Decode(data, ""); !errors.Is(err, seswi.ErrValidation) {
		t.Errorf("Decode(no password) error = %v, want ErrValidation", err)
	}
	_, err = codec.Decode(data, "wrong")
	if !errors.Is(err, seswi.ErrDecryption) {
		t.Errorf("Decode(wrong) error = %v, want ErrDecryption", err)
	}
	if got := seswi.ErrorContext(err); got != "decryptOWI" {
		t.Errorf("ErrorContext() = %q, want %q", got, "decryptOWI")
	}

	tampered := []byte(`{"version":"1.0","format":"OWI","created":"x","type":"multi","encryptedData":"garbage"}`)
	if _, err := codec.Decode(tampered, "right"); !errors.Is(err, seswi.ErrDecryption) {
		t.Errorf("Decode(tampered) error = %v, want ErrDecryption", err)
	}
}

func TestBackupCodec_DecodePlainShapes(t *testing.T) {
	t.Parallel()
	codec := newTestCodec()
	valid := `{"name":"a","domain":"a.com","cookies":[],"timestamp":1}`

	tests := []struct {
		name        string
		data        string
		wantErr     error
		wantCount   int
		wantInvalid int
	}{
		{name: "bare array", data: "[" + valid + "]", wantCount: 1},
		{name: "object with sessions", data: `{"sessions":[` + valid + `]}`, wantCount: 1},
		{name: "invalid entries counted", data: `{"sessions":[` + valid + `,{"name":"x"},42]}`, wantCount: 1, wantInvalid: 2},
		{name: "empty file", data: "  ", wantErr: seswi.ErrInvalidPayload},
		{name: "not json", data: "{oops", wantErr: seswi.ErrInvalidPayload},
		{name: "missing sessions", data: `{"version":"1.0"}`, wantErr: seswi.ErrInvalidPayload},
		{name: "sessions not an array", data: `{"sessions":{}}`, wantErr: seswi.ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := codec.Decode([]byte(tt.data), "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(decoded.Sessions) != tt.wantCount || decoded.Invalid != tt.wantInvalid {
				t.Errorf("Decode() = %d sessions, %d invalid; want %d, %d", len(decoded.Sessions), decoded.Invalid, tt.wantCount, tt.wantInvalid)
			}
		})
	}
}

func TestCheckBackupFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		file          string
		size          int64
		wantEncrypted bool
		wantErr       bool
	}{
		{name: "json", file: "backup.json", size: 10},
		{name: "owi", file: "backup.owi", size: 10, wantEncrypted: true},
		{name: "uppercase owi", file: "BACKUP.OWI", size: 10, wantEncrypted: true},
		{name: "at size limit", file: "big.json", size: seswi.MaxBackupFileSize},
		{name: "too large", file: "big.json", size: seswi.MaxBackupFileSize + 1, wantErr: true},
		{name: "wrong extension", file: "backup.txt", size: 10, wantErr: true},
		{name: "no extension", file: "backup", size: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := seswi.CheckBackupFile(tt.file, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckBackupFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, seswi.ErrInvalidInput) {
				t.Errorf("CheckBackupFile() error = %v, want ErrInvalidInput", err)
			}
			if encrypted != tt.wantEncrypted {
				t.Errorf("encrypted = %v, want %v", encrypted, tt.wantEncrypted)
			}
		})
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	existing := []*seswi.Session{
		testutil.NewSession("a.com", "Work", 100),
	}
	incoming := []*seswi.Session{
		testutil.NewSession("a.com", "work", 200),  // name clash only
		testutil.NewSession("b.com", "other", 100), // timestamp clash only
		testutil.NewSession("a.com", "Work", 100),  // both
		testutil.NewSession("b.com", "work", 300),  // neither
	}

	items := seswi.DetectConflicts(incoming, existing)
	want := []struct{ name, ts, selected bool }{
		{name: true, ts: false, selected: false},
		{name: false, ts: true, selected: false},
		{name: true, ts: true, selected: false},
		{name: false, ts: false, selected: true},
	}
	for i, w := range want {
		it := items[i]
		if it.DuplicateName != w.name || it.DuplicateTimestamp != w.ts || it.Selected != w.selected {
			t.Errorf("item %d = {name:%v ts:%v selected:%v}, want %+v", i, it.DuplicateName, it.DuplicateTimestamp, it.Selected, w)
		}
	}
}
