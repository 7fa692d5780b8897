package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"seswi-go/internal/seswi"
)

func TestMemoryVault_PutAndGetBackup(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		backup  string
		content string
	}{
		{name: "store and retrieve", backup: "a.json", content: `{"sessions":[]}`},
		{name: "store empty backup", backup: "empty.json", content: ""},
		{name: "store large backup", backup: "large.owi", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := vault.PutBackup(ctx, tt.backup, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
				t.Fatalf("PutBackup() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetBackup(ctx, tt.backup, &buf); err != nil {
				t.Fatalf("GetBackup() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetBackup() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_Errors(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")

	if err := vault.PutBackup(ctx, "a.json", strings.NewReader("abc"), 10); err == nil {
		t.Error("PutBackup() with size mismatch succeeded")
	}
	if err := vault.PutBackup(ctx, "../escape.json", strings.NewReader(""), 0); !errors.Is(err, seswi.ErrInvalidInput) {
		t.Errorf("PutBackup() bad name error = %v, want ErrInvalidInput", err)
	}

	var buf bytes.Buffer
	if err := vault.GetBackup(ctx, "missing.json", &buf); !errors.Is(err, seswi.ErrNotFound) {
		t.Errorf("GetBackup() missing error = %v, want ErrNotFound", err)
	}
}

func TestMemoryVault_ListBackups(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	vault.now = func() time.Time { return at }

	for _, name := range []string{"b.owi", "a.json", "c.json"} {
		if err := vault.PutBackup(ctx, name, strings.NewReader(name), int64(len(name))); err != nil {
			t.Fatalf("PutBackup() error = %v", err)
		}
	}
	// Replacing keeps one entry.
	if err := vault.PutBackup(ctx, "a.json", strings.NewReader("longer"), 6); err != nil {
		t.Fatalf("PutBackup() error = %v", err)
	}

	got, err := vault.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListBackups() = %d backups, want 3", len(got))
	}
	if got[0].Name != "a.json" || got[1].Name != "b.owi" || got[2].Name != "c.json" {
		t.Errorf("ListBackups() order = %v", got)
	}
	if got[0].Size != 6 || !got[0].ModifiedAt.Equal(at) {
		t.Errorf("a.json = %+v, want size 6 at %v", got[0], at)
	}

	if vault.Name() != "test-vault" {
		t.Errorf("Name() = %q", vault.Name())
	}
	if err := vault.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "sessions-backup-2024-01-15.owi"},
		{name: "example.com-1705314600000.json"},
		{name: "", wantErr: true},
		{name: "..", wantErr: true},
		{name: "a/b.json", wantErr: true},
		{name: `a\b.json`, wantErr: true},
		{name: ".tmp-123", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkName(tt.name); (err != nil) != tt.wantErr {
				t.Errorf("checkName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
