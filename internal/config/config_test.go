package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		InstanceID: "test-instance-abc",
		BaseDir:    "/home/user/.local/share/seswi",
		LogDir:     "/home/user/.local/share/seswi/log",
		Database:   DatabaseConfig{Type: "sqlite", Path: "/home/user/.local/share/seswi/sessions.db"},
		Encryption: EncryptionConfig{Type: "age", ScryptWorkFactor: 15},
		Browser:    BrowserConfig{Type: "cdp", CDPURL: "ws://127.0.0.1:9222", TabCacheTTLMs: 250},
		Domain:     DomainConfig{PublicSuffix: "full"},
		Capture:    CaptureConfig{IgnoreCookies: []string{"_ga*", "_gid"}},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
			{Type: "s3", Name: "remote", S3Bucket: "b", S3Endpoint: "http://localhost:9000", S3UsePathStyle: true},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.InstanceID != original.InstanceID {
		t.Errorf("InstanceID = %q, want %q", got.InstanceID, original.InstanceID)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Encryption.ScryptWorkFactor != 15 {
		t.Errorf("Encryption.ScryptWorkFactor = %d, want 15", got.Encryption.ScryptWorkFactor)
	}
	if got.Browser != original.Browser {
		t.Errorf("Browser = %+v, want %+v", got.Browser, original.Browser)
	}
	if got.Domain.PublicSuffix != "full" {
		t.Errorf("Domain.PublicSuffix = %q, want %q", got.Domain.PublicSuffix, "full")
	}
	if len(got.Capture.IgnoreCookies) != 2 {
		t.Fatalf("len(Capture.IgnoreCookies) = %d, want 2", len(got.Capture.IgnoreCookies))
	}
	if len(got.Vaults) != 2 {
		t.Fatalf("len(Vaults) = %d, want 2", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if !got.Vaults[1].S3UsePathStyle {
		t.Error("Vault.S3UsePathStyle = false, want true")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("instance-1", "/data/seswi")

	if cfg.InstanceID != "instance-1" {
		t.Errorf("InstanceID = %q, want %q", cfg.InstanceID, "instance-1")
	}
	if cfg.LogDir != "/data/seswi/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/seswi/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.Path != "/data/seswi/sessions.db" {
		t.Errorf("Database = %+v, want sqlite at /data/seswi/sessions.db", cfg.Database)
	}
	if cfg.Browser.CookieFile != "/data/seswi/cookies.txt" {
		t.Errorf("Browser.CookieFile = %q, want %q", cfg.Browser.CookieFile, "/data/seswi/cookies.txt")
	}
	if cfg.Domain.PublicSuffix != "heuristic" {
		t.Errorf("Domain.PublicSuffix = %q, want %q", cfg.Domain.PublicSuffix, "heuristic")
	}
	if len(cfg.Vaults) != 1 || cfg.Vaults[0].FSVaultRoot != "/data/seswi/backups" {
		t.Errorf("Vaults = %+v, want one filesystem vault at /data/seswi/backups", cfg.Vaults)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "seswi.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "seswi.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "seswi.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.InstanceID != "read-test" {
			t.Errorf("InstanceID = %q, want %q", got.InstanceID, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/seswi.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
