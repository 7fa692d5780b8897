package seswi

import (
	"context"
	"io"
	"time"
)

// BackupObject describes one backup file stored in a vault.
type BackupObject struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Vault stores exported backup files outside the local database.
type Vault interface {
	// Name identifies the vault in configuration and output.
	Name() string

	// PutBackup stores size bytes from r under name, replacing any
	// existing backup with that name.
	PutBackup(ctx context.Context, name string, r io.Reader, size int64) error

	// GetBackup writes the named backup to w. A missing backup is an error
	// wrapping ErrNotFound.
	GetBackup(ctx context.Context, name string, w io.Writer) error

	// ListBackups returns every stored backup sorted by name.
	ListBackups(ctx context.Context) ([]BackupObject, error)

	// ValidateSetup checks that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
