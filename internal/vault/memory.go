package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"seswi-go/internal/seswi"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for testing and is safe for concurrent use.
type MemoryVault struct {
	name    string
	mu      sync.RWMutex
	backups map[string]memoryBackup
	now     func() time.Time
}

type memoryBackup struct {
	data       []byte
	modifiedAt time.Time
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		backups: make(map[string]memoryBackup),
		now:     time.Now,
	}
}

func (m *MemoryVault) Name() string { return m.name }

// PutBackup stores a backup, replacing any previous one with the same name.
func (m *MemoryVault) PutBackup(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if int64(len(data)) != size {
		return sizeMismatch(size, int64(len(data)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[name] = memoryBackup{data: data, modifiedAt: m.now().UTC()}
	return nil
}

func (m *MemoryVault) GetBackup(ctx context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.backups[name]
	if !ok {
		return notFound(name)
	}
	if _, err := io.Copy(w, bytes.NewReader(b.data)); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func (m *MemoryVault) ListBackups(ctx context.Context) ([]seswi.BackupObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]seswi.BackupObject, 0, len(m.backups))
	for name, b := range m.backups {
		out = append(out, seswi.BackupObject{Name: name, Size: int64(len(b.data)), ModifiedAt: b.modifiedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements seswi.Vault interface
var _ seswi.Vault = (*MemoryVault)(nil)
