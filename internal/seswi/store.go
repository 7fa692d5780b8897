package seswi

import (
	"context"
	"time"
)

// SessionRecord is one persisted session row. Data holds the session JSON
// exactly as stored; Valid records whether it passed validation when written.
type SessionRecord struct {
	Timestamp int64
	Domain    string
	NameKey   string
	Valid     bool
	Data      []byte
}

// SessionStore persists sessions one record per row so that a mutation never
// rewrites the whole collection.
type SessionStore interface {
	// ListRecords returns every record in insertion order, invalid ones included.
	ListRecords(ctx context.Context) ([]SessionRecord, error)

	// InsertRecord appends rec. It fails with ErrDuplicateName when a valid
	// record already has rec.NameKey.
	InsertRecord(ctx context.Context, rec SessionRecord) error

	// InsertRecords appends recs in one transaction without name checks.
	InsertRecords(ctx context.Context, recs []SessionRecord) error

	// ReplaceRecord overwrites every record with rec.Timestamp and reports
	// whether any matched.
	ReplaceRecord(ctx context.Context, rec SessionRecord) (bool, error)

	// DeleteRecord removes the first record with timestamp and reports
	// whether one existed.
	DeleteRecord(ctx context.Context, timestamp int64) (bool, error)

	// DeleteDomains removes every record whose domain is in domains.
	DeleteDomains(ctx context.Context, domains []string) (int, error)

	// CountRecords returns the number of stored records, invalid ones included.
	CountRecords(ctx context.Context) (int, error)
}

// KeyValueStore is the small-object persistence primitive the browser
// extension exposes. Values are raw JSON.
type KeyValueStore interface {
	// Get returns nil, nil when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Operation is one recorded CLI or native host operation.
type Operation struct {
	ID         int64      `json:"id"`
	Operation  string     `json:"operation"`
	Parameters string     `json:"parameters"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// OperationStore keeps the operation history.
type OperationStore interface {
	CreateOperation(ctx context.Context, operation, parameters string) (*Operation, error)
	FinishOperation(ctx context.Context, id int64, status string) error
	// ListOperations returns the newest operations first.
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)
}

// Database is the local persistence backend.
type Database interface {
	SessionStore
	KeyValueStore
	OperationStore

	// CheckMigrations reports whether the schema is up to date.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	Close() error
}
