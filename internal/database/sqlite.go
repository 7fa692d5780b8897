package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"seswi-go/internal/database/migrations"
	"seswi-go/internal/seswi"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements seswi.Database on SQLite. Each session is one
// row; the session JSON is stored as-is next to its index columns.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and applies pending
// migrations. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: opens a fresh database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	return db, nil
}

// Session records

func (s *SQLiteDatabase) ListRecords(ctx context.Context) ([]seswi.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT timestamp, domain, name_key, valid, data FROM sessions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var recs []seswi.SessionRecord
	for rows.Next() {
		var rec seswi.SessionRecord
		var data string
		if err := rows.Scan(&rec.Timestamp, &rec.Domain, &rec.NameKey, &rec.Valid, &data); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		rec.Data = []byte(data)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return recs, nil
}

func (s *SQLiteDatabase) InsertRecord(ctx context.Context, rec seswi.SessionRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if rec.Valid {
			var one int
			err := tx.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE valid = 1 AND name_key = ? LIMIT 1", rec.NameKey).Scan(&one)
			switch {
			case err == nil:
				return seswi.ErrDuplicateName
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("checking session name: %w", err)
			}
		}
		return insertRecord(ctx, tx, rec)
	})
}

func (s *SQLiteDatabase) InsertRecords(ctx context.Context, recs []seswi.SessionRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if err := insertRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec seswi.SessionRecord) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (timestamp, domain, name_key, valid, data) VALUES (?, ?, ?, ?, ?)",
		rec.Timestamp, rec.Domain, rec.NameKey, rec.Valid, string(rec.Data))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ReplaceRecord(ctx context.Context, rec seswi.SessionRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET domain = ?, name_key = ?, valid = ?, data = ? WHERE timestamp = ?",
		rec.Domain, rec.NameKey, rec.Valid, string(rec.Data), rec.Timestamp)
	if err != nil {
		return false, fmt.Errorf("replacing session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replacing session: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) DeleteRecord(ctx context.Context, timestamp int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE id = (SELECT id FROM sessions WHERE timestamp = ? ORDER BY id LIMIT 1)", timestamp)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) DeleteDomains(ctx context.Context, domains []string) (int, error) {
	if len(domains) == 0 {
		return 0, nil
	}
	args := make([]any, len(domains))
	for i, d := range domains {
		args[i] = d
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(domains)), ",")
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE domain IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions by domain: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting sessions by domain: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteDatabase) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

// Key-value storage

func (s *SQLiteDatabase) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("reading key %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteDatabase) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(value))
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteDatabase) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing key %s: %w", key, err)
	}
	return nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*seswi.Operation, error) {
	op := &seswi.Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO operations (started_at, operation, parameters, status) VALUES (?, ?, ?, ?)",
		op.StartedAt, op.Operation, op.Parameters, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE operations SET finished_at = ?, status = ? WHERE id = ?",
		time.Now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*seswi.Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, operation, parameters, status FROM operations ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*seswi.Operation
	for rows.Next() {
		op := &seswi.Operation{}
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.StartedAt, &finished, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements seswi.Database
var _ seswi.Database = (*SQLiteDatabase)(nil)
