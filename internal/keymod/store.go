package keymod

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// KeyRecord is the persisted metadata for one key alias. The derived key
// itself is never stored; only the salt needed to re-derive it.
type KeyRecord struct {
	Alias     string
	Module    string
	Salt      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists key records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the key record database.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("ensure store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS key_records (
        alias      TEXT PRIMARY KEY,
        module     TEXT NOT NULL,
        salt       BLOB NOT NULL,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the record for alias, or ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, alias string) (*KeyRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT alias, module, salt, created_at, updated_at FROM key_records WHERE alias = ?`,
		alias,
	)
	var rec KeyRecord
	var created, updated string
	if err := row.Scan(&rec.Alias, &rec.Module, &rec.Salt, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, alias)
		}
		return nil, fmt.Errorf("query key record: %w", err)
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}

// Create inserts a new record and fails with ErrKeyExists when the alias is
// already provisioned.
func (s *Store) Create(ctx context.Context, rec *KeyRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO key_records (alias, module, salt, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Alias,
		rec.Module,
		rec.Salt,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if exists, existsErr := s.exists(ctx, rec.Alias); existsErr == nil && exists {
			return fmt.Errorf("%w: %q", ErrKeyExists, rec.Alias)
		}
		return fmt.Errorf("insert key record: %w", err)
	}
	return nil
}

// Delete removes the record for alias and reports whether one existed.
func (s *Store) Delete(ctx context.Context, alias string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM key_records WHERE alias = ?`, alias)
	if err != nil {
		return false, fmt.Errorf("delete key record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete key record: %w", err)
	}
	return n > 0, nil
}

func (s *Store) exists(ctx context.Context, alias string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM key_records WHERE alias = ?`, alias).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
