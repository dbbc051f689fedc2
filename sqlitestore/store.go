// Package sqlitestore is a demonstration/test cascade.ByteStore backed by
// SQLite, via database/sql and the mattn/go-sqlite3 driver.
//
// Grounded on the narrow Get/Set/Remove contract cascade.ByteStore
// requires (byte_backend.go) and the pack's sqlite logstore
// (bifrost-http/lib/logstore/sqlite.go) for connection-pool and
// schema-migration conventions, rewritten directly against database/sql
// rather than an ORM since the contract here is three methods on one
// table, not a queryable log store.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS cascade_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// Store is a cascade.ByteStore backed by a SQLite database. expires_at is
// a Unix-nanosecond absolute deadline derived from the relative ttl
// passed to Set; Get treats a row past its deadline as absent and
// deletes it lazily, rather than relying on a background sweep.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures the cascade_entries table exists. path may be ":memory:" for a
// process-local, non-persistent store, primarily useful in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	// SQLite serializes writers; a single connection avoids
	// "database is locked" errors under concurrent Set/Remove.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements cascade.ByteStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	row := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM cascade_entries WHERE key = ?`, key)
	switch err := row.Scan(&value, &expiresAt); {
	case err == sql.ErrNoRows:
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("sqlitestore: get: %w", err)
	}

	if time.Now().UnixNano() >= expiresAt {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cascade_entries WHERE key = ?`, key)
		return nil, false, nil
	}
	return value, true, nil
}

// Set implements cascade.ByteStore.
func (s *Store) Set(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cascade_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, blob, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlitestore: set: %w", err)
	}
	return nil
}

// Remove implements cascade.ByteStore. Idempotent.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cascade_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlitestore: remove: %w", err)
	}
	return nil
}
