// Package sqlite implements storage.Storage on top of a pure-Go SQLite
// engine, so Tanaste never links against cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tanaste-io/tanaste/internal/storage"
)

// SQLiteStorage is the single-connection, single-process storage backend.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

var _ storage.Storage = (*SQLiteStorage)(nil)
var _ storage.Transaction = (*txWrapper)(nil)

// Open creates (if necessary) and migrates the database at path.
func Open(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY
	// storms under WAL and matches the "shared serialised resource" model.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: path}, nil
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }

func (s *SQLiteStorage) Path() string { return s.path }

func (s *SQLiteStorage) UnderlyingDB() *sql.DB { return s.db }

// txWrapper adapts a *sql.Tx to storage.Transaction.
type txWrapper struct {
	tx *sql.Tx
}

func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	// LevelSerializable asks the driver for BEGIN IMMEDIATE rather than a
	// deferred transaction, acquiring the write lock up front so two
	// concurrent canonical-value upserts for the same entity serialise
	// instead of deadlocking on a later promotion.
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("sqlite: begin immediate: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&txWrapper{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	committed = true
	return nil
}
