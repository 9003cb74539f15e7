package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/youhedge/hedgetv/internal/shared"
)

// SQLiteDb stores values in a single key-value table inside a SQLite database.
// Several logical stores can share one database file by using distinct buckets.
type SQLiteDb struct {
	db     *sql.DB
	bucket string
}

var _ Db = (*SQLiteDb)(nil)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	bucket TEXT NOT NULL,
	id TEXT NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (bucket, id)
)`

// NewSQLiteDb opens (or reuses) the database at path and ensures the key-value
// schema exists. The path can be ":memory:" for tests.
func NewSQLiteDb(path, bucket string, cfg shared.DatabaseConfig) (*SQLiteDb, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	s := &SQLiteDb{db: db, bucket: bucket}
	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv schema: %w", err)
	}

	return s, nil
}

// NewSessionScopedDb opens a SQLite store that is cleared immediately, so data
// only survives for the lifetime of the current run.
func NewSessionScopedDb(path, bucket string, cfg shared.DatabaseConfig) (*SQLiteDb, error) {
	s, err := NewSQLiteDb(path, bucket, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.Clear(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDb) Get(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM kv_store WHERE bucket = ? AND id = ?", s.bucket, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %q: %v", shared.ErrStorage, id, err)
	}
	return data, nil
}

func (s *SQLiteDb) Set(ctx context.Context, id string, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode value %q: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO kv_store (bucket, id, data) VALUES (?, ?, ?) ON CONFLICT(bucket, id) DO UPDATE SET data = excluded.data",
		s.bucket, id, data)
	if err != nil {
		return fmt.Errorf("%w: set %q: %v", shared.ErrStorage, id, err)
	}
	return nil
}

func (s *SQLiteDb) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE bucket = ?", s.bucket); err != nil {
		return fmt.Errorf("%w: clear: %v", shared.ErrStorage, err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteDb) Close() error {
	return s.db.Close()
}
