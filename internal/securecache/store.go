package securecache

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteStore is the durable key/value backend. Entries survive process
// restarts; only the session key decides whether they are still readable.
type sqliteStore struct {
	db *sql.DB
}

func openStore(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers per connection; a single connection keeps
	// same-key operations linearized.
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key  TEXT PRIMARY KEY,
    blob BLOB NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) put(ctx context.Context, key string, blob []byte) error {
	const q = `
INSERT INTO cache_entries (key, blob) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET blob = excluded.blob`
	_, err := s.db.ExecContext(ctx, q, key, blob)
	return err
}

func (s *sqliteStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT blob FROM cache_entries WHERE key = ?`
	var blob []byte
	err := s.db.QueryRowContext(ctx, q, key).Scan(&blob)
	switch {
	case err == nil:
		return blob, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

func (s *sqliteStore) delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *sqliteStore) deleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *sqliteStore) close() error {
	return s.db.Close()
}
