package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

var _ Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

// NewSQLite opens (and if needed initializes) a SQLite-backed cache at path.
func NewSQLite(path string) (Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	const q = `CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		timestamp INTEGER NOT NULL
	)`

	if _, err := db.Exec(q); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	const q = `SELECT value, timestamp FROM cache WHERE key = ?`

	var (
		value []byte
		ms    int64
	)

	err := b.db.QueryRowContext(ctx, q, key).Scan(&value, &ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrNotFound
		}

		return nil, time.Time{}, err
	}

	return value, time.UnixMilli(ms), nil
}

func (b *sqliteBackend) Set(ctx context.Context, key string, value []byte, ts time.Time) error {
	const q = `INSERT INTO cache (key, value, timestamp) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp`

	_, err := b.db.ExecContext(ctx, q, key, value, ts.UnixMilli())

	return err
}

func (b *sqliteBackend) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM cache WHERE key = ?`

	_, err := b.db.ExecContext(ctx, q, key)

	return err
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
